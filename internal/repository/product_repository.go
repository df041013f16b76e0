package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/service-crm/internal/domain"
)

// ProductFilter narrows registered product listings.
type ProductFilter struct {
	IDs            []string
	OwnerContactID *string
	ProductID      *string
	DefectiveOnly  bool
	After          *Cursor
	Limit          int
	Offset         int
}

// ProductRepository persists customer registered products.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.RegisteredProduct) error
	GetByID(ctx context.Context, id string) (*domain.RegisteredProduct, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.RegisteredProduct, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository builds the repository.
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, product_id, serial_number, purchase_date, warranty_expiry, amc_expiry,
               defective, owner_contact_id, created_at`

func (r *productRepository) Create(ctx context.Context, product *domain.RegisteredProduct) error {
	const query = `
        INSERT INTO registered_products (name, product_id, serial_number, purchase_date, warranty_expiry,
            amc_expiry, defective, owner_contact_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		product.Name,
		product.ProductID,
		product.SerialNumber,
		product.PurchaseDate,
		product.WarrantyExpiry,
		product.AMCExpiry,
		product.Defective,
		product.OwnerContactID,
	).Scan(&product.ID, &product.CreatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.RegisteredProduct, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM registered_products WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]domain.RegisteredProduct, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.IDs) > 0 {
		clauses = append(clauses, inClause("id", &args, filter.IDs))
	}
	if filter.OwnerContactID != nil {
		args = append(args, *filter.OwnerContactID)
		clauses = append(clauses, fmt.Sprintf("owner_contact_id=$%d", len(args)))
	}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		clauses = append(clauses, fmt.Sprintf("product_id=$%d", len(args)))
	}
	if filter.DefectiveOnly {
		clauses = append(clauses, "defective")
	}
	if filter.After != nil {
		clauses = append(clauses, seekClause("created_at", true, filter.After, &args))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 500, filter.After)
	query := fmt.Sprintf(`SELECT %s FROM registered_products WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d`,
		productColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RegisteredProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.RegisteredProduct, error) {
	var p domain.RegisteredProduct
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ProductID,
		&p.SerialNumber,
		&p.PurchaseDate,
		&p.WarrantyExpiry,
		&p.AMCExpiry,
		&p.Defective,
		&p.OwnerContactID,
		&p.CreatedAt,
	)
	return p, err
}
