package repository

import (
	"context"

	"github.com/spec-kit/service-crm/internal/domain"
)

// CatalogRepository reads the product catalog.
type CatalogRepository interface {
	GetByID(ctx context.Context, id string) (*domain.CatalogProduct, error)
	List(ctx context.Context) ([]domain.CatalogProduct, error)
}

type catalogRepository struct {
	db DBTX
}

// NewCatalogRepository builds the repository.
func NewCatalogRepository(db DBTX) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (*domain.CatalogProduct, error) {
	const query = `SELECT id, name, code FROM catalog_products WHERE id=$1`
	var p domain.CatalogProduct
	if err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Code); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]domain.CatalogProduct, error) {
	const query = `SELECT id, name, code FROM catalog_products ORDER BY name ASC, id ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CatalogProduct
	for rows.Next() {
		var p domain.CatalogProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Code); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
