package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/service-crm/internal/domain"
)

// EngineerFilter defines query params for the roster listing.
type EngineerFilter struct {
	Active *bool
	After  *Cursor
	Limit  int
	Offset int
}

// EngineerRepository reads the field engineer roster.
type EngineerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Engineer, error)
	List(ctx context.Context, filter EngineerFilter) ([]domain.Engineer, error)
}

type engineerRepository struct {
	db DBTX
}

// NewEngineerRepository instantiates the repository.
func NewEngineerRepository(db DBTX) EngineerRepository {
	return &engineerRepository{db: db}
}

func (r *engineerRepository) GetByID(ctx context.Context, id string) (*domain.Engineer, error) {
	const query = `SELECT id, name, active_flag FROM engineers WHERE id=$1`
	var e domain.Engineer
	if err := r.db.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &e.Active); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *engineerRepository) List(ctx context.Context, filter EngineerFilter) ([]domain.Engineer, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if filter.After != nil {
		clauses = append(clauses, seekClause("name", false, filter.After, &args))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 500, filter.After)
	query := fmt.Sprintf(`SELECT id, name, active_flag FROM engineers WHERE %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Engineer
	for rows.Next() {
		var e domain.Engineer
		if err := rows.Scan(&e.ID, &e.Name, &e.Active); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
