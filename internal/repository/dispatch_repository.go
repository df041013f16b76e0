package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// DispatchFilter narrows dispatch listings.
type DispatchFilter struct {
	CaseIDs       []string
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	After         *Cursor
	Limit         int
	Offset        int
}

// DispatchRepository persists engineer dispatches.
type DispatchRepository interface {
	Create(ctx context.Context, dispatch *domain.DispatchRecord) error
	List(ctx context.Context, filter DispatchFilter) ([]domain.DispatchRecord, error)
}

type dispatchRepository struct {
	db DBTX
}

// NewDispatchRepository returns repository.
func NewDispatchRepository(db DBTX) DispatchRepository {
	return &dispatchRepository{db: db}
}

func (r *dispatchRepository) Create(ctx context.Context, dispatch *domain.DispatchRecord) error {
	const query = `
        INSERT INTO dispatch_records (service_case_id, scheduled_service_date)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		dispatch.ServiceCaseID,
		dispatch.ScheduledServiceDate,
	).Scan(&dispatch.ID, &dispatch.CreatedAt)
}

func (r *dispatchRepository) List(ctx context.Context, filter DispatchFilter) ([]domain.DispatchRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.CaseIDs) > 0 {
		clauses = append(clauses, inClause("service_case_id", &args, filter.CaseIDs))
	}
	if filter.ScheduledFrom != nil {
		args = append(args, *filter.ScheduledFrom)
		clauses = append(clauses, fmt.Sprintf("scheduled_service_date >= $%d", len(args)))
	}
	if filter.ScheduledTo != nil {
		args = append(args, *filter.ScheduledTo)
		clauses = append(clauses, fmt.Sprintf("scheduled_service_date <= $%d", len(args)))
	}
	if filter.After != nil {
		clauses = append(clauses, seekClause("scheduled_service_date", false, filter.After, &args))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 500, filter.After)
	query := fmt.Sprintf(`
        SELECT id, service_case_id, scheduled_service_date, created_at
        FROM dispatch_records WHERE %s ORDER BY scheduled_service_date ASC, id ASC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DispatchRecord
	for rows.Next() {
		var d domain.DispatchRecord
		if err := rows.Scan(&d.ID, &d.ServiceCaseID, &d.ScheduledServiceDate, &d.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
