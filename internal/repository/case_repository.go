package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-crm/internal/domain"
)

// CaseFilter captures service case search parameters. After seeks past a
// previously read case and replaces Offset when set.
type CaseFilter struct {
	IDs                []string
	ContactID          *string
	AssignedEngineerID *string
	LinkedProductID    *string
	Statuses           []domain.CaseStatus
	Priorities         []domain.CasePriority
	SearchTerm         *string
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	DeadlineBefore     *time.Time
	After              *Cursor
	Limit              int
	Offset             int
}

// CaseRepository encapsulates service case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.ServiceCase) error
	Update(ctx context.Context, c *domain.ServiceCase, expected domain.CaseStatus) error
	GetByID(ctx context.Context, id string) (*domain.ServiceCase, error)
	GetByCaseNumber(ctx context.Context, number string) (*domain.ServiceCase, error)
	ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.ServiceCase, error)
}

type caseRepository struct {
	db DBTX
}

// NewCaseRepository instantiates repository.
func NewCaseRepository(db DBTX) CaseRepository {
	return &caseRepository{db: db}
}

const caseColumns = `id, case_number, contact_id, subject, description, status, priority,
               assigned_engineer_id, linked_product_id, feedback_eligible, sla_deadline, created_at, updated_at`

func (r *caseRepository) Create(ctx context.Context, c *domain.ServiceCase) error {
	const query = `
        INSERT INTO service_cases (case_number, contact_id, subject, description, status, priority,
            assigned_engineer_id, linked_product_id, feedback_eligible, sla_deadline, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, updated_at`
	return r.db.QueryRow(ctx, query,
		c.CaseNumber,
		c.ContactID,
		c.Subject,
		c.Description,
		c.Status,
		c.Priority,
		c.AssignedEngineerID,
		c.LinkedProductID,
		c.FeedbackEligible,
		c.SLADeadline,
		c.CreatedAt,
	).Scan(&c.ID, &c.UpdatedAt)
}

// Update writes the mutable columns provided the stored status still equals
// expected. It returns pgx.ErrNoRows when the case is missing or has moved on.
// created_at and sla_deadline are fixed at creation.
func (r *caseRepository) Update(ctx context.Context, c *domain.ServiceCase, expected domain.CaseStatus) error {
	const query = `
        UPDATE service_cases SET subject=$1, description=$2, status=$3, priority=$4,
            assigned_engineer_id=$5, linked_product_id=$6, feedback_eligible=$7, updated_at=NOW()
        WHERE id=$8 AND status=$9`
	cmd, err := r.db.Exec(ctx, query,
		c.Subject,
		c.Description,
		c.Status,
		c.Priority,
		c.AssignedEngineerID,
		c.LinkedProductID,
		c.FeedbackEligible,
		c.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.ServiceCase, error) {
	return r.fetchSingle(ctx, `SELECT `+caseColumns+` FROM service_cases WHERE id=$1`, id)
}

func (r *caseRepository) GetByCaseNumber(ctx context.Context, number string) (*domain.ServiceCase, error) {
	return r.fetchSingle(ctx, `SELECT `+caseColumns+` FROM service_cases WHERE case_number=$1`, number)
}

func (r *caseRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceCase, error) {
	c, err := scanCase(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) ListWithFilter(ctx context.Context, filter CaseFilter) ([]domain.ServiceCase, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.IDs) > 0 {
		clauses = append(clauses, inClause("id", &args, filter.IDs))
	}
	if filter.ContactID != nil {
		args = append(args, *filter.ContactID)
		clauses = append(clauses, fmt.Sprintf("contact_id=$%d", len(args)))
	}
	if filter.AssignedEngineerID != nil {
		args = append(args, *filter.AssignedEngineerID)
		clauses = append(clauses, fmt.Sprintf("assigned_engineer_id=$%d", len(args)))
	}
	if filter.LinkedProductID != nil {
		args = append(args, *filter.LinkedProductID)
		clauses = append(clauses, fmt.Sprintf("linked_product_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, inClause("status", &args, filter.Statuses))
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, inClause("priority", &args, filter.Priorities))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.DeadlineBefore != nil {
		args = append(args, *filter.DeadlineBefore)
		clauses = append(clauses, fmt.Sprintf("sla_deadline < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	if filter.After != nil {
		clauses = append(clauses, seekClause("created_at", true, filter.After, &args))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset, 50, filter.After)
	query := fmt.Sprintf(`SELECT %s FROM service_cases WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d`,
		caseColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanCase(row rowScanner) (domain.ServiceCase, error) {
	var c domain.ServiceCase
	err := row.Scan(
		&c.ID,
		&c.CaseNumber,
		&c.ContactID,
		&c.Subject,
		&c.Description,
		&c.Status,
		&c.Priority,
		&c.AssignedEngineerID,
		&c.LinkedProductID,
		&c.FeedbackEligible,
		&c.SLADeadline,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
