package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/service-crm/internal/domain"
)

// FeedbackFilter narrows feedback listings.
type FeedbackFilter struct {
	CaseIDs        []string
	SubmittedAfter *time.Time
	After          *Cursor
	Limit          int
	Offset         int
}

// FeedbackRepository manages customer feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.FeedbackRecord) error
	List(ctx context.Context, filter FeedbackFilter) ([]domain.FeedbackRecord, error)
}

type feedbackRepository struct {
	db DBTX
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(db DBTX) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.FeedbackRecord) error {
	const query = `
        INSERT INTO feedback_records (service_case_id, customer_name, customer_email, rating, comments)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, submitted_at`
	return r.db.QueryRow(ctx, query,
		feedback.ServiceCaseID,
		feedback.CustomerName,
		feedback.CustomerEmail,
		feedback.Rating,
		feedback.Comments,
	).Scan(&feedback.ID, &feedback.SubmittedAt)
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]domain.FeedbackRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.CaseIDs) > 0 {
		clauses = append(clauses, inClause("service_case_id", &args, filter.CaseIDs))
	}
	if filter.SubmittedAfter != nil {
		args = append(args, *filter.SubmittedAfter)
		clauses = append(clauses, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if filter.After != nil {
		clauses = append(clauses, seekClause("submitted_at", true, filter.After, &args))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset, 500, filter.After)
	query := fmt.Sprintf(`
        SELECT id, service_case_id, customer_name, customer_email, rating, comments, submitted_at
        FROM feedback_records WHERE %s ORDER BY submitted_at DESC, id ASC LIMIT %d OFFSET %d`,
		strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FeedbackRecord
	for rows.Next() {
		var f domain.FeedbackRecord
		if err := rows.Scan(
			&f.ID,
			&f.ServiceCaseID,
			&f.CustomerName,
			&f.CustomerEmail,
			&f.Rating,
			&f.Comments,
			&f.SubmittedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
