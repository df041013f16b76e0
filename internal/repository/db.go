package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/service-crm/internal/domain"
)

// DBTX is the subset of *pgxpool.Pool the repositories use. pgx.Tx satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Cursor is a keyset position: the sort key and id of the last row already
// read. A listing given a cursor returns only rows ordered after it, so rows
// inserted or removed meanwhile never shift the next page.
type Cursor struct {
	Key any
	ID  string
}

// CaseCursor positions after c in the newest-first case ordering.
func CaseCursor(c *domain.ServiceCase) *Cursor {
	if c == nil {
		return nil
	}
	return &Cursor{Key: c.CreatedAt, ID: c.ID}
}

// FeedbackCursor positions after f in the newest-first feedback ordering.
func FeedbackCursor(f *domain.FeedbackRecord) *Cursor {
	if f == nil {
		return nil
	}
	return &Cursor{Key: f.SubmittedAt, ID: f.ID}
}

// DispatchCursor positions after d in the schedule ordering.
func DispatchCursor(d *domain.DispatchRecord) *Cursor {
	if d == nil {
		return nil
	}
	return &Cursor{Key: d.ScheduledServiceDate, ID: d.ID}
}

// ProductCursor positions after p in the newest-first product ordering.
func ProductCursor(p *domain.RegisteredProduct) *Cursor {
	if p == nil {
		return nil
	}
	return &Cursor{Key: p.CreatedAt, ID: p.ID}
}

// EngineerCursor positions after e in the roster ordering.
func EngineerCursor(e *domain.Engineer) *Cursor {
	if e == nil {
		return nil
	}
	return &Cursor{Key: e.Name, ID: e.ID}
}

// seekClause appends the cursor to args and returns the predicate selecting
// rows after it for ORDER BY column (DESC when desc), id ASC.
func seekClause(column string, desc bool, after *Cursor, args *[]any) string {
	*args = append(*args, after.Key, after.ID)
	key, id := len(*args)-1, len(*args)
	op := ">"
	if desc {
		op = "<"
	}
	return fmt.Sprintf("(%s %s $%d OR (%s = $%d AND id > $%d))", column, op, key, column, key, id)
}

// inClause appends values to args and returns "column IN ($n,...)".
func inClause[T any](column string, args *[]any, values []T) string {
	marks := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		marks[i] = fmt.Sprintf("$%d", len(*args))
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ","))
}

// normalizePage applies the fallback limit. A keyset cursor replaces the offset.
func normalizePage(limit, offset, fallback int, after *Cursor) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 || after != nil {
		offset = 0
	}
	return limit, offset
}
