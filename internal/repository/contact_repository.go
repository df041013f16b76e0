package repository

import (
	"context"

	"github.com/spec-kit/service-crm/internal/domain"
)

// ContactRepository defines read access for portal contacts.
type ContactRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
}

type contactRepository struct {
	db DBTX
}

// NewContactRepository returns a Postgres-backed implementation.
func NewContactRepository(db DBTX) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	const query = `SELECT id, name, email FROM contacts WHERE id=$1`
	var c domain.Contact
	if err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email); err != nil {
		return nil, err
	}
	return &c, nil
}
