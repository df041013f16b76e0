package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// CaseWriters are the repositories a case command writes through. Inside
// Transactor.InTx they share one transaction.
type CaseWriters struct {
	Cases      CaseRepository
	History    CaseHistoryRepository
	Dispatches DispatchRepository
}

// Transactor runs case writes atomically.
type Transactor interface {
	InTx(ctx context.Context, fn func(CaseWriters) error) error
}

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgxTransactor struct {
	db TxBeginner
}

// NewTransactor returns a Transactor that commits when fn succeeds and rolls
// back otherwise.
func NewTransactor(db TxBeginner) Transactor {
	return &pgxTransactor{db: db}
}

func (t *pgxTransactor) InTx(ctx context.Context, fn func(CaseWriters) error) error {
	return pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		return fn(CaseWriters{
			Cases:      NewCaseRepository(tx),
			History:    NewCaseHistoryRepository(tx),
			Dispatches: NewDispatchRepository(tx),
		})
	})
}
