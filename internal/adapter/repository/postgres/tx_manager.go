package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanledger/internal/usecase"
)

type pgxPool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ledgerTxOptions is read committed: every use case takes explicit row locks
// (loan, payment, movement, entries) before it writes.
var ledgerTxOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// TxManager implements usecase.TransactionManager. Repositories unwrap the
// returned *Tx to run their queries on the same connection.
type TxManager struct {
	pool pgxPool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManagerWithPool(pool)
}

func newTxManagerWithPool(pool pgxPool) *TxManager {
	return &TxManager{pool: pool}
}

// Begin starts a transaction. A context past its deadline surfaces as
// domain.ErrConcurrencyTimeout.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, ledgerTxOptions)
	if err != nil {
		return nil, translateTxError(ctx, err)
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	return translateTxError(ctx, t.tx.Commit(ctx))
}

// Rollback rolls back the transaction. Use cases defer it unconditionally, so
// rolling back a committed transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}
