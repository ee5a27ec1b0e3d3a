package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/loanledger/internal/domain"
)

// DefaultSequenceLockTimeout bounds how long a caller waits for the counter row.
const DefaultSequenceLockTimeout = 5 * time.Second

const ensureSequenceRow = `INSERT INTO sequence_counters (id) VALUES (1) ON CONFLICT (id) DO NOTHING`

type sequencePool interface {
	Begin(context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SequenceRepository implements usecase.SequenceRepository over the singleton
// sequence_counters row. The SQL is hand-written because the counter column
// is chosen at runtime.
type SequenceRepository struct {
	pool        sequencePool
	lockTimeout time.Duration
}

// NewSequenceRepository creates a new SequenceRepository.
func NewSequenceRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *SequenceRepository {
	return newSequenceRepositoryWithPool(pool, lockTimeout)
}

func newSequenceRepositoryWithPool(pool sequencePool, lockTimeout time.Duration) *SequenceRepository {
	if lockTimeout <= 0 {
		lockTimeout = DefaultSequenceLockTimeout
	}
	return &SequenceRepository{pool: pool, lockTimeout: lockTimeout}
}

// Advance adds count to the counter and returns the first reserved value.
func (r *SequenceRepository) Advance(ctx context.Context, d domain.SequenceDomain, count int64) (int64, error) {
	if count < 1 {
		return 0, fmt.Errorf("%w: advance count must be positive", domain.ErrValidation)
	}

	var first int64
	err := r.withLockedCounter(ctx, d, func(tx pgx.Tx, column string, current int64) error {
		if _, err := tx.Exec(ctx, "UPDATE sequence_counters SET "+column+" = $1 WHERE id = 1", current+count); err != nil {
			return err
		}
		first = current + 1
		return nil
	})
	if err != nil {
		return 0, err
	}

	return first, nil
}

// Set overrides a counter. Moving it backwards is rejected.
func (r *SequenceRepository) Set(ctx context.Context, d domain.SequenceDomain, value int64) error {
	return r.withLockedCounter(ctx, d, func(tx pgx.Tx, column string, current int64) error {
		if err := domain.CheckAdvance(d, current, value); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "UPDATE sequence_counters SET "+column+" = $1 WHERE id = 1", value)
		return err
	})
}

// Current reads every counter without locking. A missing row reads as the
// initial values.
func (r *SequenceRepository) Current(ctx context.Context) (domain.SequenceCounters, error) {
	columns := make([]string, len(domain.SequenceDomains))
	values := make([]int64, len(domain.SequenceDomains))
	dest := make([]any, len(domain.SequenceDomains))
	for i, d := range domain.SequenceDomains {
		columns[i] = pgx.Identifier{string(d)}.Sanitize()
		dest[i] = &values[i]
	}

	query := "SELECT " + strings.Join(columns, ", ") + " FROM sequence_counters WHERE id = 1"
	if err := r.pool.QueryRow(ctx, query).Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultSequenceCounters(), nil
		}
		return nil, err
	}

	counters := make(domain.SequenceCounters, len(values))
	for i, d := range domain.SequenceDomains {
		counters[d] = values[i]
	}

	return counters, nil
}

// withLockedCounter runs fn in a short transaction holding the row lock.
// Lock waits beyond lockTimeout surface as ErrConcurrencyTimeout.
func (r *SequenceRepository) withLockedCounter(ctx context.Context, d domain.SequenceDomain, fn func(tx pgx.Tx, column string, current int64) error) error {
	if _, err := domain.ParseSequenceDomain(string(d)); err != nil {
		return err
	}
	column := pgx.Identifier{string(d)}.Sanitize()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.translate(ctx, d, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return r.translate(ctx, d, err)
	}
	if _, err := tx.Exec(ctx, ensureSequenceRow); err != nil {
		return r.translate(ctx, d, err)
	}

	var current int64
	if err := tx.QueryRow(ctx, "SELECT "+column+" FROM sequence_counters WHERE id = 1 FOR UPDATE").Scan(&current); err != nil {
		return r.translate(ctx, d, err)
	}

	if err := fn(tx, column, current); err != nil {
		return r.translate(ctx, d, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return r.translate(ctx, d, err)
	}
	committed = true

	return nil
}

func (r *SequenceRepository) translate(ctx context.Context, d domain.SequenceDomain, err error) error {
	if errors.Is(err, domain.ErrValidation) {
		return err
	}
	if isLockTimeout(ctx, err) {
		return fmt.Errorf("%w: %s after %s", domain.ErrConcurrencyTimeout, d, r.lockTimeout)
	}
	return fmt.Errorf("sequence %s: %w", d, err)
}
