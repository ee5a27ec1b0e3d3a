package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/loanledger/internal/domain"
)

// PostgreSQL error codes translated into domain errors.
const (
	pgErrUniqueViolation  = "23505"
	pgErrCheckViolation   = "23514"
	pgErrLockNotAvailable = "55P03"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgErrUniqueViolation
}

func isCheckViolation(err error) bool {
	return pgErrorCode(err) == pgErrCheckViolation
}

// isLockTimeout reports whether err means the lock wait gave up, either
// through lock_timeout or the caller's deadline.
func isLockTimeout(ctx context.Context, err error) bool {
	if pgErrorCode(err) == pgErrLockNotAvailable {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func translateLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return errors.Join(domain.ErrDuplicateLedgerEntry, err)
	}
	return err
}

// translateLoanError surfaces a loans CHECK violation as invalid terms.
func translateLoanError(err error) error {
	if err == nil {
		return nil
	}
	if isCheckViolation(err) {
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return fmt.Errorf("%w: %s", domain.ErrInvalidTerms, pgErr.ConstraintName)
	}
	return err
}

// translateTxError maps lock and deadline failures at transaction boundaries
// to domain.ErrConcurrencyTimeout and keeps the driver error in the chain.
func translateTxError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if isLockTimeout(ctx, err) {
		return errors.Join(domain.ErrConcurrencyTimeout, err)
	}
	return err
}
