package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
)

func TestLoanRepository_CreateCheckViolationIsInvalidTerms(t *testing.T) {
	mock := newMockPool(t)
	ctx := context.Background()

	mock.ExpectBegin()
	pgxTx, err := mock.Begin(ctx)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loans")).
		WillReturnError(&pgconn.PgError{
			Code:           pgErrCheckViolation,
			ConstraintName: "loans_billing_day_check",
			Message:        `new row for relation "loans" violates check constraint "loans_billing_day_check"`,
		})

	now := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	repo := NewLoanRepository(nil)
	err = repo.Create(ctx, &Tx{tx: pgxTx}, &domain.Loan{
		Number:           90001,
		DisbursementDate: now,
		Principal:        decimal.NewFromInt(1000),
		AnnualRate:       decimal.NewFromInt(24),
		TermMonths:       6,
		State:            domain.LoanStateElaboration,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTerms)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "loans_billing_day_check")
	assertExpectations(t, mock)
}

func TestTranslateLoanError(t *testing.T) {
	assert.NoError(t, translateLoanError(nil))

	boom := errors.New("connection reset")
	assert.Same(t, boom, translateLoanError(boom))

	unique := &pgconn.PgError{Code: pgErrUniqueViolation}
	assert.NotErrorIs(t, translateLoanError(unique), domain.ErrInvalidTerms)
}
