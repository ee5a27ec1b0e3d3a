package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

func (h *harness) registerPayment(t *testing.T, loanNumber int64, amount string, reported time.Time) *domain.Payment {
	t.Helper()
	p, err := h.payments.RegisterPayment(context.Background(), usecase.RegisterPaymentInput{
		LoanNumber:   loanNumber,
		Amount:       dec(amount),
		ReportedDate: reported,
		SourceFile:   "pagos_20240220.csv",
		BatchID:      "B-1",
	})
	require.NoError(t, err)
	return p
}

func TestPaymentUseCase_ApplyOldestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	payment := h.registerPayment(t, number, "500000", date(2024, time.February, 20))
	assert.Equal(t, domain.ReconciliationUnmatched, payment.ReconciliationState)

	result, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: payment.ID})
	require.NoError(t, err)

	assert.True(t, result.Applied.Equal(dec("500000")))
	assert.True(t, result.Residual.IsZero())
	require.Len(t, result.Records, 2)

	first, second := result.Records[0], result.Records[1]
	assert.Equal(t, domain.ConceptPlannedCapital, first.Concept)
	assert.True(t, first.Amount.Equal(dec("400000")), "installment 1 capital is settled in full")
	assert.Equal(t, domain.ConceptPlannedCapital, second.Concept)
	assert.True(t, second.Amount.Equal(dec("100000")), "installment 2 capital takes the rest")
	assert.Equal(t, first.OperationID, second.OperationID)

	settled, ok := h.store.Entry(first.EntryID)
	require.True(t, ok)
	assert.Equal(t, domain.EntryStateSettled, settled.State)

	partial, ok := h.store.Entry(second.EntryID)
	require.True(t, ok)
	assert.Equal(t, domain.EntryStatePartiallySettled, partial.State)
	assert.True(t, partial.Outstanding().Equal(dec("207453.43")))

	stored, err := h.payments.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AppliedAt)
	assert.True(t, stored.AppliedAmount.Equal(dec("500000")))

	records, err := h.payments.ListApplications(ctx, payment.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: payment.ID})
	require.ErrorIs(t, err, domain.ErrPaymentAlreadyApplied)
}

func TestPaymentUseCase_ApplyReturnsResidual(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	payment := h.registerPayment(t, number, "800000", date(2024, time.February, 20))

	result, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: payment.ID})
	require.NoError(t, err)

	// 400,000 + 307,453.43 capital + 32,000 interest are due by Feb 20.
	assert.True(t, result.Applied.Equal(dec("739453.43")), "applied = %s", result.Applied)
	assert.True(t, result.Residual.Equal(dec("60546.57")), "residual = %s", result.Residual)
	require.Len(t, result.Records, 3)
	assert.Equal(t, domain.ConceptPlannedInterest, result.Records[2].Concept)

	pending, err := h.ledger.QueryPending(ctx, number, date(2024, time.February, 20))
	require.NoError(t, err)
	assert.Empty(t, pending)

	events := h.store.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.EventTypePaymentApplied, last.EventType)
	assert.Equal(t, "60546.57", last.Payload["residual"])
}

func TestPaymentUseCase_ApplyGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	_, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: 424242})
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)

	_, err = h.payments.RegisterPayment(ctx, usecase.RegisterPaymentInput{
		LoanNumber:   number,
		Amount:       dec("1000"),
		ReportedDate: date(2024, time.January, 5),
	})
	require.ErrorIs(t, err, domain.ErrInvalidDate, "payment before disbursement")

	_, err = h.payments.RegisterPayment(ctx, usecase.RegisterPaymentInput{
		LoanNumber:   number,
		Amount:       dec("-5"),
		ReportedDate: date(2024, time.February, 20),
	})
	require.ErrorIs(t, err, domain.ErrValidation)

	unmatched := h.registerPayment(t, number, "1000", date(2024, time.February, 20))
	_, err = h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: unmatched.ID, RequireMatched: true})
	require.ErrorIs(t, err, domain.ErrPaymentNotMatched)

	// Paid off through February, nothing else is due by then.
	full := h.registerPayment(t, number, "739453.43", date(2024, time.February, 20))
	_, err = h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: full.ID})
	require.NoError(t, err)

	_, err = h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: unmatched.ID})
	require.ErrorIs(t, err, domain.ErrNothingToApply)

	later := date(2024, time.March, 20)
	result, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: unmatched.ID, AsOf: &later})
	require.NoError(t, err)
	assert.True(t, result.Applied.Equal(dec("1000")))
}

func TestPaymentUseCase_ApplyRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))
	payment := h.registerPayment(t, number, "500000", date(2024, time.February, 20))

	before := h.store.AllEntries()
	h.store.FailOn("applications.CreateBatch", errors.New("disk full"))

	_, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: payment.ID})
	require.Error(t, err)

	assert.Equal(t, before, h.store.AllEntries(), "no entry keeps a partial settlement")
	assert.Empty(t, h.store.ApplicationRecords())

	stored, err := h.payments.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AppliedAt)
}

func TestPaymentUseCase_ConcurrentApplyNeverOverSettles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	const workers = 8
	ids := make([]int64, workers)
	for i := range ids {
		ids[i] = h.registerPayment(t, number, "150000", date(2024, time.February, 20)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := h.payments.Apply(ctx, usecase.ApplyPaymentInput{PaymentID: id})
			if err != nil && !errors.Is(err, domain.ErrNothingToApply) {
				t.Errorf("Apply(%d): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	applied := dec("0")
	for _, rec := range h.store.ApplicationRecords() {
		applied = applied.Add(rec.Amount)
	}
	assert.True(t, applied.Equal(dec("739453.43")), "applied = %s", applied)

	for _, e := range h.store.AllEntries() {
		assert.False(t, e.SettledAmount.GreaterThan(e.Amount), "entry %d over-settled", e.ID)
	}
}
