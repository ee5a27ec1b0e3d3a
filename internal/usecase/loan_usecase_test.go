package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
	"github.com/iho/loanledger/internal/usecase/mocks"
)

func TestLoanUseCase_DisbursePostsScheduleAndMemo(t *testing.T) {
	h := newHarness(t)
	ctx := domain.WithActor(context.Background(), "analyst")

	loan, err := h.loans.CreateLoan(ctx, exampleLoanInput(date(2024, time.January, 10)))
	require.NoError(t, err)
	assert.Equal(t, int64(90001), loan.Number)
	assert.Equal(t, domain.LoanStateElaboration, loan.State)
	assert.Equal(t, "analyst", loan.CreatedBy)

	_, err = h.loans.Disburse(ctx, usecase.DisburseInput{LoanNumber: loan.Number})
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition, "disbursement requires TO_DISBURSE")

	_, err = h.loans.Submit(ctx, loan.Number)
	require.NoError(t, err)

	result, err := h.loans.Disburse(ctx, usecase.DisburseInput{LoanNumber: loan.Number, Reference: "DESEMBOLSO"})
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStateDisbursed, result.Loan.State)
	require.Len(t, result.Schedule, 6)
	require.NotNil(t, result.Loan.MaturityDate)
	assert.True(t, result.Loan.MaturityDate.Equal(date(2024, time.June, 15)))

	// memo + installment 1 capital + (capital, interest) for five tail installments
	require.Len(t, result.Entries, 12)

	memo := result.Entries[0]
	assert.Equal(t, domain.ConceptDisbursement, memo.Concept)
	assert.Equal(t, int64(0), memo.OperationSeq)
	assert.Equal(t, domain.EntryStateSettled, memo.State)
	assert.True(t, memo.Amount.Equal(dec("2000000")))

	for i, e := range result.Entries {
		assert.Equal(t, result.Entries[0].ID+int64(i), e.ID, "entry ids come from one contiguous block")
		assert.Equal(t, memo.OperationID, e.OperationID, "one operation per disbursement")
		assert.Equal(t, int64(i), e.OperationSeq)
		assert.Equal(t, "analyst", e.CreatedBy)
	}

	assert.Len(t, h.store.AllEntries(), 12)

	events := h.store.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, domain.EventTypeLoanDisbursed, last.EventType)
	assert.Equal(t, float64(12), last.Payload["entries_posted"])
}

func TestLoanUseCase_TermsImmutableAfterDisbursement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	term := 12
	_, err := h.loans.UpdateTerms(ctx, number, domain.LoanTermsUpdate{TermMonths: &term})
	require.ErrorIs(t, err, domain.ErrLoanImmutable)
	require.ErrorIs(t, err, domain.ErrValidation)

	loan, err := h.loans.GetLoan(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, 6, loan.TermMonths)
}

func TestLoanUseCase_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	loan, err := h.loans.Cancel(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateCancelled, loan.State)

	_, err = h.loans.SetAccrualSuspended(ctx, number, true)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition, "cancelled loans cannot be suspended")

	loan, err = h.loans.Reinstate(ctx, number)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateDisbursed, loan.State)

	loan, err = h.loans.SetAccrualSuspended(ctx, number, true)
	require.NoError(t, err)
	assert.True(t, loan.AccrualSuspended)

	loan, err = h.loans.WriteOff(ctx, number)
	require.NoError(t, err)
	assert.True(t, loan.WrittenOff)
	assert.False(t, loan.AccruesInterest())

	_, err = h.loans.Submit(ctx, number)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = h.loans.GetLoan(ctx, 12345)
	require.ErrorIs(t, err, domain.ErrLoanNotFound)
}

func TestLoanUseCase_CreateLoanRejectsInvalidTerms(t *testing.T) {
	h := newHarness(t)
	input := exampleLoanInput(date(2024, time.January, 10))
	input.FirstInstallment = dec("2500000")

	_, err := h.loans.CreateLoan(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrInvalidTerms)

	counters, err := h.sequences.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.LoanNumberFloor, counters[domain.SequenceLoan], "no number is consumed by a rejected loan")
}

func TestLoanUseCase_DisburseRollsBackOnDuplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	txManager := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	loanRepo := mocks.NewMockLoanRepository(ctrl)
	ledgerRepo := mocks.NewMockLedgerEntryRepository(ctrl)
	sequences := mocks.NewMockSequenceAllocator(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	loan := &domain.Loan{
		Number:           90001,
		DisbursementDate: date(2024, time.January, 10),
		Principal:        dec("2000000"),
		FirstInstallment: dec("400000"),
		AnnualRate:       dec("24"),
		TermMonths:       6,
		BillingDay:       15,
		State:            domain.LoanStateToDisburse,
	}

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	loanRepo.EXPECT().GetByNumberForUpdate(gomock.Any(), tx, int64(90001)).Return(loan, nil)
	sequences.EXPECT().Next(gomock.Any(), domain.SequenceOperation).Return(int64(7), nil)
	sequences.EXPECT().Reserve(gomock.Any(), domain.SequenceTransaction, 12).Return(int64(100), nil)
	ledgerRepo.EXPECT().CreateBatch(gomock.Any(), tx, gomock.Len(12)).Return(domain.ErrDuplicateLedgerEntry)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewLoanUseCase(txManager, loanRepo, ledgerRepo, nil, sequences, idGen, nil, nil, zerolog.Nop())

	_, err := uc.Disburse(context.Background(), usecase.DisburseInput{LoanNumber: 90001})
	if !errors.Is(err, domain.ErrDuplicateLedgerEntry) {
		t.Fatalf("expected ErrDuplicateLedgerEntry, got %v", err)
	}
}

func TestLoanUseCase_ScheduleUsesCacheForDisbursedLoans(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)
	store := mocks.NewMemoryStore()
	loan := &domain.Loan{
		Number:           90050,
		DisbursementDate: date(2024, time.January, 10),
		Principal:        dec("1000000"),
		FirstInstallment: dec("0"),
		AnnualRate:       dec("24"),
		TermMonths:       4,
		BillingDay:       5,
		State:            domain.LoanStateDisbursed,
	}
	require.NoError(t, store.Loans().Create(context.Background(), nil, loan))

	var cached []byte
	cache.EXPECT().Get(gomock.Any(), "schedule:90050").Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), "schedule:90050", gomock.Any(), usecase.ScheduleCacheTTL).
		DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			cached = value
			return nil
		})

	uc := usecase.NewLoanUseCase(store.TxManager(), store.Loans(), store.Entries(), nil, nil,
		&mocks.SequentialIDGenerator{}, cache, nil, zerolog.Nop())

	lines, err := uc.Schedule(context.Background(), 90050)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	require.NotEmpty(t, cached)

	cache.EXPECT().Get(gomock.Any(), "schedule:90050").Return(cached, nil)
	again, err := uc.Schedule(context.Background(), 90050)
	require.NoError(t, err)
	require.Len(t, again, 4)
	assert.True(t, again[3].Capital.Equal(lines[3].Capital))
}
