package usecase_test

import (
	"context"
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

func TestReconciliationUseCase_MatchExactSubset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	p50 := h.registerPayment(t, number, "50000", date(2024, time.February, 20))
	p100 := h.registerPayment(t, number, "100000", date(2024, time.February, 20))
	p75 := h.registerPayment(t, number, "75000", date(2024, time.February, 20))

	movement, err := h.recon.RegisterMovement(ctx, usecase.RegisterMovementInput{
		Amount:       dec("150000"),
		ReportedDate: date(2024, time.February, 21),
		BatchID:      "B-1",
		Reference:    "EXTRACTO 0221",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationUnmatched, movement.ReconciliationState)

	outcome, err := h.recon.Match(ctx, usecase.MatchInput{MovementID: movement.ID})
	require.NoError(t, err)
	require.True(t, outcome.Result.Matched, outcome.Result.Message)
	assert.Equal(t, []int64{p50.ID, p100.ID}, outcome.Result.IDs)
	assert.NotZero(t, outcome.ReconciliationID)
	require.Len(t, outcome.Payments, 2)

	for _, id := range []int64{p50.ID, p100.ID} {
		p, err := h.payments.GetPayment(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ReconciliationMatched, p.ReconciliationState)
		require.NotNil(t, p.MovementID)
		assert.Equal(t, movement.ID, *p.MovementID)
		require.NotNil(t, p.ReconciliationID)
		assert.Equal(t, outcome.ReconciliationID, *p.ReconciliationID)
	}

	left, err := h.payments.GetPayment(ctx, p75.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReconciliationUnmatched, left.ReconciliationState)

	stored, err := h.recon.GetMovement(ctx, movement.ID)
	require.NoError(t, err)
	assert.True(t, stored.Matched())

	again, err := h.recon.Match(ctx, usecase.MatchInput{MovementID: movement.ID})
	require.NoError(t, err)
	assert.False(t, again.Result.Matched, "a reconciled movement is not matched twice")
	assert.Empty(t, again.Payments)

	last := h.store.Events()[len(h.store.Events())-1]
	assert.Equal(t, domain.EventTypeMovementReconciled, last.EventType)
}

func TestReconciliationUseCase_NoMatchChangesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	h.registerPayment(t, number, "50000", date(2024, time.February, 20))
	h.registerPayment(t, number, "100000", date(2024, time.February, 20))
	eventsBefore := len(h.store.Events())

	movement, err := h.recon.RegisterMovement(ctx, usecase.RegisterMovementInput{
		Amount:       dec("120000"),
		ReportedDate: date(2024, time.February, 21),
		BatchID:      "B-1",
	})
	require.NoError(t, err)

	outcome, err := h.recon.Match(ctx, usecase.MatchInput{MovementID: movement.ID})
	require.NoError(t, err)
	assert.False(t, outcome.Result.Matched)
	assert.NotEmpty(t, outcome.Result.Message)
	assert.Equal(t, 2, outcome.Result.PoolSize)

	stored, err := h.recon.GetMovement(ctx, movement.ID)
	require.NoError(t, err)
	assert.False(t, stored.Matched())
	assert.Len(t, h.store.Events(), eventsBefore)
}

func TestReconciliationUseCase_OtherBatchesAreIgnored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	number := h.disburseLoan(t, exampleLoanInput(date(2024, time.January, 10)))

	h.registerPayment(t, number, "150000", date(2024, time.February, 20))

	movement, err := h.recon.RegisterMovement(ctx, usecase.RegisterMovementInput{
		Amount:       dec("150000"),
		ReportedDate: date(2024, time.February, 21),
		BatchID:      "B-2",
	})
	require.NoError(t, err)

	outcome, err := h.recon.Match(ctx, usecase.MatchInput{MovementID: movement.ID})
	require.NoError(t, err)
	assert.False(t, outcome.Result.Matched)

	_, err = h.recon.Match(ctx, usecase.MatchInput{MovementID: 999999})
	require.ErrorIs(t, err, domain.ErrMovementNotFound)
}

func TestReconciliationUseCase_ConflictRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	txManager := mocks.NewMockTransactionManager(ctrl)
	tx := mocks.NewMockTransaction(ctrl)
	paymentRepo := mocks.NewMockPaymentRepository(ctrl)
	movementRepo := mocks.NewMockMovementRepository(ctrl)
	sequences := mocks.NewMockSequenceAllocator(ctrl)

	movement := &domain.BankMovement{
		ID:                  3,
		Amount:              dec("150000"),
		ReconciliationState: domain.ReconciliationUnmatched,
	}
	payments := []*domain.Payment{
		{ID: 11, Amount: dec("50000"), ReconciliationState: domain.ReconciliationUnmatched},
		{ID: 12, Amount: dec("100000"), ReconciliationState: domain.ReconciliationUnmatched},
	}

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	movementRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, int64(3)).Return(movement, nil)
	paymentRepo.EXPECT().ListUnmatchedForUpdate(gomock.Any(), tx, "").Return(payments, nil)
	sequences.EXPECT().Next(gomock.Any(), domain.SequenceSettlement).Return(int64(40), nil)
	paymentRepo.EXPECT().
		MarkMatched(gomock.Any(), tx, []int64{11, 12}, int64(40), int64(3), gomock.Any()).
		Return(int64(1), nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewReconciliationUseCase(txManager, paymentRepo, movementRepo, nil, sequences,
		&mocks.SequentialIDGenerator{}, domain.MatchOptions{Currency: "COP"}, nil, zerolog.Nop())

	_, err := uc.Match(context.Background(), usecase.MatchInput{MovementID: 3})
	require.ErrorIs(t, err, domain.ErrReconciliationConflict)
	assert.False(t, movement.Matched())
}
