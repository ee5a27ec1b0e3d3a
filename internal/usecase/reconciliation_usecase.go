package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase matches bank movements against unmatched payments.
type ReconciliationUseCase struct {
	txManager    TransactionManager
	paymentRepo  PaymentRepository
	movementRepo MovementRepository
	outboxRepo   OutboxRepository
	sequences    SequenceAllocator
	idGen        IDGenerator
	options      domain.MatchOptions
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	paymentRepo PaymentRepository,
	movementRepo MovementRepository,
	outboxRepo OutboxRepository,
	sequences SequenceAllocator,
	idGen IDGenerator,
	options domain.MatchOptions,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager:    txManager,
		paymentRepo:  paymentRepo,
		movementRepo: movementRepo,
		outboxRepo:   outboxRepo,
		sequences:    sequences,
		idGen:        idGen,
		options:      options,
		metrics:      m,
		logger:       logger.With().Str("component", "reconciliation").Logger(),
	}
}

// RegisterMovementInput represents one bank statement line.
type RegisterMovementInput struct {
	ReportedDate time.Time
	Amount       decimal.Decimal
	BatchID      string
	Reference    string
}

// MatchInput represents input for reconciling one movement.
type MatchInput struct {
	MovementID int64
}

// MatchOutcome is the result of a reconciliation attempt.
type MatchOutcome struct {
	Movement         *domain.BankMovement
	Payments         []*domain.Payment
	Result           domain.MatchResult
	ReconciliationID int64
}

// RegisterMovement records a bank movement as UNMATCHED.
func (uc *ReconciliationUseCase) RegisterMovement(ctx context.Context, input RegisterMovementInput) (*domain.BankMovement, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.ReportedDate.IsZero() {
		return nil, fmt.Errorf("%w: reported date is required", domain.ErrInvalidDate)
	}
	if err := domain.ValidateReference(input.Reference); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.BatchID); err != nil {
		return nil, err
	}

	id, err := uc.sequences.Next(ctx, domain.SequenceMovement)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	movement := &domain.BankMovement{
		ID:                  id,
		Amount:              input.Amount,
		ReportedDate:        domain.DateOnly(input.ReportedDate),
		BatchID:             input.BatchID,
		Reference:           input.Reference,
		ReconciliationState: domain.ReconciliationUnmatched,
		CreatedAt:           time.Now().UTC(),
	}
	if err := uc.movementRepo.Create(txCtx, tx, movement); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return movement, nil
}

// GetMovement retrieves a movement by ID.
func (uc *ReconciliationUseCase) GetMovement(ctx context.Context, id int64) (*domain.BankMovement, error) {
	return uc.movementRepo.GetByID(ctx, id)
}

// Match looks for a subset of unmatched payments whose amounts add up to the
// movement amount. A failed match is a normal outcome and changes nothing.
// Matching an already reconciled movement returns a negative outcome, so
// retries are harmless.
func (uc *ReconciliationUseCase) Match(ctx context.Context, input MatchInput) (*MatchOutcome, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	movement, err := uc.movementRepo.GetByIDForUpdate(txCtx, tx, input.MovementID)
	if err != nil {
		return nil, err
	}
	if movement.Matched() {
		return &MatchOutcome{
			Movement: movement,
			Result: domain.MatchResult{
				Message: fmt.Sprintf("movement %d is already reconciled", movement.ID),
			},
		}, nil
	}

	payments, err := uc.paymentRepo.ListUnmatchedForUpdate(txCtx, tx, movement.BatchID)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.MatchCandidate, len(payments))
	byID := make(map[int64]*domain.Payment, len(payments))
	for i, p := range payments {
		candidates[i] = domain.MatchCandidate{ID: p.ID, Amount: p.Amount}
		byID[p.ID] = p
	}

	result := domain.MatchExactSum(movement.Amount, candidates, uc.options)
	uc.observe(result)

	outcome := &MatchOutcome{Movement: movement, Result: result}
	if !result.Matched {
		uc.logger.Info().
			Int64("movement_id", movement.ID).
			Int("pool_size", result.PoolSize).
			Msg(result.Message)
		return outcome, nil
	}

	reconciliationID, err := uc.sequences.Next(txCtx, domain.SequenceSettlement)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	changed, err := uc.paymentRepo.MarkMatched(txCtx, tx, result.IDs, reconciliationID, movement.ID, now)
	if err != nil {
		return nil, err
	}
	if changed != int64(len(result.IDs)) {
		return nil, fmt.Errorf("%w: expected %d payments, updated %d", domain.ErrReconciliationConflict, len(result.IDs), changed)
	}

	if err := uc.movementRepo.MarkMatched(txCtx, tx, movement.ID, reconciliationID, now); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypeMovement, movement.ID,
		domain.EventTypeMovementReconciled, domain.MovementReconciledEvent{
			MovementID:       movement.ID,
			ReconciliationID: reconciliationID,
			PaymentIDs:       result.IDs,
			Amount:           movement.Amount.String(),
			Strategy:         result.Strategy,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	movement.ReconciliationState = domain.ReconciliationMatched
	movement.ReconciliationID = &reconciliationID
	movement.MatchedAt = &now

	outcome.ReconciliationID = reconciliationID
	for _, id := range result.IDs {
		p := byID[id]
		p.ReconciliationState = domain.ReconciliationMatched
		p.ReconciliationID = &reconciliationID
		p.MovementID = &movement.ID
		p.MatchedAt = &now
		outcome.Payments = append(outcome.Payments, p)
	}

	return outcome, nil
}

func (uc *ReconciliationUseCase) observe(result domain.MatchResult) {
	if uc.metrics == nil {
		return
	}
	status := "unmatched"
	if result.Matched {
		status = "matched"
	}
	strategy := result.Strategy
	if strategy == "" {
		strategy = "none"
	}
	uc.metrics.Reconciliations.WithLabelValues(strategy, status).Inc()
	uc.metrics.CandidatePool.Observe(float64(result.PoolSize))
}
