package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// LoanUseCase handles loan origination, disbursement and lifecycle changes.
type LoanUseCase struct {
	txManager  TransactionManager
	loanRepo   LoanRepository
	ledgerRepo LedgerEntryRepository
	outboxRepo OutboxRepository
	sequences  SequenceAllocator
	idGen      IDGenerator
	cache      Cache
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewLoanUseCase creates a new LoanUseCase. cache may be nil.
func NewLoanUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	ledgerRepo LedgerEntryRepository,
	outboxRepo OutboxRepository,
	sequences SequenceAllocator,
	idGen IDGenerator,
	cache Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LoanUseCase {
	return &LoanUseCase{
		txManager:  txManager,
		loanRepo:   loanRepo,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		sequences:  sequences,
		idGen:      idGen,
		cache:      cache,
		metrics:    m,
		logger:     logger.With().Str("component", "loan").Logger(),
	}
}

// CreateLoanInput represents input for originating a loan.
type CreateLoanInput struct {
	DisbursementDate   time.Time
	Principal          decimal.Decimal
	FirstInstallment   decimal.Decimal
	AnnualRate         decimal.Decimal
	InsurancePerPeriod decimal.Decimal
	FeePerPeriod       decimal.Decimal
	TermMonths         int
	BillingDay         int
}

// DisburseInput represents input for disbursing a loan.
type DisburseInput struct {
	DisbursementDate *time.Time
	Reference        string
	LoanNumber       int64
}

// DisburseResult is what a disbursement posted.
type DisburseResult struct {
	Loan     *domain.Loan
	Schedule []domain.InstallmentLine
	Entries  []*domain.LedgerEntry
}

// PreviewSchedule generates a schedule without persisting anything.
func (uc *LoanUseCase) PreviewSchedule(terms domain.ScheduleTerms) ([]domain.InstallmentLine, error) {
	return domain.GenerateSchedule(terms)
}

// CreateLoan originates a loan in ELABORATION.
func (uc *LoanUseCase) CreateLoan(ctx context.Context, input CreateLoanInput) (*domain.Loan, error) {
	loan := &domain.Loan{
		DisbursementDate:   domain.DateOnly(input.DisbursementDate),
		Principal:          input.Principal,
		FirstInstallment:   input.FirstInstallment,
		AnnualRate:         input.AnnualRate,
		InsurancePerPeriod: input.InsurancePerPeriod,
		FeePerPeriod:       input.FeePerPeriod,
		TermMonths:         input.TermMonths,
		BillingDay:         input.BillingDay,
		State:              domain.LoanStateElaboration,
		CreatedBy:          actorFrom(ctx),
	}
	if err := loan.ScheduleTerms().Validate(); err != nil {
		return nil, err
	}

	number, err := uc.sequences.Next(ctx, domain.SequenceLoan)
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

	now := time.Now().UTC()
	loan.Number = number
	loan.CreatedAt = now
	loan.UpdatedAt = now

	if err := uc.loanRepo.Create(txCtx, tx, loan); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypeLoan, loan.Number,
		domain.EventTypeLoanCreated, map[string]any{
			"loan_number": loan.Number,
			"principal":   loan.Principal.String(),
			"term_months": loan.TermMonths,
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansCreated.Inc()
	}

	return loan, nil
}

// GetLoan retrieves a loan by number.
func (uc *LoanUseCase) GetLoan(ctx context.Context, number int64) (*domain.Loan, error) {
	return uc.loanRepo.GetByNumber(ctx, number)
}

// ListLoans lists loans with pagination.
func (uc *LoanUseCase) ListLoans(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	return uc.loanRepo.List(ctx, limit, offset)
}

// UpdateTerms changes loan terms while they are still editable.
func (uc *LoanUseCase) UpdateTerms(ctx context.Context, number int64, update domain.LoanTermsUpdate) (*domain.Loan, error) {
	return uc.mutate(ctx, number, "", func(loan *domain.Loan, now time.Time) error {
		return loan.ApplyTerms(update, now)
	})
}

// Submit moves a loan from ELABORATION to TO_DISBURSE.
func (uc *LoanUseCase) Submit(ctx context.Context, number int64) (*domain.Loan, error) {
	return uc.transition(ctx, number, domain.LoanStateToDisburse)
}

// Cancel administratively cancels a disbursed loan.
func (uc *LoanUseCase) Cancel(ctx context.Context, number int64) (*domain.Loan, error) {
	return uc.transition(ctx, number, domain.LoanStateCancelled)
}

// Reinstate reverts a cancellation.
func (uc *LoanUseCase) Reinstate(ctx context.Context, number int64) (*domain.Loan, error) {
	return uc.transition(ctx, number, domain.LoanStateDisbursed)
}

// SetAccrualSuspended toggles interest accrual on a disbursed loan.
func (uc *LoanUseCase) SetAccrualSuspended(ctx context.Context, number int64, suspended bool) (*domain.Loan, error) {
	return uc.mutate(ctx, number, domain.EventTypeLoanStateChanged, func(loan *domain.Loan, now time.Time) error {
		if loan.State != domain.LoanStateDisbursed {
			return fmt.Errorf("%w: loan %d is %s", domain.ErrInvalidStateTransition, loan.Number, loan.State)
		}
		loan.AccrualSuspended = suspended
		loan.UpdatedAt = now
		return nil
	})
}

// WriteOff flags a disbursed loan as written off. Written-off loans stop accruing.
func (uc *LoanUseCase) WriteOff(ctx context.Context, number int64) (*domain.Loan, error) {
	return uc.mutate(ctx, number, domain.EventTypeLoanStateChanged, func(loan *domain.Loan, now time.Time) error {
		if loan.State != domain.LoanStateDisbursed {
			return fmt.Errorf("%w: loan %d is %s", domain.ErrInvalidStateTransition, loan.Number, loan.State)
		}
		loan.WrittenOff = true
		loan.UpdatedAt = now
		return nil
	})
}

func (uc *LoanUseCase) transition(ctx context.Context, number int64, next domain.LoanState) (*domain.Loan, error) {
	loan, err := uc.mutate(ctx, number, domain.EventTypeLoanStateChanged, func(loan *domain.Loan, now time.Time) error {
		return loan.TransitionTo(next, now)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoanTransitions.WithLabelValues(string(next)).Inc()
	}
	return loan, nil
}

// mutate locks the loan, applies fn and persists the result. An empty
// eventType skips the outbox event.
func (uc *LoanUseCase) mutate(
	ctx context.Context,
	number int64,
	eventType string,
	fn func(loan *domain.Loan, now time.Time) error,
) (*domain.Loan, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	loan, err := uc.loanRepo.GetByNumberForUpdate(txCtx, tx, number)
	if err != nil {
		return nil, err
	}

	previous := loan.State
	now := time.Now().UTC()
	if err := fn(loan, now); err != nil {
		return nil, err
	}

	if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
		return nil, err
	}

	if eventType != "" {
		if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypeLoan, loan.Number,
			eventType, map[string]any{
				"loan_number":       loan.Number,
				"from":              string(previous),
				"to":                string(loan.State),
				"accrual_suspended": loan.AccrualSuspended,
				"written_off":       loan.WrittenOff,
				"actor":             actorFrom(ctx),
			}, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.invalidateSchedule(ctx, loan.Number)
	return loan, nil
}

// Disburse posts the disbursement and the planned schedule, then marks the
// loan DISBURSED, all in one transaction.
func (uc *LoanUseCase) Disburse(ctx context.Context, input DisburseInput) (*DisburseResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	loan, err := uc.loanRepo.GetByNumberForUpdate(txCtx, tx, input.LoanNumber)
	if err != nil {
		return nil, err
	}
	if loan.State != domain.LoanStateToDisburse {
		return nil, fmt.Errorf("%w: loan %d is %s", domain.ErrInvalidStateTransition, loan.Number, loan.State)
	}

	now := time.Now().UTC()
	if input.DisbursementDate != nil {
		if err := loan.ApplyTerms(domain.LoanTermsUpdate{DisbursementDate: input.DisbursementDate}, now); err != nil {
			return nil, err
		}
	}

	schedule, err := domain.GenerateSchedule(loan.ScheduleTerms())
	if err != nil {
		return nil, err
	}

	operationID, err := uc.sequences.Next(txCtx, domain.SequenceOperation)
	if err != nil {
		return nil, err
	}

	pc := domain.PostingContext{
		ProcessDate: domain.DateOnly(now),
		CreatedAt:   now,
		CreatedBy:   actorFrom(ctx),
		Reference:   input.Reference,
		OperationID: operationID,
	}

	entries := []*domain.LedgerEntry{
		domain.MemoEntry(loan.Number, domain.ConceptDisbursement, loan.Principal, loan.DisbursementDate, 0, pc),
	}
	entries = append(entries, domain.PlannedEntries(loan.Number, schedule, pc)...)

	firstID, err := uc.sequences.Reserve(txCtx, domain.SequenceTransaction, len(entries))
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		e.ID = firstID + int64(i)
	}

	if err := uc.ledgerRepo.CreateBatch(txCtx, tx, entries); err != nil {
		return nil, err
	}

	maturity := schedule[len(schedule)-1].DueDate
	loan.MaturityDate = &maturity
	if err := loan.TransitionTo(domain.LoanStateDisbursed, now); err != nil {
		return nil, err
	}
	if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypeLoan, loan.Number,
		domain.EventTypeLoanDisbursed, domain.LoanDisbursedEvent{
			LoanNumber:       loan.Number,
			Principal:        loan.Principal.String(),
			DisbursementDate: formatDate(loan.DisbursementDate),
			MaturityDate:     formatDate(maturity),
			Installments:     len(schedule),
			EntriesPosted:    len(entries),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansDisbursed.Inc()
		for _, e := range entries {
			uc.metrics.EntriesPosted.WithLabelValues(string(e.Concept)).Inc()
		}
	}

	uc.logger.Info().
		Int64("loan_number", loan.Number).
		Int("installments", len(schedule)).
		Int("entries", len(entries)).
		Msg("loan disbursed")

	return &DisburseResult{Loan: loan, Schedule: schedule, Entries: entries}, nil
}

// Schedule returns the amortization plan of a loan. Schedules of disbursed
// loans never change and are served from the cache when one is configured.
func (uc *LoanUseCase) Schedule(ctx context.Context, number int64) ([]domain.InstallmentLine, error) {
	key := scheduleCacheKey(number)
	if uc.cache != nil {
		if raw, err := uc.cache.Get(ctx, key); err == nil && raw != nil {
			var lines []domain.InstallmentLine
			if json.Unmarshal(raw, &lines) == nil {
				return lines, nil
			}
		}
	}

	loan, err := uc.loanRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	lines, err := domain.GenerateSchedule(loan.ScheduleTerms())
	if err != nil {
		return nil, err
	}

	if uc.cache != nil && !loan.TermsEditable() {
		if raw, err := json.Marshal(lines); err == nil {
			if err := uc.cache.Set(ctx, key, raw, ScheduleCacheTTL); err != nil {
				uc.logger.Warn().Err(err).Int64("loan_number", number).Msg("failed to cache schedule")
			}
		}
	}

	return lines, nil
}

func (uc *LoanUseCase) invalidateSchedule(ctx context.Context, number int64) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, scheduleCacheKey(number)); err != nil {
		uc.logger.Warn().Err(err).Int64("loan_number", number).Msg("failed to invalidate cached schedule")
	}
}

func scheduleCacheKey(number int64) string {
	return scheduleCachePrefix + strconv.FormatInt(number, 10)
}
