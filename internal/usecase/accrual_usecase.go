package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// AccrualUseCase closes interest accrual periods.
type AccrualUseCase struct {
	txManager  TransactionManager
	loanRepo   LoanRepository
	ledgerRepo LedgerEntryRepository
	outboxRepo OutboxRepository
	sequences  SequenceAllocator
	idGen      IDGenerator
	retrier    Retrier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewAccrualUseCase creates a new AccrualUseCase. retrier may be nil; when
// set, each loan of a batch close is retried on transient database errors.
func NewAccrualUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	ledgerRepo LedgerEntryRepository,
	outboxRepo OutboxRepository,
	sequences SequenceAllocator,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *AccrualUseCase {
	return &AccrualUseCase{
		txManager:  txManager,
		loanRepo:   loanRepo,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		sequences:  sequences,
		idGen:      idGen,
		retrier:    retrier,
		metrics:    m,
		logger:     logger.With().Str("component", "accrual").Logger(),
	}
}

// ClosePeriodInput represents input for closing one loan's accrual period.
type ClosePeriodInput struct {
	CutoffDate time.Time
	Reference  string
	LoanNumber int64
	// OperationSeq overrides the operation sequence of the posted entry.
	// Zero picks the next free one for the process date.
	OperationSeq int64
}

// AccrualResult is one closed period.
type AccrualResult struct {
	Entry  *domain.LedgerEntry
	Period domain.AccrualPeriod
}

// BatchResult summarizes a batch close. Errors is keyed by loan number.
type BatchResult struct {
	Cutoff   time.Time
	Errors   map[int64]string
	Interest decimal.Decimal
	Closed   int
	Skipped  int
	Failed   int
}

// PeriodInterest is interest accrued per loan between two dates.
type PeriodInterest struct {
	From  time.Time
	To    time.Time
	Loans []domain.LoanInterestTotal
	Total decimal.Decimal
}

// ClosePeriod accrues interest from the loan's last cutoff (or disbursement)
// up to the given cutoff and posts it as one ACCRUAL entry.
func (uc *AccrualUseCase) ClosePeriod(ctx context.Context, input ClosePeriodInput) (*AccrualResult, error) {
	if input.CutoffDate.IsZero() {
		return nil, fmt.Errorf("%w: cutoff date is required", domain.ErrInvalidDate)
	}
	if err := domain.ValidateReference(input.Reference); err != nil {
		return nil, err
	}
	cutoff := domain.DateOnly(input.CutoffDate)

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
	if loan.State != domain.LoanStateDisbursed {
		return nil, fmt.Errorf("%w: loan %d is %s, not disbursed", domain.ErrValidation, loan.Number, loan.State)
	}

	exists, err := uc.ledgerRepo.AccrualExists(txCtx, tx, loan.Number, cutoff)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: loan %d already has an accrual at %s",
			domain.ErrPeriodAlreadyClosed, loan.Number, formatDate(cutoff))
	}

	settled, err := uc.ledgerRepo.SettledCapital(txCtx, tx, loan.Number, cutoff)
	if err != nil {
		return nil, err
	}

	period, err := domain.ComputeAccrual(loan, cutoff, settled)
	if err != nil {
		return nil, err
	}

	operationID, err := uc.sequences.Next(txCtx, domain.SequenceOperation)
	if err != nil {
		return nil, err
	}
	entryID, err := uc.sequences.Next(txCtx, domain.SequenceTransaction)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	processDate := domain.DateOnly(now)

	seq := input.OperationSeq
	if seq == 0 {
		maxSeq, err := uc.ledgerRepo.MaxOperationSeq(txCtx, tx, loan.Number, processDate)
		if err != nil {
			return nil, err
		}
		seq = maxSeq + 1
	}

	entry := domain.MemoEntry(loan.Number, domain.ConceptAccrual, period.Interest, cutoff, seq, domain.PostingContext{
		ProcessDate: processDate,
		CreatedAt:   now,
		CreatedBy:   actorFrom(ctx),
		Reference:   input.Reference,
		OperationID: operationID,
	})
	entry.ID = entryID

	if err := uc.ledgerRepo.CreateBatch(txCtx, tx, []*domain.LedgerEntry{entry}); err != nil {
		return nil, err
	}

	loan.LastAccrualDate = &cutoff
	loan.UpdatedAt = now
	if err := uc.loanRepo.Update(txCtx, tx, loan); err != nil {
		return nil, err
	}

	if err := emitEvent(txCtx, uc.outboxRepo, tx, uc.idGen, domain.AggregateTypeLoan, loan.Number,
		domain.EventTypeAccrualClosed, domain.AccrualClosedEvent{
			LoanNumber: loan.Number,
			EntryID:    entry.ID,
			From:       formatDate(period.Start),
			Cutoff:     formatDate(cutoff),
			Days:       period.Days,
			Interest:   period.Interest.String(),
		}, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.AccrualsClosed.WithLabelValues("closed").Inc()
		uc.metrics.AccruedInterest.Add(period.Interest.InexactFloat64())
		uc.metrics.EntriesPosted.WithLabelValues(string(domain.ConceptAccrual)).Inc()
	}

	return &AccrualResult{Entry: entry, Period: period}, nil
}

// CloseAllPeriods closes the period for every disbursed loan. Each loan runs
// in its own transaction; a failing loan is logged and counted and the batch
// moves on. Only context cancellation stops the batch early.
func (uc *AccrualUseCase) CloseAllPeriods(ctx context.Context, cutoff time.Time) (*BatchResult, error) {
	start := time.Now()
	cutoff = domain.DateOnly(cutoff)
	result := &BatchResult{
		Cutoff:   cutoff,
		Errors:   map[int64]string{},
		Interest: decimal.Zero,
	}

	defer func() {
		if uc.metrics != nil {
			uc.metrics.AccrualBatchDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		numbers, err := uc.loanRepo.ListDisbursedNumbers(ctx, after, accrualBatchPageSize)
		if err != nil {
			return result, err
		}
		if len(numbers) == 0 {
			break
		}

		for _, number := range numbers {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			uc.closeOne(ctx, number, cutoff, result)
		}

		after = numbers[len(numbers)-1]
		if len(numbers) < accrualBatchPageSize {
			break
		}
	}

	uc.logger.Info().
		Str("cutoff", formatDate(cutoff)).
		Int("closed", result.Closed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Str("interest", result.Interest.String()).
		Msg("accrual batch finished")

	return result, nil
}

func (uc *AccrualUseCase) closeOne(ctx context.Context, number int64, cutoff time.Time, result *BatchResult) {
	var closed *AccrualResult
	closeLoan := func() error {
		var err error
		closed, err = uc.ClosePeriod(ctx, ClosePeriodInput{
			LoanNumber: number,
			CutoffDate: cutoff,
			Reference:  "batch accrual " + formatDate(cutoff),
		})
		return err
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, closeLoan)
	} else {
		err = closeLoan()
	}

	switch {
	case err == nil:
		result.Closed++
		result.Interest = result.Interest.Add(closed.Period.Interest)
	case errors.Is(err, domain.ErrPeriodAlreadyClosed):
		result.Skipped++
		uc.logger.Info().Int64("loan_number", number).Str("cutoff", formatDate(cutoff)).Msg("accrual period already closed")
		if uc.metrics != nil {
			uc.metrics.AccrualsClosed.WithLabelValues("skipped").Inc()
		}
	default:
		result.Failed++
		result.Errors[number] = err.Error()
		uc.logger.Error().Err(err).Int64("loan_number", number).Str("cutoff", formatDate(cutoff)).Msg("accrual close failed")
		if uc.metrics != nil {
			uc.metrics.AccrualsClosed.WithLabelValues("failed").Inc()
		}
	}
}

// AccruedInterest totals the interest accrued on a loan through asOf.
func (uc *AccrualUseCase) AccruedInterest(ctx context.Context, loanNumber int64, asOf time.Time) (decimal.Decimal, error) {
	if _, err := uc.loanRepo.GetByNumber(ctx, loanNumber); err != nil {
		return decimal.Zero, err
	}
	return uc.ledgerRepo.AccruedInterest(ctx, loanNumber, domain.DateOnly(asOf))
}

// InterestForPeriod totals accruals with cutoffs between from and to, inclusive, per loan.
func (uc *AccrualUseCase) InterestForPeriod(ctx context.Context, from, to time.Time) (*PeriodInterest, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: invalid period %s..%s", domain.ErrInvalidDate, formatDate(from), formatDate(to))
	}

	loans, err := uc.ledgerRepo.InterestByLoan(ctx, from, to)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range loans {
		total = total.Add(l.Interest)
	}

	return &PeriodInterest{From: from, To: to, Loans: loans, Total: total}, nil
}
