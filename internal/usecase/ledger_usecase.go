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

// LedgerUseCase posts and reads ledger entries.
type LedgerUseCase struct {
	txManager  TransactionManager
	loanRepo   LoanRepository
	ledgerRepo LedgerEntryRepository
	sequences  SequenceAllocator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	loanRepo LoanRepository,
	ledgerRepo LedgerEntryRepository,
	sequences SequenceAllocator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:  txManager,
		loanRepo:   loanRepo,
		ledgerRepo: ledgerRepo,
		sequences:  sequences,
		metrics:    m,
		logger:     logger.With().Str("component", "ledger").Logger(),
	}
}

// PostEntryInput represents one manually posted entry.
type PostEntryInput struct {
	DueDate           time.Time
	EffectiveDate     *time.Time
	InstallmentNumber *int
	Amount            decimal.Decimal
	Concept           domain.Concept
	Reference         string
	LoanNumber        int64
}

// Statement summarizes a loan's ledger as of a date.
type Statement struct {
	AsOf            time.Time
	Totals          []domain.ConceptTotal
	Outstanding     decimal.Decimal
	AccruedInterest decimal.Decimal
	LoanNumber      int64
}

// PostEntry posts a single manual entry. Planned concepts are posted PENDING,
// memo concepts SETTLED. ACCRUAL is refused: only ClosePeriod posts it, under
// the per-cutoff check and together with the marker advance.
func (uc *LedgerUseCase) PostEntry(ctx context.Context, input PostEntryInput) (*domain.LedgerEntry, error) {
	if !input.Concept.Valid() {
		return nil, fmt.Errorf("%w: unknown concept %q", domain.ErrValidation, input.Concept)
	}
	if input.Concept == domain.ConceptAccrual {
		return nil, domain.ErrManualAccrual
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateReference(input.Reference); err != nil {
		return nil, err
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", domain.ErrInvalidDate)
	}

	operationID, err := uc.sequences.Next(ctx, domain.SequenceOperation)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	pc := domain.PostingContext{
		ProcessDate: domain.DateOnly(now),
		CreatedAt:   now,
		CreatedBy:   actorFrom(ctx),
		Reference:   input.Reference,
		OperationID: operationID,
	}

	var entry *domain.LedgerEntry
	if input.Concept.Payable() {
		entry = &domain.LedgerEntry{
			LoanNumber:        input.LoanNumber,
			OperationID:       operationID,
			EffectiveDate:     input.EffectiveDate,
			ProcessDate:       pc.ProcessDate,
			InstallmentNumber: input.InstallmentNumber,
			Concept:           input.Concept,
			Amount:            input.Amount,
			SettledAmount:     decimal.Zero,
			DueDate:           domain.DateOnly(input.DueDate),
			State:             domain.EntryStatePending,
			Reference:         input.Reference,
			CreatedBy:         pc.CreatedBy,
			CreatedAt:         now,
		}
	} else {
		effective := input.DueDate
		if input.EffectiveDate != nil {
			effective = *input.EffectiveDate
		}
		entry = domain.MemoEntry(input.LoanNumber, input.Concept, input.Amount, effective, 0, pc)
	}

	if err := uc.Post(ctx, input.LoanNumber, []*domain.LedgerEntry{entry}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Post appends entries to a loan's ledger in one transaction after locking
// the loan. Entries without an ID get one from the transaction counter and
// entries without an operation sequence get the next free one for their
// process date. A uniqueness violation rejects the whole batch.
func (uc *LedgerUseCase) Post(ctx context.Context, loanNumber int64, entries []*domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	missingIDs := 0
	for _, e := range entries {
		if e.LoanNumber != loanNumber {
			return fmt.Errorf("%w: entry belongs to loan %d, not %d", domain.ErrValidation, e.LoanNumber, loanNumber)
		}
		if e.ID == 0 {
			missingIDs++
		}
	}

	if missingIDs > 0 {
		next, err := uc.sequences.Reserve(ctx, domain.SequenceTransaction, missingIDs)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.ID == 0 {
				e.ID = next
				next++
			}
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if _, err := uc.loanRepo.GetByNumberForUpdate(txCtx, tx, loanNumber); err != nil {
		return err
	}

	nextSeq := map[time.Time]int64{}
	for _, e := range entries {
		if e.OperationSeq != 0 {
			continue
		}
		day := domain.DateOnly(e.ProcessDate)
		if _, ok := nextSeq[day]; !ok {
			maxSeq, err := uc.ledgerRepo.MaxOperationSeq(txCtx, tx, loanNumber, day)
			if err != nil {
				return err
			}
			nextSeq[day] = maxSeq
		}
		nextSeq[day]++
		e.OperationSeq = nextSeq[day]
	}

	if err := uc.ledgerRepo.CreateBatch(txCtx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	if uc.metrics != nil {
		for _, e := range entries {
			uc.metrics.EntriesPosted.WithLabelValues(string(e.Concept)).Inc()
		}
	}

	return nil
}

// QueryPending returns the open planned entries due on or before asOf, in
// allocation order.
func (uc *LedgerUseCase) QueryPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	if _, err := uc.loanRepo.GetByNumber(ctx, loanNumber); err != nil {
		return nil, err
	}

	entries, err := uc.ledgerRepo.ListPending(ctx, loanNumber, domain.DateOnly(asOf))
	if err != nil {
		return nil, err
	}
	domain.SortForAllocation(entries)
	return entries, nil
}

// ListEntries lists a loan's entries with pagination.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	limit, offset, err := domain.ValidatePagination(limit, offset)
	if err != nil {
		return nil, err
	}
	if _, err := uc.loanRepo.GetByNumber(ctx, loanNumber); err != nil {
		return nil, err
	}
	return uc.ledgerRepo.ListByLoan(ctx, loanNumber, limit, offset)
}

// Statement totals planned, settled and outstanding amounts per concept for
// entries due on or before asOf, plus interest accrued through asOf.
func (uc *LedgerUseCase) Statement(ctx context.Context, loanNumber int64, asOf time.Time) (*Statement, error) {
	if _, err := uc.loanRepo.GetByNumber(ctx, loanNumber); err != nil {
		return nil, err
	}

	asOf = domain.DateOnly(asOf)
	totals, err := uc.ledgerRepo.ConceptTotals(ctx, loanNumber, asOf)
	if err != nil {
		return nil, err
	}

	accrued, err := uc.ledgerRepo.AccruedInterest(ctx, loanNumber, asOf)
	if err != nil {
		return nil, err
	}

	outstanding := decimal.Zero
	for _, t := range totals {
		if t.Concept.Payable() {
			outstanding = outstanding.Add(t.Outstanding())
		}
	}

	return &Statement{
		LoanNumber:      loanNumber,
		AsOf:            asOf,
		Totals:          totals,
		Outstanding:     outstanding,
		AccruedInterest: accrued,
	}, nil
}
