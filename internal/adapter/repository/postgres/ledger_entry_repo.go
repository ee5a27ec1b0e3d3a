package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/postgres/generated"
	"github.com/iho/loanledger/internal/usecase"
)

// LedgerEntryRepository implements usecase.LedgerEntryRepository.
// Entries are append-only; only settlement columns are ever updated.
type LedgerEntryRepository struct {
	pool    *pgxpool.Pool
	queries *generated.Queries
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository.
func NewLedgerEntryRepository(pool *pgxpool.Pool) *LedgerEntryRepository {
	return &LedgerEntryRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// CreateBatch inserts entries in order. A clash on the posting key or the
// entry id fails the whole batch with ErrDuplicateLedgerEntry.
func (r *LedgerEntryRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, entries []*domain.LedgerEntry) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	for _, e := range entries {
		err := queries.CreateLedgerEntry(ctx, generated.CreateLedgerEntryParams{
			ID:                e.ID,
			LoanNumber:        e.LoanNumber,
			OperationID:       e.OperationID,
			OperationSeq:      e.OperationSeq,
			EffectiveDate:     optionalDate(e.EffectiveDate),
			ProcessDate:       dateToPg(e.ProcessDate),
			DueDate:           dateToPg(e.DueDate),
			InstallmentNumber: optionalInt4(e.InstallmentNumber),
			Concept:           string(e.Concept),
			Amount:            decimalToNumeric(e.Amount),
			SettledAmount:     decimalToNumeric(e.SettledAmount),
			State:             string(e.State),
			SettledAt:         optionalTimestamptz(e.SettledAt),
			Reference:         e.Reference,
			CreatedBy:         e.CreatedBy,
			CreatedAt:         timeToPgTimestamptz(e.CreatedAt),
		})
		if err != nil {
			return fmt.Errorf("entry %d (loan %d seq %d): %w", e.ID, e.LoanNumber, e.OperationSeq, translateLedgerError(err))
		}
	}

	return nil
}

// UpdateSettlement stores the settlement bookkeeping of an entry.
func (r *LedgerEntryRepository) UpdateSettlement(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	queries := generated.New(tx.(*Tx).PgxTx())

	affected, err := queries.UpdateEntrySettlement(ctx, generated.UpdateEntrySettlementParams{
		ID:            entry.ID,
		SettledAmount: decimalToNumeric(entry.SettledAmount),
		State:         string(entry.State),
		SettledAt:     optionalTimestamptz(entry.SettledAt),
		EffectiveDate: optionalDate(entry.EffectiveDate),
	})
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: entry %d would be over-settled", domain.ErrInvalidAmount, entry.ID)
		}
		return err
	}
	if affected == 0 {
		return fmt.Errorf("ledger entry %d not found", entry.ID)
	}

	return nil
}

// ListPending returns open payable entries due on or before asOf.
func (r *LedgerEntryRepository) ListPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListPendingEntries(ctx, generated.ListPendingEntriesParams{
		LoanNumber: loanNumber,
		DueDate:    dateToPg(asOf),
	})
	if err != nil {
		return nil, err
	}

	return sortedEntries(rows), nil
}

// ListPendingForUpdate is ListPending with the rows locked for settlement.
func (r *LedgerEntryRepository) ListPendingForUpdate(ctx context.Context, tx usecase.Transaction, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	rows, err := queries.ListPendingEntriesForUpdate(ctx, generated.ListPendingEntriesForUpdateParams{
		LoanNumber: loanNumber,
		DueDate:    dateToPg(asOf),
	})
	if err != nil {
		return nil, err
	}

	return sortedEntries(rows), nil
}

// ListByLoan lists a loan's entries in posting order.
func (r *LedgerEntryRepository) ListByLoan(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.ListEntriesByLoan(ctx, generated.ListEntriesByLoanParams{
		LoanNumber: loanNumber,
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToLedgerEntry(row))
	}

	return entries, nil
}

// SettledCapital sums the capital repaid by payments reported on or before asOf.
func (r *LedgerEntryRepository) SettledCapital(ctx context.Context, tx usecase.Transaction, loanNumber int64, asOf time.Time) (decimal.Decimal, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	total, err := queries.SumSettledCapital(ctx, generated.SumSettledCapitalParams{
		LoanNumber:   loanNumber,
		ReportedDate: dateToPg(asOf),
	})
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

// AccrualExists reports whether an ACCRUAL entry is already posted at cutoff.
func (r *LedgerEntryRepository) AccrualExists(ctx context.Context, tx usecase.Transaction, loanNumber int64, cutoff time.Time) (bool, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	return queries.AccrualExists(ctx, generated.AccrualExistsParams{
		LoanNumber:    loanNumber,
		EffectiveDate: dateToPg(cutoff),
	})
}

// MaxOperationSeq returns the highest operation sequence used for a loan on a
// process date, or zero.
func (r *LedgerEntryRepository) MaxOperationSeq(ctx context.Context, tx usecase.Transaction, loanNumber int64, processDate time.Time) (int64, error) {
	queries := generated.New(tx.(*Tx).PgxTx())

	return queries.MaxOperationSeq(ctx, generated.MaxOperationSeqParams{
		LoanNumber:  loanNumber,
		ProcessDate: dateToPg(processDate),
	})
}

// ConceptTotals aggregates a loan's entries due on or before asOf per concept.
func (r *LedgerEntryRepository) ConceptTotals(ctx context.Context, loanNumber int64, asOf time.Time) ([]domain.ConceptTotal, error) {
	rows, err := r.queries.ConceptTotals(ctx, generated.ConceptTotalsParams{
		LoanNumber: loanNumber,
		DueDate:    dateToPg(asOf),
	})
	if err != nil {
		return nil, err
	}

	totals := make([]domain.ConceptTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.ConceptTotal{
			Concept: domain.Concept(row.Concept),
			Amount:  numericToDecimal(row.Amount),
			Settled: numericToDecimal(row.Settled),
		})
	}

	return totals, nil
}

// AccruedInterest sums ACCRUAL entries with cutoffs on or before asOf.
func (r *LedgerEntryRepository) AccruedInterest(ctx context.Context, loanNumber int64, asOf time.Time) (decimal.Decimal, error) {
	total, err := r.queries.SumAccruedInterest(ctx, generated.SumAccruedInterestParams{
		LoanNumber:    loanNumber,
		EffectiveDate: dateToPg(asOf),
	})
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(total), nil
}

// InterestByLoan sums ACCRUAL entries with cutoffs in [from, to] per loan.
func (r *LedgerEntryRepository) InterestByLoan(ctx context.Context, from, to time.Time) ([]domain.LoanInterestTotal, error) {
	rows, err := r.queries.InterestByLoan(ctx, generated.InterestByLoanParams{
		EffectiveDate:   dateToPg(from),
		EffectiveDate_2: dateToPg(to),
	})
	if err != nil {
		return nil, err
	}

	totals := make([]domain.LoanInterestTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.LoanInterestTotal{
			LoanNumber: row.LoanNumber,
			Interest:   numericToDecimal(row.Interest),
		})
	}

	return totals, nil
}

// sortedEntries converts rows and applies the allocation order, which also
// ranks components within an installment.
func sortedEntries(rows []generated.LedgerEntry) []*domain.LedgerEntry {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToLedgerEntry(row))
	}
	domain.SortForAllocation(entries)

	return entries
}

func rowToLedgerEntry(row generated.LedgerEntry) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:                row.ID,
		LoanNumber:        row.LoanNumber,
		OperationID:       row.OperationID,
		OperationSeq:      row.OperationSeq,
		EffectiveDate:     datePtr(row.EffectiveDate),
		ProcessDate:       pgToDate(row.ProcessDate),
		DueDate:           pgToDate(row.DueDate),
		InstallmentNumber: int4Ptr(row.InstallmentNumber),
		Concept:           domain.Concept(row.Concept),
		Amount:            numericToDecimal(row.Amount),
		SettledAmount:     numericToDecimal(row.SettledAmount),
		State:             domain.EntryState(row.State),
		SettledAt:         timestamptzPtr(row.SettledAt),
		Reference:         row.Reference,
		CreatedBy:         row.CreatedBy,
		CreatedAt:         row.CreatedAt.Time,
	}
}
