package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Concept classifies a ledger entry.
type Concept string

const (
	ConceptDisbursement     Concept = "DISBURSEMENT"
	ConceptAccrual          Concept = "ACCRUAL"
	ConceptPlannedCapital   Concept = "PLANNED_CAPITAL"
	ConceptPlannedInterest  Concept = "PLANNED_INTEREST"
	ConceptPlannedInsurance Concept = "PLANNED_INSURANCE"
	ConceptPlannedFee       Concept = "PLANNED_FEE"
)

// Payable reports whether entries of this concept are obligations a payment can settle.
func (c Concept) Payable() bool {
	return c.Priority() > 0
}

// Priority is the allocation order within one due date and installment.
// Zero means the concept is not payable.
func (c Concept) Priority() int {
	switch c {
	case ConceptPlannedCapital:
		return 1
	case ConceptPlannedInterest:
		return 2
	case ConceptPlannedInsurance:
		return 3
	case ConceptPlannedFee:
		return 4
	default:
		return 0
	}
}

// Valid reports whether c is a known concept.
func (c Concept) Valid() bool {
	return c == ConceptDisbursement || c == ConceptAccrual || c.Payable()
}

// PayableConcepts lists the concepts allocation consumes, in priority order.
var PayableConcepts = []Concept{
	ConceptPlannedCapital,
	ConceptPlannedInterest,
	ConceptPlannedInsurance,
	ConceptPlannedFee,
}

// EntryState is the settlement state of a ledger entry.
type EntryState string

const (
	EntryStatePending          EntryState = "PENDING"
	EntryStatePartiallySettled EntryState = "PARTIALLY_SETTLED"
	EntryStateSettled          EntryState = "SETTLED"
	EntryStateVoid             EntryState = "VOID"
)

// Open reports whether the entry still owes something.
func (s EntryState) Open() bool {
	return s == EntryStatePending || s == EntryStatePartiallySettled
}

// LedgerEntry is one posted financial fact for a loan. Amount and concept
// never change after creation; only settlement bookkeeping does.
type LedgerEntry struct {
	DueDate           time.Time
	ProcessDate       time.Time
	CreatedAt         time.Time
	EffectiveDate     *time.Time
	SettledAt         *time.Time
	InstallmentNumber *int
	Amount            decimal.Decimal
	SettledAmount     decimal.Decimal
	Concept           Concept
	State             EntryState
	Reference         string
	CreatedBy         string
	ID                int64
	LoanNumber        int64
	OperationID       int64
	OperationSeq      int64
}

// Outstanding is the amount still owed on the entry.
func (e *LedgerEntry) Outstanding() decimal.Decimal {
	if !e.State.Open() {
		return decimal.Zero
	}
	return decimal.Max(e.Amount.Sub(e.SettledAmount), decimal.Zero)
}

// Settle records amount against the entry and moves its state.
// Callers never pass more than Outstanding.
func (e *LedgerEntry) Settle(amount decimal.Decimal, at time.Time) {
	e.SettledAmount = e.SettledAmount.Add(amount)
	if e.SettledAmount.GreaterThanOrEqual(e.Amount) {
		e.State = EntryStateSettled
		settled := at
		e.SettledAt = &settled
		return
	}
	if e.SettledAmount.IsPositive() {
		e.State = EntryStatePartiallySettled
	}
}

// SortForAllocation orders entries by due date, installment number and
// component priority. ID breaks the remaining ties.
func SortForAllocation(entries []*LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		ai, bi := installmentOrZero(a), installmentOrZero(b)
		if ai != bi {
			return ai < bi
		}
		if a.Concept.Priority() != b.Concept.Priority() {
			return a.Concept.Priority() < b.Concept.Priority()
		}
		return a.ID < b.ID
	})
}

func installmentOrZero(e *LedgerEntry) int {
	if e.InstallmentNumber == nil {
		return 0
	}
	return *e.InstallmentNumber
}

// PostingContext carries the fields shared by every entry of one posting.
type PostingContext struct {
	ProcessDate time.Time
	CreatedAt   time.Time
	CreatedBy   string
	Reference   string
	OperationID int64
}

// PlannedEntries expands schedule lines into one PENDING entry per non-zero
// component. OperationSeq runs 1..n across the whole plan; IDs are left for
// the caller to assign.
func PlannedEntries(loanNumber int64, lines []InstallmentLine, pc PostingContext) []*LedgerEntry {
	entries := make([]*LedgerEntry, 0, len(lines)*len(PayableConcepts))
	var seq int64

	for _, line := range lines {
		components := []struct {
			concept Concept
			amount  decimal.Decimal
		}{
			{ConceptPlannedCapital, line.Capital},
			{ConceptPlannedInterest, line.Interest},
			{ConceptPlannedInsurance, line.Insurance},
			{ConceptPlannedFee, line.Fee},
		}

		for _, c := range components {
			if !c.amount.IsPositive() {
				continue
			}
			seq++
			installment := line.Number
			entries = append(entries, &LedgerEntry{
				LoanNumber:        loanNumber,
				OperationID:       pc.OperationID,
				OperationSeq:      seq,
				ProcessDate:       DateOnly(pc.ProcessDate),
				InstallmentNumber: &installment,
				Concept:           c.concept,
				Amount:            c.amount,
				SettledAmount:     decimal.Zero,
				DueDate:           line.DueDate,
				State:             EntryStatePending,
				Reference:         pc.Reference,
				CreatedBy:         pc.CreatedBy,
				CreatedAt:         pc.CreatedAt,
			})
		}
	}

	return entries
}

// MemoEntry builds a non-payable posting (disbursement or accrual). Memo
// entries owe nothing, so they are created SETTLED and never enter allocation.
func MemoEntry(loanNumber int64, concept Concept, amount decimal.Decimal, effective time.Time, seq int64, pc PostingContext) *LedgerEntry {
	eff := DateOnly(effective)
	return &LedgerEntry{
		LoanNumber:    loanNumber,
		OperationID:   pc.OperationID,
		OperationSeq:  seq,
		EffectiveDate: &eff,
		ProcessDate:   DateOnly(pc.ProcessDate),
		Concept:       concept,
		Amount:        amount,
		SettledAmount: amount,
		DueDate:       eff,
		State:         EntryStateSettled,
		SettledAt:     &pc.CreatedAt,
		Reference:     pc.Reference,
		CreatedBy:     pc.CreatedBy,
		CreatedAt:     pc.CreatedAt,
	}
}

// ConceptTotal aggregates entries of one concept for a statement.
type ConceptTotal struct {
	Concept Concept
	Amount  decimal.Decimal
	Settled decimal.Decimal
}

// Outstanding returns the unsettled part of the total.
func (t ConceptTotal) Outstanding() decimal.Decimal {
	return t.Amount.Sub(t.Settled)
}

// LoanInterestTotal is the interest accrued for one loan over a period.
type LoanInterestTotal struct {
	LoanNumber int64
	Interest   decimal.Decimal
}
