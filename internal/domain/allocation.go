package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is the share of a payment assigned to one entry.
type Allocation struct {
	Entry  *LedgerEntry
	Amount decimal.Decimal
}

// AllocationPlan is the outcome of walking the pending entries.
type AllocationPlan struct {
	Allocations []Allocation
	Applied     decimal.Decimal
	Residual    decimal.Decimal
}

// Allocate walks entries oldest-first and assigns as much of amount as each
// still owes. Entries are settled in place; entries not reached keep their
// state. The unapplied remainder is returned as Residual.
func Allocate(entries []*LedgerEntry, amount decimal.Decimal, at time.Time) AllocationPlan {
	SortForAllocation(entries)

	plan := AllocationPlan{Applied: decimal.Zero, Residual: amount}
	for _, entry := range entries {
		if !plan.Residual.IsPositive() {
			break
		}
		owed := entry.Outstanding()
		if !owed.IsPositive() {
			continue
		}

		share := decimal.Min(owed, plan.Residual)
		entry.Settle(share, at)

		plan.Allocations = append(plan.Allocations, Allocation{Entry: entry, Amount: share})
		plan.Applied = plan.Applied.Add(share)
		plan.Residual = plan.Residual.Sub(share)
	}

	return plan
}
