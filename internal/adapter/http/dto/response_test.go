package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

func TestEntryFromDomain_Outstanding(t *testing.T) {
	installment := 3
	e := &domain.LedgerEntry{
		ID:                9,
		LoanNumber:        90001,
		InstallmentNumber: &installment,
		Concept:           domain.ConceptPlannedInterest,
		State:             domain.EntryStatePartiallySettled,
		Amount:            decimal.NewFromInt(500),
		SettledAmount:     decimal.NewFromInt(120),
		DueDate:           time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
	}

	resp := EntryFromDomain(e)
	assert.True(t, resp.Outstanding.Equal(decimal.NewFromInt(380)))
	assert.Equal(t, "PARTIALLY_SETTLED", resp.State)
	assert.Equal(t, 3, *resp.InstallmentNumber)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"due_date":"2024-04-05"`)
	assert.NotContains(t, string(out), "effective_date")
}

func TestStatementFromResult(t *testing.T) {
	resp := StatementFromResult(&usecase.Statement{
		LoanNumber: 90001,
		AsOf:       time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Totals: []domain.ConceptTotal{
			{Concept: domain.ConceptPlannedCapital, Amount: decimal.NewFromInt(1000), Settled: decimal.NewFromInt(400)},
			{Concept: domain.ConceptAccrual, Amount: decimal.NewFromInt(30), Settled: decimal.Zero},
		},
		Outstanding: decimal.NewFromInt(630),
	})

	require.Len(t, resp.Totals, 2)
	assert.True(t, resp.Totals[0].Outstanding.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "ACCRUAL", resp.Totals[1].Concept)
}

func TestCountersFromDomain(t *testing.T) {
	resp := CountersFromDomain(domain.DefaultSequenceCounters())
	assert.Len(t, resp.Counters, len(domain.SequenceDomains))
	assert.Equal(t, domain.LoanNumberFloor, resp.Counters["loan"])
}

func TestMatchFromOutcome(t *testing.T) {
	resp := MatchFromOutcome(&usecase.MatchOutcome{
		Movement:         &domain.BankMovement{ID: 1, ReconciliationState: domain.ReconciliationMatched},
		Payments:         []*domain.Payment{{ID: 2}, {ID: 3}},
		Result:           domain.MatchResult{Matched: true, Strategy: domain.MatchStrategyGreedy, PoolSize: 60},
		ReconciliationID: 8,
	})

	assert.True(t, resp.Matched)
	assert.Equal(t, "greedy", resp.Strategy)
	assert.Len(t, resp.Payments, 2)
	assert.Equal(t, "MATCHED", resp.Movement.ReconciliationState)
}
