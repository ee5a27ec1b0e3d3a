package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
	"github.com/iho/loanledger/internal/usecase/mocks"
)

type harness struct {
	store     *mocks.MemoryStore
	seqRepo   *mocks.MemorySequenceRepository
	sequences *usecase.SequenceUseCase
	loans     *usecase.LoanUseCase
	ledger    *usecase.LedgerUseCase
	accruals  *usecase.AccrualUseCase
	payments  *usecase.PaymentUseCase
	recon     *usecase.ReconciliationUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := zerolog.Nop()
	store := mocks.NewMemoryStore()
	seqRepo := mocks.NewMemorySequenceRepository()
	sequences := usecase.NewSequenceUseCase(seqRepo, nil, logger)
	idGen := &mocks.SequentialIDGenerator{}
	txm := store.TxManager()

	return &harness{
		store:     store,
		seqRepo:   seqRepo,
		sequences: sequences,
		loans: usecase.NewLoanUseCase(txm, store.Loans(), store.Entries(), store.Outbox(),
			sequences, idGen, nil, nil, logger),
		ledger: usecase.NewLedgerUseCase(txm, store.Loans(), store.Entries(), sequences, nil, logger),
		accruals: usecase.NewAccrualUseCase(txm, store.Loans(), store.Entries(), store.Outbox(),
			sequences, idGen, nil, nil, logger),
		payments: usecase.NewPaymentUseCase(txm, store.Loans(), store.Entries(), store.Payments(),
			store.Applications(), store.Outbox(), sequences, idGen, nil, logger),
		recon: usecase.NewReconciliationUseCase(txm, store.Payments(), store.Movements(), store.Outbox(),
			sequences, idGen, domain.MatchOptions{Currency: "COP"}, nil, logger),
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// exampleLoanInput is 2,000,000 with 400,000 up front at 24% nominal over
// six installments billed on the 15th.
func exampleLoanInput(disbursed time.Time) usecase.CreateLoanInput {
	return usecase.CreateLoanInput{
		DisbursementDate: disbursed,
		Principal:        dec("2000000"),
		FirstInstallment: dec("400000"),
		AnnualRate:       dec("24"),
		TermMonths:       6,
		BillingDay:       15,
	}
}

// disburseLoan creates, submits and disburses a loan and returns its number.
func (h *harness) disburseLoan(t *testing.T, input usecase.CreateLoanInput) int64 {
	t.Helper()
	ctx := context.Background()

	loan, err := h.loans.CreateLoan(ctx, input)
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if _, err := h.loans.Submit(ctx, loan.Number); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := h.loans.Disburse(ctx, usecase.DisburseInput{LoanNumber: loan.Number}); err != nil {
		t.Fatalf("Disburse: %v", err)
	}
	return loan.Number
}
