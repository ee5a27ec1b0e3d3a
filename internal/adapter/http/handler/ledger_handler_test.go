package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

type ledgerServiceStub struct {
	postFn      func(ctx context.Context, input usecase.PostEntryInput) (*domain.LedgerEntry, error)
	pendingFn   func(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error)
	listFn      func(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error)
	statementFn func(ctx context.Context, loanNumber int64, asOf time.Time) (*usecase.Statement, error)
}

func (s *ledgerServiceStub) PostEntry(ctx context.Context, input usecase.PostEntryInput) (*domain.LedgerEntry, error) {
	return s.postFn(ctx, input)
}

func (s *ledgerServiceStub) QueryPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
	return s.pendingFn(ctx, loanNumber, asOf)
}

func (s *ledgerServiceStub) ListEntries(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error) {
	return s.listFn(ctx, loanNumber, limit, offset)
}

func (s *ledgerServiceStub) Statement(ctx context.Context, loanNumber int64, asOf time.Time) (*usecase.Statement, error) {
	return s.statementFn(ctx, loanNumber, asOf)
}

func TestLedgerHandler_PostEntry(t *testing.T) {
	var captured usecase.PostEntryInput
	handler := NewLedgerHandler(&ledgerServiceStub{
		postFn: func(ctx context.Context, input usecase.PostEntryInput) (*domain.LedgerEntry, error) {
			captured = input
			return &domain.LedgerEntry{
				ID:         7,
				LoanNumber: input.LoanNumber,
				Concept:    input.Concept,
				State:      domain.EntryStatePending,
				Amount:     input.Amount,
				DueDate:    input.DueDate,
			}, nil
		},
	})

	body := `{"due_date":"2024-03-05","installment_number":2,"amount":"1250.50","concept":"PLANNED_FEE","reference":"adj-1"}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/loans/90001/entries", strings.NewReader(body)), "number", "90001")
	rec := httptest.NewRecorder()
	handler.PostEntry(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.LoanNumber != 90001 || captured.Concept != domain.ConceptPlannedFee {
		t.Fatalf("unexpected input %+v", captured)
	}
	if captured.InstallmentNumber == nil || *captured.InstallmentNumber != 2 {
		t.Fatalf("expected installment 2, got %v", captured.InstallmentNumber)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("unexpected amount %s", captured.Amount)
	}

	var resp dto.EntryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Outstanding.Equal(decimal.RequireFromString("1250.50")) {
		t.Fatalf("expected full amount outstanding, got %s", resp.Outstanding)
	}
}

func TestLedgerHandler_PostEntry_Duplicate(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		postFn: func(ctx context.Context, input usecase.PostEntryInput) (*domain.LedgerEntry, error) {
			return nil, domain.ErrDuplicateLedgerEntry
		},
	})

	body := `{"due_date":"2024-03-05","amount":"10","concept":"PLANNED_FEE"}`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/loans/90001/entries", strings.NewReader(body)), "number", "90001")
	rec := httptest.NewRecorder()
	handler.PostEntry(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLedgerHandler_Pending(t *testing.T) {
	var gotAsOf time.Time
	handler := NewLedgerHandler(&ledgerServiceStub{
		pendingFn: func(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error) {
			gotAsOf = asOf
			return []*domain.LedgerEntry{
				{ID: 1, Amount: decimal.NewFromInt(100), SettledAmount: decimal.NewFromInt(40), State: domain.EntryStatePartiallySettled},
				{ID: 2, Amount: decimal.NewFromInt(50), State: domain.EntryStatePending},
			}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/loans/90001/entries/pending?as_of=2024-06-30", nil), "number", "90001")
	rec := httptest.NewRecorder()
	handler.Pending(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotAsOf.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected as_of %v", gotAsOf)
	}
	if got := rec.Header().Get("X-Pending-Total"); got != "110.00" {
		t.Fatalf("expected pending total 110.00, got %q", got)
	}
}

func TestLedgerHandler_Pending_BadDate(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/loans/90001/entries/pending?as_of=june", nil), "number", "90001")
	rec := httptest.NewRecorder()
	handler.Pending(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLedgerHandler_Statement(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		statementFn: func(ctx context.Context, loanNumber int64, asOf time.Time) (*usecase.Statement, error) {
			return &usecase.Statement{
				LoanNumber: loanNumber,
				AsOf:       asOf,
				Totals: []domain.ConceptTotal{
					{Concept: domain.ConceptPlannedCapital, Amount: decimal.NewFromInt(1000), Settled: decimal.NewFromInt(250)},
				},
				Outstanding:     decimal.NewFromInt(750),
				AccruedInterest: decimal.NewFromInt(12),
			}, nil
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/loans/90001/statement?as_of=2024-06-30", nil), "number", "90001")
	rec := httptest.NewRecorder()
	handler.Statement(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.StatementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Totals) != 1 || !resp.Totals[0].Outstanding.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("unexpected totals %+v", resp.Totals)
	}
}

func TestLedgerHandler_ListEntries_UnknownLoan(t *testing.T) {
	handler := NewLedgerHandler(&ledgerServiceStub{
		listFn: func(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error) {
			return nil, domain.ErrLoanNotFound
		},
	})

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/loans/1/entries", nil), "number", "1")
	rec := httptest.NewRecorder()
	handler.ListEntries(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
