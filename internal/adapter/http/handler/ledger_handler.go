package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	PostEntry(ctx context.Context, input usecase.PostEntryInput) (*domain.LedgerEntry, error)
	QueryPending(ctx context.Context, loanNumber int64, asOf time.Time) ([]*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, loanNumber int64, limit, offset int) ([]*domain.LedgerEntry, error)
	Statement(ctx context.Context, loanNumber int64, asOf time.Time) (*usecase.Statement, error)
}

// LedgerHandler handles ledger HTTP requests.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// PostEntry posts a manual entry against a loan.
func (h *LedgerHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	var req dto.PostEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledgerUC.PostEntry(r.Context(), req.ToUseCaseInput(number))
	if err != nil {
		writeDomainError(w, "failed to post entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// ListEntries lists every entry of a loan.
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	entries, err := h.ledgerUC.ListEntries(r.Context(), number, parseIntQuery(r, "limit", 100), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Pending lists entries due on or before as_of that still have an
// outstanding balance, in allocation order.
func (h *LedgerHandler) Pending(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	entries, err := h.ledgerUC.QueryPending(r.Context(), number, asOf)
	if err != nil {
		writeDomainError(w, "failed to query pending entries", err)
		return
	}

	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Outstanding())
	}
	w.Header().Set("X-Pending-Total", total.StringFixed(2))
	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Statement returns per-concept totals of a loan.
func (h *LedgerHandler) Statement(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}
	asOf, err := parseDateQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err.Error())
		return
	}

	statement, err := h.ledgerUC.Statement(r.Context(), number, asOf)
	if err != nil {
		writeDomainError(w, "failed to build statement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromResult(statement))
}
