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

// AccrualService defines the behavior needed by AccrualHandler.
type AccrualService interface {
	ClosePeriod(ctx context.Context, input usecase.ClosePeriodInput) (*usecase.AccrualResult, error)
	CloseAllPeriods(ctx context.Context, cutoff time.Time) (*usecase.BatchResult, error)
	AccruedInterest(ctx context.Context, loanNumber int64, asOf time.Time) (decimal.Decimal, error)
	InterestForPeriod(ctx context.Context, from, to time.Time) (*usecase.PeriodInterest, error)
}

// AccrualHandler handles interest accrual HTTP requests.
type AccrualHandler struct {
	accrualUC AccrualService
	now       func() time.Time
}

// NewAccrualHandler creates a new AccrualHandler.
func NewAccrualHandler(accrualUC AccrualService) *AccrualHandler {
	return &AccrualHandler{accrualUC: accrualUC, now: time.Now}
}

// ClosePeriod closes the accrual period of one loan.
func (h *AccrualHandler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	var req dto.ClosePeriodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.CutoffDate.IsZero() {
		writeError(w, http.StatusBadRequest, "missing cutoff_date", "")
		return
	}

	result, err := h.accrualUC.ClosePeriod(r.Context(), req.ToUseCaseInput(number))
	if err != nil {
		writeDomainError(w, "failed to close accrual period", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccrualFromResult(result))
}

// CloseAll closes the accrual period of every disbursed loan. Without a
// cutoff_date the batch closes through yesterday.
func (h *AccrualHandler) CloseAll(w http.ResponseWriter, r *http.Request) {
	var req dto.CloseAllPeriodsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cutoff := req.CutoffDate.Time
	if cutoff.IsZero() {
		cutoff = domain.DateOnly(h.now().UTC()).AddDate(0, 0, -1)
	}

	result, err := h.accrualUC.CloseAllPeriods(r.Context(), cutoff)
	if err != nil {
		writeDomainError(w, "failed to close accrual periods", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromResult(result))
}

// AccruedInterest reports the interest a loan has accrued up to as_of.
func (h *AccrualHandler) AccruedInterest(w http.ResponseWriter, r *http.Request) {
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

	interest, err := h.accrualUC.AccruedInterest(r.Context(), number, asOf)
	if err != nil {
		writeDomainError(w, "failed to compute accrued interest", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccruedInterestResponse{
		LoanNumber: number,
		AsOf:       dto.NewDate(asOf),
		Interest:   interest,
	})
}

// PeriodInterest reports interest accrued by every loan between from and to.
func (h *AccrualHandler) PeriodInterest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("from") == "" || r.URL.Query().Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from and to are required", "")
		return
	}
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from", err.Error())
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to", err.Error())
		return
	}

	report, err := h.accrualUC.InterestForPeriod(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, "failed to compute period interest", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodInterestFromResult(report))
}
