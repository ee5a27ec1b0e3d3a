package handler

import (
	"context"
	"net/http"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	PreviewSchedule(terms domain.ScheduleTerms) ([]domain.InstallmentLine, error)
	CreateLoan(ctx context.Context, input usecase.CreateLoanInput) (*domain.Loan, error)
	GetLoan(ctx context.Context, number int64) (*domain.Loan, error)
	ListLoans(ctx context.Context, limit, offset int) ([]*domain.Loan, error)
	UpdateTerms(ctx context.Context, number int64, update domain.LoanTermsUpdate) (*domain.Loan, error)
	Submit(ctx context.Context, number int64) (*domain.Loan, error)
	Cancel(ctx context.Context, number int64) (*domain.Loan, error)
	Reinstate(ctx context.Context, number int64) (*domain.Loan, error)
	SetAccrualSuspended(ctx context.Context, number int64, suspended bool) (*domain.Loan, error)
	WriteOff(ctx context.Context, number int64) (*domain.Loan, error)
	Disburse(ctx context.Context, input usecase.DisburseInput) (*usecase.DisburseResult, error)
	Schedule(ctx context.Context, number int64) ([]domain.InstallmentLine, error)
}

// LoanHandler handles loan lifecycle HTTP requests.
type LoanHandler struct {
	loanUC LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanUC LoanService) *LoanHandler {
	return &LoanHandler{loanUC: loanUC}
}

// PreviewSchedule computes a schedule without persisting anything.
func (h *LoanHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	var req dto.LoanTermsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	lines, err := h.loanUC.PreviewSchedule(req.ToScheduleTerms())
	if err != nil {
		writeDomainError(w, "failed to generate schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromDomain(lines))
}

// Create creates a loan in ELABORATION.
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.LoanTermsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.CreateLoan(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to create loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// Get retrieves a loan by number.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	loan, err := h.loanUC.GetLoan(r.Context(), number)
	if err != nil {
		writeDomainError(w, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// List lists loans.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	loans, err := h.loanUC.ListLoans(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list loans", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LoansFromDomain(loans))
}

// Update changes the terms of a loan before disbursement.
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	var req dto.UpdateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.UpdateTerms(r.Context(), number, req.ToDomain())
	if err != nil {
		writeDomainError(w, "failed to update loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Submit moves a loan to TO_DISBURSE.
func (h *LoanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to submit loan", h.loanUC.Submit)
}

// Cancel cancels a loan that has not been disbursed.
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to cancel loan", h.loanUC.Cancel)
}

// Reinstate returns a cancelled loan to ELABORATION.
func (h *LoanHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to reinstate loan", h.loanUC.Reinstate)
}

// WriteOff flags a disbursed loan as written off.
func (h *LoanHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to write off loan", h.loanUC.WriteOff)
}

// SuspendAccrual stops interest accrual for a loan.
func (h *LoanHandler) SuspendAccrual(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to suspend accrual", func(ctx context.Context, number int64) (*domain.Loan, error) {
		return h.loanUC.SetAccrualSuspended(ctx, number, true)
	})
}

// ResumeAccrual resumes interest accrual for a loan.
func (h *LoanHandler) ResumeAccrual(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to resume accrual", func(ctx context.Context, number int64) (*domain.Loan, error) {
		return h.loanUC.SetAccrualSuspended(ctx, number, false)
	})
}

func (h *LoanHandler) transition(w http.ResponseWriter, r *http.Request, message string, fn func(context.Context, int64) (*domain.Loan, error)) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	loan, err := fn(r.Context(), number)
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// Disburse disburses a loan, posting its schedule to the ledger.
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	var req dto.DisburseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.loanUC.Disburse(r.Context(), req.ToUseCaseInput(number))
	if err != nil {
		writeDomainError(w, "failed to disburse loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.DisburseFromResult(result))
}

// Schedule returns the amortization schedule of a loan.
func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	number, err := parseIDParam(r, "number")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid loan number", err.Error())
		return
	}

	lines, err := h.loanUC.Schedule(r.Context(), number)
	if err != nil {
		writeDomainError(w, "failed to get schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScheduleFromDomain(lines))
}
