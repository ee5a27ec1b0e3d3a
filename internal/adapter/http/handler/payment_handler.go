package handler

import (
	"context"
	"net/http"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// PaymentService defines the behavior needed by PaymentHandler.
type PaymentService interface {
	RegisterPayment(ctx context.Context, input usecase.RegisterPaymentInput) (*domain.Payment, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	Apply(ctx context.Context, input usecase.ApplyPaymentInput) (*usecase.ApplicationResult, error)
	ListApplications(ctx context.Context, paymentID int64) ([]*domain.PaymentApplication, error)
}

// PaymentHandler handles payment HTTP requests.
type PaymentHandler struct {
	paymentUC PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUC PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentUC: paymentUC}
}

// Register records a reported payment.
func (h *PaymentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	payment, err := h.paymentUC.RegisterPayment(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to register payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromDomain(payment))
}

// Get retrieves a payment by ID.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment ID", err.Error())
		return
	}

	payment, err := h.paymentUC.GetPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromDomain(payment))
}

// Apply allocates a payment over the loan's pending entries.
func (h *PaymentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment ID", err.Error())
		return
	}

	var req dto.ApplyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.paymentUC.Apply(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeDomainError(w, "failed to apply payment", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ApplicationResultFromResult(result))
}

// Applications lists the application records of a payment.
func (h *PaymentHandler) Applications(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment ID", err.Error())
		return
	}

	records, err := h.paymentUC.ListApplications(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list applications", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ApplicationsFromDomain(records))
}
