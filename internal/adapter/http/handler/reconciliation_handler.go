package handler

import (
	"context"
	"net/http"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	RegisterMovement(ctx context.Context, input usecase.RegisterMovementInput) (*domain.BankMovement, error)
	GetMovement(ctx context.Context, id int64) (*domain.BankMovement, error)
	Match(ctx context.Context, input usecase.MatchInput) (*usecase.MatchOutcome, error)
}

// ReconciliationHandler handles bank movement HTTP requests.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// Register records a bank movement.
func (h *ReconciliationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	movement, err := h.reconUC.RegisterMovement(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "failed to register movement", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MovementFromDomain(movement))
}

// Get retrieves a movement by ID.
func (h *ReconciliationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid movement ID", err.Error())
		return
	}

	movement, err := h.reconUC.GetMovement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get movement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MovementFromDomain(movement))
}

// Reconcile matches a movement against the unmatched payments of its batch.
// A movement with no matching subset is reported with matched=false.
func (h *ReconciliationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid movement ID", err.Error())
		return
	}

	outcome, err := h.reconUC.Match(r.Context(), usecase.MatchInput{MovementID: id})
	if err != nil {
		writeDomainError(w, "failed to reconcile movement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MatchFromOutcome(outcome))
}
