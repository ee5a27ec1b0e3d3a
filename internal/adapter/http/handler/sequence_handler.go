package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
)

// SequenceService defines the behavior needed by SequenceHandler.
type SequenceService interface {
	Reserve(ctx context.Context, d domain.SequenceDomain, count int) (int64, error)
	Set(ctx context.Context, d domain.SequenceDomain, value int64) error
	Current(ctx context.Context) (domain.SequenceCounters, error)
}

// SequenceHandler exposes the identifier counters.
type SequenceHandler struct {
	sequenceUC SequenceService
}

// NewSequenceHandler creates a new SequenceHandler.
func NewSequenceHandler(sequenceUC SequenceService) *SequenceHandler {
	return &SequenceHandler{sequenceUC: sequenceUC}
}

// Current lists every counter.
func (h *SequenceHandler) Current(w http.ResponseWriter, r *http.Request) {
	counters, err := h.sequenceUC.Current(r.Context())
	if err != nil {
		writeDomainError(w, "failed to read sequences", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CountersFromDomain(counters))
}

// Next reserves count identifiers and returns the first one.
func (h *SequenceHandler) Next(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseSequenceDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeDomainError(w, "invalid sequence domain", err)
		return
	}

	req := dto.ReserveSequenceRequest{Count: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	first, err := h.sequenceUC.Reserve(r.Context(), d, req.Count)
	if err != nil {
		writeDomainError(w, "failed to advance sequence", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SequenceValueResponse{Domain: string(d), Value: first, Count: req.Count})
}

// Set overrides a counter. Decreasing it is rejected.
func (h *SequenceHandler) Set(w http.ResponseWriter, r *http.Request) {
	d, err := domain.ParseSequenceDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeDomainError(w, "invalid sequence domain", err)
		return
	}

	var req dto.SetSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.sequenceUC.Set(r.Context(), d, req.Value); err != nil {
		writeDomainError(w, "failed to set sequence", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SequenceValueResponse{Domain: string(d), Value: req.Value})
}
