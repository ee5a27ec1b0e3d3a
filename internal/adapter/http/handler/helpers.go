package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status and code mapped from its kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := classifyDomainError(err)
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: err.Error(),
		Code:    code,
	})
}

// domainErrorRules is checked in order; the first errors.Is match wins.
// Specific validation errors precede ErrValidation, which wraps them.
var domainErrorRules = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrLoanNotFound, http.StatusNotFound, "loan_not_found"},
	{domain.ErrPaymentNotFound, http.StatusNotFound, "payment_not_found"},
	{domain.ErrMovementNotFound, http.StatusNotFound, "movement_not_found"},
	{domain.ErrInvalidTerms, http.StatusBadRequest, "invalid_terms"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrInvalidStateTransition, http.StatusBadRequest, "invalid_state_transition"},
	{domain.ErrLoanImmutable, http.StatusBadRequest, "loan_immutable"},
	{domain.ErrCounterDecrease, http.StatusBadRequest, "counter_decrease"},
	{domain.ErrUnknownSequenceDomain, http.StatusBadRequest, "unknown_sequence_domain"},
	{domain.ErrPaymentNotMatched, http.StatusBadRequest, "payment_not_matched"},
	{domain.ErrManualAccrual, http.StatusBadRequest, "manual_accrual"},
	{domain.ErrValidation, http.StatusBadRequest, "validation_error"},
	{domain.ErrDuplicateLedgerEntry, http.StatusConflict, "duplicate_ledger_entry"},
	{domain.ErrPeriodAlreadyClosed, http.StatusConflict, "period_already_closed"},
	{domain.ErrPaymentAlreadyApplied, http.StatusConflict, "payment_already_applied"},
	{domain.ErrNothingToApply, http.StatusConflict, "nothing_to_apply"},
	{domain.ErrReconciliationConflict, http.StatusConflict, "reconciliation_conflict"},
	{domain.ErrConcurrencyTimeout, http.StatusServiceUnavailable, "concurrency_timeout"},
}

// classifyDomainError maps domain errors to an HTTP status and a stable code.
func classifyDomainError(err error) (int, string) {
	for _, rule := range domainErrorRules {
		if errors.Is(err, rule.err) {
			return rule.status, rule.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseDateQuery parses a YYYY-MM-DD query parameter. A missing value
// yields today's date in UTC.
func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return domain.DateOnly(time.Now().UTC()), nil
	}
	return dto.ParseDate(val)
}

// parseIDParam parses a positive integer URL parameter.
func parseIDParam(r *http.Request, key string) (int64, error) {
	val := chi.URLParam(r, key)
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, val)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}
