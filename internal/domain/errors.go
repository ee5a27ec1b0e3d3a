package domain

import "errors"

var (
	// ErrValidation is the parent of every input or policy violation.
	// Use errors.Is(err, ErrValidation) to classify.
	ErrValidation = errors.New("validation error")

	ErrInvalidTerms           = wrapValidation("invalid loan terms")
	ErrInvalidAmount          = wrapValidation("amount must be positive")
	ErrInvalidDate            = wrapValidation("invalid date")
	ErrInvalidStateTransition = wrapValidation("invalid loan state transition")
	ErrLoanImmutable          = wrapValidation("loan terms cannot change once disbursed")
	ErrCounterDecrease        = wrapValidation("sequence counter cannot decrease")
	ErrUnknownSequenceDomain  = wrapValidation("unknown sequence domain")
	ErrPaymentNotMatched      = wrapValidation("payment is not reconciled")
	ErrManualAccrual          = wrapValidation("accruals are posted by closing a period")

	// Loan errors
	ErrLoanNotFound = errors.New("loan not found")

	// Ledger errors
	ErrDuplicateLedgerEntry = errors.New("duplicate ledger entry")
	ErrPeriodAlreadyClosed  = errors.New("accrual period already closed")

	// Payment errors
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentAlreadyApplied = errors.New("payment already applied")
	ErrNothingToApply        = errors.New("no pending ledger entries to apply")

	// Reconciliation
	ErrMovementNotFound = errors.New("bank movement not found")
	// ErrReconciliationNotFound labels a negative match result. Match never returns it.
	ErrReconciliationNotFound = errors.New("no subset of candidates sums to the movement amount")
	// ErrReconciliationConflict means a selected payment changed between
	// locking and marking.
	ErrReconciliationConflict = errors.New("payments changed during reconciliation")

	// Sequence errors
	ErrConcurrencyTimeout = errors.New("timed out waiting for sequence lock")
)

type validationError struct {
	msg string
}

func wrapValidation(msg string) error {
	return &validationError{msg: msg}
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }
