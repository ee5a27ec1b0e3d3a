package domain

import "time"

// Event types
const (
	EventTypeLoanCreated        = "loan.created"
	EventTypeLoanDisbursed      = "loan.disbursed"
	EventTypeLoanStateChanged   = "loan.state_changed"
	EventTypeAccrualClosed      = "accrual.closed"
	EventTypePaymentApplied     = "payment.applied"
	EventTypeMovementReconciled = "movement.reconciled"
)

// Aggregate types
const (
	AggregateTypeLoan     = "loan"
	AggregateTypePayment  = "payment"
	AggregateTypeMovement = "movement"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// LoanDisbursedEvent payload
type LoanDisbursedEvent struct {
	LoanNumber       int64  `json:"loan_number"`
	Principal        string `json:"principal"`
	DisbursementDate string `json:"disbursement_date"`
	MaturityDate     string `json:"maturity_date"`
	Installments     int    `json:"installments"`
	EntriesPosted    int    `json:"entries_posted"`
}

// AccrualClosedEvent payload
type AccrualClosedEvent struct {
	LoanNumber int64  `json:"loan_number"`
	EntryID    int64  `json:"entry_id"`
	From       string `json:"from"`
	Cutoff     string `json:"cutoff"`
	Days       int    `json:"days"`
	Interest   string `json:"interest"`
}

// PaymentAppliedEvent payload
type PaymentAppliedEvent struct {
	PaymentID  int64  `json:"payment_id"`
	LoanNumber int64  `json:"loan_number"`
	Applied    string `json:"applied"`
	Residual   string `json:"residual"`
	Entries    int    `json:"entries"`
}

// MovementReconciledEvent payload
type MovementReconciledEvent struct {
	MovementID       int64   `json:"movement_id"`
	ReconciliationID int64   `json:"reconciliation_id"`
	PaymentIDs       []int64 `json:"payment_ids"`
	Amount           string  `json:"amount"`
	Strategy         string  `json:"strategy"`
}

// NewOutboxEvent builds an unpublished event with a map payload.
func NewOutboxEvent(id, aggregateType, aggregateID, eventType string, payload map[string]any, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	}
}
