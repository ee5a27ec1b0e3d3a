package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationState tracks whether a payment or movement has been matched.
type ReconciliationState string

const (
	ReconciliationUnmatched ReconciliationState = "UNMATCHED"
	ReconciliationMatched   ReconciliationState = "MATCHED"
)

// Payment is a received payment reported by the ingestion pipeline.
type Payment struct {
	ReportedDate        time.Time
	CreatedAt           time.Time
	MatchedAt           *time.Time
	AppliedAt           *time.Time
	ReconciliationID    *int64
	MovementID          *int64
	Amount              decimal.Decimal
	AppliedAmount       decimal.Decimal
	ResidualAmount      decimal.Decimal
	ReconciliationState ReconciliationState
	SourceFile          string
	BatchID             string
	ID                  int64
	LoanNumber          int64
}

// Applied reports whether the payment has been consumed by allocation.
func (p *Payment) Applied() bool {
	return p.AppliedAt != nil
}

// Validate checks the payment is usable.
func (p *Payment) Validate() error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	if p.ReportedDate.IsZero() {
		return fmt.Errorf("%w: reported date is required", ErrInvalidDate)
	}
	if p.LoanNumber <= 0 {
		return fmt.Errorf("%w: loan number is required", ErrValidation)
	}
	return nil
}

// PaymentApplication links one payment to one ledger entry.
type PaymentApplication struct {
	AppliedAt   time.Time
	Amount      decimal.Decimal
	Concept     Concept
	ID          string
	PaymentID   int64
	EntryID     int64
	LoanNumber  int64
	OperationID int64
}

// BankMovement is one amount reported on a bank statement.
type BankMovement struct {
	ReportedDate        time.Time
	CreatedAt           time.Time
	MatchedAt           *time.Time
	ReconciliationID    *int64
	Amount              decimal.Decimal
	ReconciliationState ReconciliationState
	BatchID             string
	Reference           string
	ID                  int64
}

// Matched reports whether the movement has already been reconciled.
func (m *BankMovement) Matched() bool {
	return m.ReconciliationState == ReconciliationMatched
}
