package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LoanState is the lifecycle state of a loan.
type LoanState string

const (
	LoanStateElaboration LoanState = "ELABORATION"
	LoanStateToDisburse  LoanState = "TO_DISBURSE"
	LoanStateDisbursed   LoanState = "DISBURSED"
	LoanStateCancelled   LoanState = "CANCELLED"
)

var loanTransitions = map[LoanState][]LoanState{
	LoanStateElaboration: {LoanStateToDisburse},
	LoanStateToDisburse:  {LoanStateDisbursed},
	LoanStateDisbursed:   {LoanStateCancelled},
	LoanStateCancelled:   {LoanStateDisbursed},
}

// Valid reports whether s is a known state.
func (s LoanState) Valid() bool {
	_, ok := loanTransitions[s]
	return ok
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s LoanState) CanTransitionTo(next LoanState) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Loan is a disbursement and servicing record.
type Loan struct {
	DisbursementDate   time.Time
	MaturityDate       *time.Time
	LastAccrualDate    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Principal          decimal.Decimal
	FirstInstallment   decimal.Decimal
	AnnualRate         decimal.Decimal
	InsurancePerPeriod decimal.Decimal
	FeePerPeriod       decimal.Decimal
	State              LoanState
	CreatedBy          string
	Number             int64
	TermMonths         int
	BillingDay         int
	AccrualSuspended   bool
	WrittenOff         bool
}

// ScheduleTerms extracts the terms the schedule generator needs.
func (l *Loan) ScheduleTerms() ScheduleTerms {
	return ScheduleTerms{
		DisbursementDate:   l.DisbursementDate,
		Principal:          l.Principal,
		FirstInstallment:   l.FirstInstallment,
		AnnualRate:         l.AnnualRate,
		InsurancePerPeriod: l.InsurancePerPeriod,
		FeePerPeriod:       l.FeePerPeriod,
		TermMonths:         l.TermMonths,
		BillingDay:         l.BillingDay,
	}
}

// TermsEditable reports whether the loan terms may still change.
func (l *Loan) TermsEditable() bool {
	return l.State == LoanStateElaboration || l.State == LoanStateToDisburse
}

// TransitionTo moves the loan to next or returns ErrInvalidStateTransition.
func (l *Loan) TransitionTo(next LoanState, at time.Time) error {
	if !l.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, l.State, next)
	}
	l.State = next
	l.UpdatedAt = at
	return nil
}

// AccrualStart is the date interest accrues from: the last closed cutoff,
// or the disbursement date when nothing has been closed yet.
func (l *Loan) AccrualStart() time.Time {
	if l.LastAccrualDate != nil {
		return DateOnly(*l.LastAccrualDate)
	}
	return DateOnly(l.DisbursementDate)
}

// AccruesInterest is false for suspended or written-off loans.
func (l *Loan) AccruesInterest() bool {
	return !l.AccrualSuspended && !l.WrittenOff
}

// LoanTermsUpdate carries editable fields; nil means unchanged.
type LoanTermsUpdate struct {
	DisbursementDate   *time.Time
	Principal          *decimal.Decimal
	FirstInstallment   *decimal.Decimal
	AnnualRate         *decimal.Decimal
	InsurancePerPeriod *decimal.Decimal
	FeePerPeriod       *decimal.Decimal
	TermMonths         *int
	BillingDay         *int
}

// ApplyTerms updates editable fields, rejecting changes after disbursement.
func (l *Loan) ApplyTerms(u LoanTermsUpdate, at time.Time) error {
	if !l.TermsEditable() {
		return fmt.Errorf("%w: loan %d is %s", ErrLoanImmutable, l.Number, l.State)
	}

	updated := *l
	if u.DisbursementDate != nil {
		updated.DisbursementDate = DateOnly(*u.DisbursementDate)
	}
	if u.Principal != nil {
		updated.Principal = *u.Principal
	}
	if u.FirstInstallment != nil {
		updated.FirstInstallment = *u.FirstInstallment
	}
	if u.AnnualRate != nil {
		updated.AnnualRate = *u.AnnualRate
	}
	if u.InsurancePerPeriod != nil {
		updated.InsurancePerPeriod = *u.InsurancePerPeriod
	}
	if u.FeePerPeriod != nil {
		updated.FeePerPeriod = *u.FeePerPeriod
	}
	if u.TermMonths != nil {
		updated.TermMonths = *u.TermMonths
	}
	if u.BillingDay != nil {
		updated.BillingDay = *u.BillingDay
	}

	if err := updated.ScheduleTerms().Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = at
	*l = updated
	return nil
}
