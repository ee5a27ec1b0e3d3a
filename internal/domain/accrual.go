package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccrualPeriod is the computed closure of one interest period.
type AccrualPeriod struct {
	Start       time.Time
	Cutoff      time.Time
	Outstanding decimal.Decimal
	Interest    decimal.Decimal
	Days        int
}

// AccruedInterest is outstanding * periodic rate * days/30, rounded to cents.
func AccruedInterest(outstanding, annualRate decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 || !outstanding.IsPositive() {
		return decimal.Zero
	}
	return outstanding.
		Mul(PeriodicRate(annualRate)).
		Mul(decimal.NewFromInt(int64(days))).
		Div(monthDayFactor).
		Round(moneyPlaces)
}

// ComputeAccrual closes the period from the loan's accrual start to cutoff.
// settledCapital is the capital repaid on or before cutoff. Loans that do not accrue
// still close the period but with zero interest.
func ComputeAccrual(loan *Loan, cutoff time.Time, settledCapital decimal.Decimal) (AccrualPeriod, error) {
	cutoff = DateOnly(cutoff)
	if cutoff.Before(DateOnly(loan.DisbursementDate)) {
		return AccrualPeriod{}, fmt.Errorf("%w: cutoff %s precedes disbursement", ErrInvalidDate, cutoff.Format(time.DateOnly))
	}

	start := loan.AccrualStart()
	if !cutoff.After(start) {
		return AccrualPeriod{}, fmt.Errorf("%w: loan %d already accrued through %s",
			ErrPeriodAlreadyClosed, loan.Number, start.Format(time.DateOnly))
	}

	outstanding := decimal.Max(loan.Principal.Sub(settledCapital), decimal.Zero)
	days := DaysBetween(start, cutoff)

	period := AccrualPeriod{
		Start:       start,
		Cutoff:      cutoff,
		Days:        days,
		Outstanding: outstanding,
		Interest:    decimal.Zero,
	}
	if loan.AccruesInterest() {
		period.Interest = AccruedInterest(outstanding, loan.AnnualRate, days)
	}

	return period, nil
}
