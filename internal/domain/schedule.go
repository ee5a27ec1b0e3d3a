package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxBillingDay is the last day of month a tail installment may fall on.
	MaxBillingDay = 28
	// MaxTermMonths caps the schedule length.
	MaxTermMonths = 480

	moneyPlaces    = 2
	rateWorkPlaces = 20
)

var (
	oneDecimal     = decimal.NewFromInt(1)
	monthDayFactor = decimal.NewFromInt(30)
	// percent (100) times the 360-day year
	rateDivisor = decimal.NewFromInt(36000)
)

// ScheduleTerms are the disbursement terms a schedule is generated from.
type ScheduleTerms struct {
	DisbursementDate   time.Time
	Principal          decimal.Decimal
	FirstInstallment   decimal.Decimal
	AnnualRate         decimal.Decimal // nominal annual percentage, 24 means 24%
	InsurancePerPeriod decimal.Decimal
	FeePerPeriod       decimal.Decimal
	TermMonths         int
	BillingDay         int
}

// InstallmentLine is one row of an amortization plan.
type InstallmentLine struct {
	DueDate   time.Time
	Capital   decimal.Decimal
	Interest  decimal.Decimal
	Insurance decimal.Decimal
	Fee       decimal.Decimal
	Balance   decimal.Decimal // outstanding capital after this installment
	Number    int
}

// Total returns the amount due for the installment.
func (l InstallmentLine) Total() decimal.Decimal {
	return l.Capital.Add(l.Interest).Add(l.Insurance).Add(l.Fee)
}

// Validate checks the terms are internally consistent.
func (t ScheduleTerms) Validate() error {
	switch {
	case !t.Principal.IsPositive():
		return fmt.Errorf("%w: principal must be positive", ErrInvalidTerms)
	case t.FirstInstallment.IsNegative():
		return fmt.Errorf("%w: first installment cannot be negative", ErrInvalidTerms)
	case t.FirstInstallment.GreaterThan(t.Principal):
		return fmt.Errorf("%w: first installment exceeds principal", ErrInvalidTerms)
	case t.AnnualRate.IsNegative():
		return fmt.Errorf("%w: rate cannot be negative", ErrInvalidTerms)
	case t.TermMonths < 0 || t.TermMonths > MaxTermMonths:
		return fmt.Errorf("%w: term must be between 0 and %d months", ErrInvalidTerms, MaxTermMonths)
	case t.BillingDay < 0 || t.BillingDay > 31:
		return fmt.Errorf("%w: billing day must be between 0 and 31", ErrInvalidTerms)
	case t.InsurancePerPeriod.IsNegative() || t.FeePerPeriod.IsNegative():
		return fmt.Errorf("%w: insurance and fee cannot be negative", ErrInvalidTerms)
	case t.DisbursementDate.IsZero():
		return fmt.Errorf("%w: disbursement date is required", ErrInvalidTerms)
	}
	return nil
}

// NetFinanced is the principal left after the first installment.
func (t ScheduleTerms) NetFinanced() decimal.Decimal {
	return t.Principal.Sub(t.FirstInstallment).Round(moneyPlaces)
}

// PeriodicRate converts a nominal annual percentage into the monthly rate
// under the 30/360 convention.
func PeriodicRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Mul(monthDayFactor).Div(rateDivisor).Round(rateWorkPlaces)
}

// LevelPayment returns the French amortization installment for amount over n periods.
func LevelPayment(amount, rate decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if rate.IsZero() {
		return amount.Div(decimal.NewFromInt(int64(n))).Round(moneyPlaces)
	}

	growth := oneDecimal
	factor := oneDecimal.Add(rate)
	for i := 0; i < n; i++ {
		growth = growth.Mul(factor).Round(rateWorkPlaces)
	}

	// amount*r/(1-(1+r)^-n) == amount*r*g/(g-1)
	return amount.Mul(rate).Mul(growth).Div(growth.Sub(oneDecimal)).Round(moneyPlaces)
}

// GenerateSchedule computes the amortization plan for the given terms.
// Installment 1 always carries the first-installment amount with zero interest
// and is due on the disbursement date. The tail amortizes the net financed
// amount with a level payment; the last line absorbs rounding residue.
func GenerateSchedule(terms ScheduleTerms) ([]InstallmentLine, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	disbursed := DateOnly(terms.DisbursementDate)
	net := terms.NetFinanced()

	lines := make([]InstallmentLine, 0, max(terms.TermMonths, 1))
	lines = append(lines, InstallmentLine{
		Number:    1,
		DueDate:   disbursed,
		Capital:   terms.FirstInstallment.Round(moneyPlaces),
		Interest:  decimal.Zero,
		Insurance: terms.InsurancePerPeriod,
		Fee:       terms.FeePerPeriod,
		Balance:   net,
	})

	tail := terms.TermMonths - 1
	if tail <= 0 || !net.IsPositive() {
		return lines, nil
	}

	rate := PeriodicRate(terms.AnnualRate)
	payment := LevelPayment(net, rate, tail)
	balance := net

	for i := 1; i <= tail; i++ {
		var capital, interest decimal.Decimal

		if i == tail {
			capital = balance
			interest = decimal.Max(payment.Sub(capital), decimal.Zero)
		} else {
			interest = balance.Mul(rate).Round(moneyPlaces)
			// a rounded-up payment can retire the balance before the last line
			capital = decimal.Min(payment.Sub(interest).Round(moneyPlaces), balance)
		}

		balance = balance.Sub(capital)

		lines = append(lines, InstallmentLine{
			Number:    i + 1,
			DueDate:   InstallmentDueDate(disbursed, i, terms.BillingDay),
			Capital:   capital,
			Interest:  interest,
			Insurance: terms.InsurancePerPeriod,
			Fee:       terms.FeePerPeriod,
			Balance:   balance,
		})
	}

	return lines, nil
}

// InstallmentDueDate returns the due date of the i-th tail installment.
// The day is forced to billingDay, capped at MaxBillingDay; a billing day
// outside 1..31 keeps the month-end clamped date.
func InstallmentDueDate(disbursed time.Time, months, billingDay int) time.Time {
	due := AddMonths(disbursed, months)
	if billingDay < 1 || billingDay > 31 {
		return due
	}

	day := min(billingDay, MaxBillingDay)
	if last := daysIn(due.Year(), due.Month()); day > last {
		day = last
	}

	return time.Date(due.Year(), due.Month(), day, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds calendar months, clamping to the last day of the target month.
func AddMonths(t time.Time, months int) time.Time {
	t = DateOnly(t)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	day := min(t.Day(), daysIn(first.Year(), first.Month()))
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours() / 24)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
