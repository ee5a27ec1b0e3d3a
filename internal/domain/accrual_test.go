package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func disbursedLoan() *Loan {
	return &Loan{
		Number:           90020,
		Principal:        dec("1000000"),
		FirstInstallment: decimal.Zero,
		AnnualRate:       dec("24"),
		TermMonths:       12,
		BillingDay:       15,
		DisbursementDate: date(2024, time.January, 1),
		State:            LoanStateDisbursed,
	}
}

func TestComputeAccrual(t *testing.T) {
	marker := date(2024, time.January, 16)

	tests := []struct {
		name      string
		mutate    func(*Loan)
		cutoff    time.Time
		settled   string
		wantDays  int
		wantValue string
		wantErr   error
	}{
		{
			name:      "full month from disbursement",
			cutoff:    date(2024, time.January, 31),
			settled:   "0",
			wantDays:  30,
			wantValue: "20000",
		},
		{
			name:      "repaid capital reduces base",
			mutate:    func(l *Loan) { l.LastAccrualDate = &marker },
			cutoff:    date(2024, time.January, 31),
			settled:   "400000",
			wantDays:  15,
			wantValue: "6000",
		},
		{
			name:      "suspended loan closes with zero",
			mutate:    func(l *Loan) { l.AccrualSuspended = true },
			cutoff:    date(2024, time.January, 31),
			settled:   "0",
			wantDays:  30,
			wantValue: "0",
		},
		{
			name:      "written off loan closes with zero",
			mutate:    func(l *Loan) { l.WrittenOff = true },
			cutoff:    date(2024, time.February, 10),
			settled:   "0",
			wantDays:  40,
			wantValue: "0",
		},
		{
			name:    "cutoff at marker is already closed",
			mutate:  func(l *Loan) { l.LastAccrualDate = &marker },
			cutoff:  marker,
			settled: "0",
			wantErr: ErrPeriodAlreadyClosed,
		},
		{
			name:    "cutoff before disbursement",
			cutoff:  date(2023, time.December, 31),
			settled: "0",
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := disbursedLoan()
			if tt.mutate != nil {
				tt.mutate(loan)
			}

			period, err := ComputeAccrual(loan, tt.cutoff, dec(tt.settled))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if period.Days != tt.wantDays {
				t.Fatalf("days = %d, want %d", period.Days, tt.wantDays)
			}
			if !period.Interest.Equal(dec(tt.wantValue)) {
				t.Fatalf("interest = %s, want %s", period.Interest, tt.wantValue)
			}
		})
	}
}

func TestAccruedInterest_RoundsToCents(t *testing.T) {
	// 333333.33 * 0.02 * 7/30 = 1555.555540
	got := AccruedInterest(dec("333333.33"), dec("24"), 7)
	if !got.Equal(dec("1555.56")) {
		t.Fatalf("AccruedInterest = %s, want 1555.56", got)
	}

	if got := AccruedInterest(dec("100"), dec("24"), 0); !got.IsZero() {
		t.Fatalf("zero days should accrue nothing, got %s", got)
	}
}
