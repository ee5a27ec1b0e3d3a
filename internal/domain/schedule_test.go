package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerateSchedule_LevelPaymentExample(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DisbursementDate: date(2024, time.January, 10),
		Principal:        dec("2000000"),
		FirstInstallment: dec("400000"),
		AnnualRate:       dec("24"),
		TermMonths:       6,
		BillingDay:       15,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(lines) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(lines))
	}

	first := lines[0]
	if !first.Capital.Equal(dec("400000")) || !first.Interest.IsZero() {
		t.Fatalf("installment 1 = %s/%s, want 400000/0", first.Capital, first.Interest)
	}
	if !first.DueDate.Equal(date(2024, time.January, 10)) {
		t.Fatalf("installment 1 due %s, want disbursement date", first.DueDate)
	}

	want := []struct {
		capital, interest string
		due               time.Time
	}{
		{"307453.43", "32000.00", date(2024, time.February, 15)},
		{"313602.50", "25850.93", date(2024, time.March, 15)},
		{"319874.55", "19578.88", date(2024, time.April, 15)},
		{"326272.04", "13181.39", date(2024, time.May, 15)},
		{"332797.48", "6655.95", date(2024, time.June, 15)},
	}

	for i, w := range want {
		line := lines[i+1]
		if !line.Capital.Equal(dec(w.capital)) {
			t.Errorf("installment %d capital = %s, want %s", line.Number, line.Capital, w.capital)
		}
		if !line.Interest.Equal(dec(w.interest)) {
			t.Errorf("installment %d interest = %s, want %s", line.Number, line.Interest, w.interest)
		}
		if !line.DueDate.Equal(w.due) {
			t.Errorf("installment %d due = %s, want %s", line.Number, line.DueDate, w.due)
		}
	}

	for _, line := range lines[1:5] {
		if !line.Total().Equal(dec("339453.43")) {
			t.Errorf("installment %d total = %s, want level payment 339453.43", line.Number, line.Total())
		}
	}

	if !lines[5].Balance.IsZero() {
		t.Fatalf("expected final balance 0, got %s", lines[5].Balance)
	}
}

func TestGenerateSchedule_CapitalSumsToNetFinanced(t *testing.T) {
	cases := []ScheduleTerms{
		{Principal: dec("2000000"), FirstInstallment: dec("400000"), AnnualRate: dec("24"), TermMonths: 6, BillingDay: 15},
		{Principal: dec("1234567.89"), FirstInstallment: dec("0"), AnnualRate: dec("27.5"), TermMonths: 37, BillingDay: 31},
		{Principal: dec("850000"), FirstInstallment: dec("85000.55"), AnnualRate: dec("19.99"), TermMonths: 13, BillingDay: 5},
		{Principal: dec("999.99"), FirstInstallment: dec("0.01"), AnnualRate: dec("0"), TermMonths: 7, BillingDay: 28},
		{Principal: dec("50000000"), FirstInstallment: dec("10000000"), AnnualRate: dec("36"), TermMonths: 120, BillingDay: 1},
	}

	for _, terms := range cases {
		terms.DisbursementDate = date(2024, time.March, 3)
		lines, err := GenerateSchedule(terms)
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", terms, err)
		}

		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.Capital)
			if line.Interest.IsNegative() || line.Capital.IsNegative() {
				t.Fatalf("negative component in line %+v", line)
			}
		}

		if !total.Equal(terms.Principal) {
			t.Errorf("principal %s: capital sums to %s", terms.Principal, total)
		}
		if !lines[0].Interest.IsZero() || !lines[0].Capital.Equal(terms.FirstInstallment) {
			t.Errorf("installment 1 must be the first installment with no interest, got %+v", lines[0])
		}
	}
}

func TestGenerateSchedule_TailCapitalNeverOvershoots(t *testing.T) {
	cases := []ScheduleTerms{
		{Principal: dec("1.50"), AnnualRate: dec("0"), TermMonths: 201},
		{Principal: dec("0.07"), AnnualRate: dec("0"), TermMonths: 12},
		{Principal: dec("3.33"), FirstInstallment: dec("1"), AnnualRate: dec("0"), TermMonths: 480},
		{Principal: dec("10.00"), AnnualRate: dec("12"), TermMonths: 360},
		{Principal: dec("250"), AnnualRate: dec("0.5"), TermMonths: 480},
		{Principal: dec("75000000"), FirstInstallment: dec("5000000"), AnnualRate: dec("31.2"), TermMonths: 480},
	}

	for _, terms := range cases {
		terms.DisbursementDate = date(2024, time.May, 31)
		lines, err := GenerateSchedule(terms)
		if err != nil {
			t.Fatalf("unexpected error for %+v: %v", terms, err)
		}

		tail := decimal.Zero
		for _, line := range lines[1:] {
			tail = tail.Add(line.Capital)
			if line.Capital.IsNegative() || line.Balance.IsNegative() {
				t.Fatalf("principal %s term %d: line %d capital %s balance %s",
					terms.Principal, terms.TermMonths, line.Number, line.Capital, line.Balance)
			}
		}

		if net := terms.NetFinanced(); !tail.Equal(net) {
			t.Errorf("principal %s term %d: tail capital %s, net financed %s", terms.Principal, terms.TermMonths, tail, net)
		}
		if last := lines[len(lines)-1]; !last.Balance.IsZero() {
			t.Errorf("principal %s term %d: last balance %s", terms.Principal, terms.TermMonths, last.Balance)
		}
	}
}

func TestGenerateSchedule_ZeroRateIsStraightLine(t *testing.T) {
	lines, err := GenerateSchedule(ScheduleTerms{
		DisbursementDate: date(2024, time.January, 1),
		Principal:        dec("1000"),
		FirstInstallment: dec("100"),
		AnnualRate:       decimal.Zero,
		TermMonths:       4,
		BillingDay:       10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, line := range lines[1:] {
		if !line.Capital.Equal(dec("300")) || !line.Interest.IsZero() {
			t.Fatalf("installment %d = %s/%s, want 300/0", line.Number, line.Capital, line.Interest)
		}
	}
}

func TestGenerateSchedule_EdgeCases(t *testing.T) {
	base := ScheduleTerms{
		DisbursementDate: date(2024, time.January, 1),
		Principal:        dec("1000"),
		FirstInstallment: dec("200"),
		AnnualRate:       dec("12"),
		BillingDay:       10,
	}

	t.Run("term zero yields installment 1 only", func(t *testing.T) {
		terms := base
		terms.TermMonths = 0
		lines, err := GenerateSchedule(terms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(lines))
		}
	})

	t.Run("nothing financed yields no tail", func(t *testing.T) {
		terms := base
		terms.FirstInstallment = terms.Principal
		terms.TermMonths = 12
		lines, err := GenerateSchedule(terms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(lines))
		}
	})

	t.Run("insurance and fee ride on every installment", func(t *testing.T) {
		terms := base
		terms.TermMonths = 3
		terms.InsurancePerPeriod = dec("12.5")
		terms.FeePerPeriod = dec("3")
		lines, err := GenerateSchedule(terms)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, line := range lines {
			if !line.Insurance.Equal(dec("12.5")) || !line.Fee.Equal(dec("3")) {
				t.Fatalf("installment %d missing insurance or fee: %+v", line.Number, line)
			}
		}
	})

	t.Run("invalid terms", func(t *testing.T) {
		invalid := []ScheduleTerms{
			{DisbursementDate: base.DisbursementDate, Principal: decimal.Zero},
			{DisbursementDate: base.DisbursementDate, Principal: dec("10"), FirstInstallment: dec("11")},
			{DisbursementDate: base.DisbursementDate, Principal: dec("10"), AnnualRate: dec("-1")},
			{DisbursementDate: base.DisbursementDate, Principal: dec("10"), TermMonths: -1},
			{DisbursementDate: base.DisbursementDate, Principal: dec("10"), BillingDay: 32},
			{Principal: dec("10")},
		}
		for _, terms := range invalid {
			_, err := GenerateSchedule(terms)
			if !errors.Is(err, ErrInvalidTerms) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrInvalidTerms for %+v, got %v", terms, err)
			}
		}
	})
}

func TestInstallmentDueDate(t *testing.T) {
	tests := []struct {
		name       string
		disbursed  time.Time
		months     int
		billingDay int
		want       time.Time
	}{
		{"billing day applied", date(2024, time.January, 10), 1, 15, date(2024, time.February, 15)},
		{"billing day above 28 clamps", date(2024, time.January, 31), 1, 31, date(2024, time.February, 28)},
		{"year rollover", date(2024, time.November, 5), 3, 20, date(2025, time.February, 20)},
		{"no billing day falls back to month end", date(2024, time.January, 31), 1, 0, date(2024, time.February, 29)},
		{"no billing day keeps day", date(2023, time.March, 15), 2, 0, date(2023, time.May, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InstallmentDueDate(tt.disbursed, tt.months, tt.billingDay); !got.Equal(tt.want) {
				t.Fatalf("InstallmentDueDate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPeriodicRate(t *testing.T) {
	if got := PeriodicRate(dec("24")); !got.Equal(dec("0.02")) {
		t.Fatalf("PeriodicRate(24) = %s, want 0.02", got)
	}
	if got := PeriodicRate(dec("12")); !got.Equal(dec("0.01")) {
		t.Fatalf("PeriodicRate(12) = %s, want 0.01", got)
	}
}
