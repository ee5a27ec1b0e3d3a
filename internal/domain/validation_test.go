package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCurrency(t *testing.T) {
	t.Parallel()

	if err := ValidateCurrency("cop"); err != nil {
		t.Fatalf("expected uppercase conversion to succeed, got %v", err)
	}

	if err := ValidateCurrency("ZZZ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"valid", "150000", false},
		{"cents", "0.01", false},
		{"zero", "0", true},
		{"negative", "-5", true},
		{"too many places", "10.001", true},
		{"too large", "1000000000001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(dec(tt.amount))
			if tt.wantErr && !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateReference(t *testing.T) {
	t.Parallel()

	if err := ValidateReference("extracto-2024-03.csv"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateReference(strings.Repeat("x", MaxReferenceLen+1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset, err := ValidatePagination(0, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 50 || offset != 0 {
		t.Fatalf("expected defaults 50/0, got %d/%d", limit, offset)
	}

	limit, _, _ = ValidatePagination(5000, 0)
	if limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", limit)
	}
}

func TestParseSequenceDomain(t *testing.T) {
	t.Parallel()

	d, err := ParseSequenceDomain("loan")
	if err != nil || d != SequenceLoan {
		t.Fatalf("ParseSequenceDomain(loan) = %v, %v", d, err)
	}

	if _, err := ParseSequenceDomain("invoice"); !errors.Is(err, ErrUnknownSequenceDomain) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown domain validation error, got %v", err)
	}

	if err := CheckAdvance(SequenceLoan, 90020, 90019); !errors.Is(err, ErrCounterDecrease) {
		t.Fatalf("expected ErrCounterDecrease, got %v", err)
	}
	if err := CheckAdvance(SequenceLoan, 90020, 90020); err != nil {
		t.Fatalf("equal value should be allowed, got %v", err)
	}

	defaults := DefaultSequenceCounters()
	if defaults[SequenceLoan] != LoanNumberFloor || defaults[SequencePayment] != 1 {
		t.Fatalf("unexpected defaults: %v", defaults)
	}
}
