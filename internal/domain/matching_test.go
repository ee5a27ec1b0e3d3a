package domain

import (
	"errors"
	"reflect"
	"testing"
)

func candidates(amounts ...string) []MatchCandidate {
	out := make([]MatchCandidate, len(amounts))
	for i, a := range amounts {
		out[i] = MatchCandidate{ID: int64(100 + i), Amount: dec(a)}
	}
	return out
}

func TestMatchExactSum(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		pool         []MatchCandidate
		threshold    int
		wantMatched  bool
		wantIDs      []int64
		wantStrategy string
		wantPool     int
	}{
		{
			name:         "exact pair",
			target:       "150000",
			pool:         candidates("50000", "100000", "75000"),
			wantMatched:  true,
			wantIDs:      []int64{100, 101},
			wantStrategy: MatchStrategyExact,
			wantPool:     3,
		},
		{
			name:         "single candidate",
			target:       "75000",
			pool:         candidates("50000", "100000", "75000"),
			wantMatched:  true,
			wantIDs:      []int64{102},
			wantStrategy: MatchStrategyExact,
			wantPool:     3,
		},
		{
			name:         "cents are exact",
			target:       "100.30",
			pool:         candidates("0.10", "0.20", "100.10", "100.00"),
			wantMatched:  true,
			wantIDs:      []int64{101, 102},
			wantStrategy: MatchStrategyExact,
			wantPool:     4,
		},
		{
			name:         "greedy above threshold",
			target:       "150000",
			pool:         candidates("50000", "100000", "75000"),
			threshold:    2,
			wantMatched:  true,
			wantIDs:      []int64{100, 101},
			wantStrategy: MatchStrategyGreedy,
			wantPool:     3,
		},
		{
			name:        "greedy misses a combination that exists",
			target:      "150",
			pool:        candidates("100", "75", "75"),
			threshold:   2,
			wantMatched: false,
			wantPool:    3,
		},
		{
			name:         "exact search finds what greedy misses",
			target:       "150",
			pool:         candidates("100", "75", "75"),
			wantMatched:  true,
			wantIDs:      []int64{101, 102},
			wantStrategy: MatchStrategyExact,
			wantPool:     3,
		},
		{
			name:         "duplicates prefer earliest candidate",
			target:       "100",
			pool:         candidates("100", "100"),
			wantMatched:  true,
			wantIDs:      []int64{100},
			wantStrategy: MatchStrategyExact,
			wantPool:     2,
		},
		{
			name:        "non-positive candidates excluded",
			target:      "50",
			pool:        candidates("0", "-50", "25"),
			wantMatched: false,
			wantPool:    1,
		},
		{
			name:        "no combination",
			target:      "10",
			pool:        candidates("3", "4"),
			wantMatched: false,
			wantPool:    2,
		},
		{
			name:        "non-positive target",
			target:      "0",
			pool:        candidates("1"),
			wantMatched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchExactSum(dec(tt.target), tt.pool, MatchOptions{Currency: "USD", ExactThreshold: tt.threshold})

			if got.Matched != tt.wantMatched {
				t.Fatalf("matched = %v, want %v (%s)", got.Matched, tt.wantMatched, got.Message)
			}
			if got.PoolSize != tt.wantPool {
				t.Fatalf("pool size = %d, want %d", got.PoolSize, tt.wantPool)
			}
			if got.Message == "" {
				t.Fatalf("expected a diagnostic message")
			}
			if !tt.wantMatched {
				if len(got.IDs) != 0 {
					t.Fatalf("negative result must not carry IDs, got %v", got.IDs)
				}
				return
			}
			if !reflect.DeepEqual(got.IDs, tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", got.IDs, tt.wantIDs)
			}
			if got.Strategy != tt.wantStrategy {
				t.Fatalf("strategy = %s, want %s", got.Strategy, tt.wantStrategy)
			}
			if !got.Total.Equal(dec(tt.target)) {
				t.Fatalf("total = %s, want %s", got.Total, tt.target)
			}
		})
	}
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"150000", "USD", 15000000},
		{"12.345", "USD", 1235},
		{"1500", "JPY", 1500},
	}

	for _, tt := range tests {
		got, err := ToMinorUnits(dec(tt.amount), tt.currency)
		if err != nil {
			t.Fatalf("ToMinorUnits(%s, %s) error: %v", tt.amount, tt.currency, err)
		}
		if got != tt.want {
			t.Fatalf("ToMinorUnits(%s, %s) = %d, want %d", tt.amount, tt.currency, got, tt.want)
		}
	}

	if _, err := ToMinorUnits(dec("1"), "ZZZ"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown currency, got %v", err)
	}
}
