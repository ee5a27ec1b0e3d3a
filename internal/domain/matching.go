package domain

import (
	"fmt"
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultExactMatchThreshold is the largest pool searched exhaustively.
const DefaultExactMatchThreshold = 40

// Match strategies reported in MatchResult.
const (
	MatchStrategyExact  = "exact"
	MatchStrategyGreedy = "greedy"
)

// MatchCandidate is an unmatched record offered to the matcher.
type MatchCandidate struct {
	Amount decimal.Decimal
	ID     int64
}

// MatchOptions tunes the matcher.
type MatchOptions struct {
	Currency       string
	ExactThreshold int
}

// MatchResult is the outcome of a match attempt. A failed match is a normal
// result, not an error.
type MatchResult struct {
	Total    decimal.Decimal
	Strategy string
	Message  string
	Indices  []int
	IDs      []int64
	PoolSize int
	Matched  bool
}

// ToMinorUnits converts amount into integer minor units of currency.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return 0, fmt.Errorf("%w: unknown currency %q", ErrValidation, currency)
	}
	return amount.Shift(int32(cur.Fraction)).Round(0).IntPart(), nil
}

// DisplayMinor renders minor units using the currency's format.
func DisplayMinor(minor int64, currency string) string {
	return money.New(minor, currency).Display()
}

type poolItem struct {
	index int
	minor int64
}

// MatchExactSum looks for a subset of candidates whose amounts add up to
// target exactly. Pools up to the threshold get an incremental subset-sum
// search where the first combination found wins. Larger pools, or pools the
// search cannot satisfy, fall back to a greedy pass over amounts in
// descending order. The greedy pass can miss combinations that exist.
func MatchExactSum(target decimal.Decimal, candidates []MatchCandidate, opts MatchOptions) MatchResult {
	if opts.ExactThreshold <= 0 {
		opts.ExactThreshold = DefaultExactMatchThreshold
	}
	if opts.Currency == "" {
		opts.Currency = money.COP
	}

	targetMinor, err := ToMinorUnits(target, opts.Currency)
	if err != nil {
		return MatchResult{Message: err.Error()}
	}
	if targetMinor <= 0 {
		return MatchResult{Message: "movement amount must be positive"}
	}

	pool := make([]poolItem, 0, len(candidates))
	for i, c := range candidates {
		minor, err := ToMinorUnits(c.Amount, opts.Currency)
		if err != nil || minor <= 0 {
			continue
		}
		pool = append(pool, poolItem{index: i, minor: minor})
	}

	var (
		picked   []int
		strategy string
	)

	if len(pool) <= opts.ExactThreshold {
		picked = subsetSum(pool, targetMinor)
		strategy = MatchStrategyExact
	}
	if picked == nil {
		picked = greedyDescending(pool, targetMinor)
		strategy = MatchStrategyGreedy
	}

	if picked == nil {
		return MatchResult{
			PoolSize: len(pool),
			Message: fmt.Sprintf("no combination of %d candidates sums to %s",
				len(pool), DisplayMinor(targetMinor, opts.Currency)),
		}
	}

	sort.Ints(picked)
	result := MatchResult{
		Matched:  true,
		Strategy: strategy,
		Indices:  picked,
		IDs:      make([]int64, 0, len(picked)),
		Total:    decimal.Zero,
		PoolSize: len(pool),
	}
	for _, idx := range picked {
		result.IDs = append(result.IDs, candidates[idx].ID)
		result.Total = result.Total.Add(candidates[idx].Amount)
	}
	result.Message = fmt.Sprintf("matched %d of %d candidates for %s",
		len(picked), len(pool), DisplayMinor(targetMinor, opts.Currency))

	return result
}

// subsetSum extends a map of reachable sums one candidate at a time and
// returns as soon as target is reached. Sums are visited in insertion order
// so the result is deterministic.
func subsetSum(pool []poolItem, target int64) []int {
	reached := map[int64][]int{0: {}}
	order := []int64{0}

	for _, item := range pool {
		snapshot := len(order)
		for k := 0; k < snapshot; k++ {
			sum := order[k]
			next := sum + item.minor
			if next == target {
				return append(append([]int(nil), reached[sum]...), item.index)
			}
			if next > target {
				continue
			}
			if _, seen := reached[next]; seen {
				continue
			}
			reached[next] = append(append([]int(nil), reached[sum]...), item.index)
			order = append(order, next)
		}
	}

	return nil
}

func greedyDescending(pool []poolItem, target int64) []int {
	sorted := append([]poolItem(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].minor > sorted[j].minor
	})

	var (
		total  int64
		picked []int
	)
	for _, item := range sorted {
		if total+item.minor > target {
			continue
		}
		total += item.minor
		picked = append(picked, item.index)
		if total == target {
			return picked
		}
	}

	return nil
}
