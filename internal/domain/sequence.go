package domain

import "fmt"

// SequenceDomain names one counter in the singleton sequence row.
type SequenceDomain string

const (
	SequenceLoan        SequenceDomain = "loan"
	SequenceOperation   SequenceDomain = "operation"
	SequenceTransaction SequenceDomain = "transaction"
	SequenceSettlement  SequenceDomain = "settlement"
	SequencePayment     SequenceDomain = "payment"
	SequenceAux1        SequenceDomain = "aux1"
	SequenceAux2        SequenceDomain = "aux2"
	SequenceAux3        SequenceDomain = "aux3"
	SequenceAux4        SequenceDomain = "aux4"
	SequenceAux5        SequenceDomain = "aux5"

	// SequenceMovement shares an auxiliary slot.
	SequenceMovement = SequenceAux1
)

// LoanNumberFloor reserves the low range of loan numbers for legacy loans.
const LoanNumberFloor int64 = 90000

// SequenceDomains lists every counter column in storage order.
var SequenceDomains = []SequenceDomain{
	SequenceLoan,
	SequenceOperation,
	SequenceTransaction,
	SequenceSettlement,
	SequencePayment,
	SequenceAux1,
	SequenceAux2,
	SequenceAux3,
	SequenceAux4,
	SequenceAux5,
}

// ParseSequenceDomain validates a domain name.
func ParseSequenceDomain(name string) (SequenceDomain, error) {
	for _, d := range SequenceDomains {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSequenceDomain, name)
}

// SequenceCounters is the singleton counter row.
type SequenceCounters map[SequenceDomain]int64

// DefaultSequenceCounters are the values the row is created with.
func DefaultSequenceCounters() SequenceCounters {
	counters := make(SequenceCounters, len(SequenceDomains))
	for _, d := range SequenceDomains {
		counters[d] = 1
	}
	counters[SequenceLoan] = LoanNumberFloor
	return counters
}

// CheckAdvance rejects moving a counter backwards.
func CheckAdvance(d SequenceDomain, current, next int64) error {
	if next < current {
		return fmt.Errorf("%w: %s from %d to %d", ErrCounterDecrease, d, current, next)
	}
	return nil
}
