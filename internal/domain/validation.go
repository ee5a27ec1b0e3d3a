package domain

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Limits applied to amounts and free-text fields.
const (
	MaxAmount       = "1000000000000"
	MinAmount       = "0.01"
	MaxReferenceLen = 255

	MaxPageSize     = 1000
	DefaultPageSize = 50
)

var (
	minAmount = decimal.RequireFromString(MinAmount)
	maxAmount = decimal.RequireFromString(MaxAmount)
)

// ValidateCurrency validates an ISO 4217 code against the currencies go-money knows.
func ValidateCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if money.GetCurrency(currency) == nil {
		return fmt.Errorf("%w: %s is not a valid ISO 4217 currency code", ErrValidation, currency)
	}

	return nil
}

// ValidateAmount validates a payment or movement amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrInvalidAmount, MinAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount)
	}

	if !amount.Equal(amount.Round(moneyPlaces)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, moneyPlaces)
	}

	return nil
}

// ValidateReference validates free-text references such as source files.
func ValidateReference(ref string) error {
	if len(ref) > MaxReferenceLen {
		return fmt.Errorf("%w: reference exceeds %d characters", ErrValidation, MaxReferenceLen)
	}
	return nil
}

// ValidatePagination clamps a page request to DefaultPageSize and MaxPageSize.
func ValidatePagination(limit, offset int) (int, int, error) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return limit, max(offset, 0), nil
}
