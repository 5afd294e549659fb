package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	errs "balanceledger/internal/domain/error"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for amounts
const MaxDecimalPlaces = 2

// ParseAmount validates a client-supplied amount string and converts it to a
// decimal. Amounts must be strictly positive and carry at most two decimal
// places.
func ParseAmount(amount string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a valid number", errs.ErrInvalidAmount, trimmed)
	}

	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}

	if d.Exponent() < -MaxDecimalPlaces {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}

	return d, nil
}

// FormatAmount renders a decimal the way the API reports balances, without
// trailing zero padding ("1", not "1.00")
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
