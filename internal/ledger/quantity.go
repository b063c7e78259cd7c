package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity validates a user-entered quantity. It must be a decimal
// number strictly greater than zero. The returned string is the trimmed input.
func ParseQuantity(input string) (string, decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", decimal.Zero, &ValidationError{Reason: "quantity is required"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", decimal.Zero, &ValidationError{Input: s, Reason: "not a number"}
	}
	if d.Sign() <= 0 {
		return "", decimal.Zero, &ValidationError{Input: s, Reason: "must be greater than zero"}
	}
	return s, d, nil
}
