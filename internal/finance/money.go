package finance

import (
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/coffer/internal/errors"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when settings carry no currency.
const DefaultCurrency = "USD"

// FormatAmount renders amount in currency's conventional format, for
// example "$1,234.50" or "1.234,50 €". Unknown codes fall back to
// "1234.50 XYZ".
func FormatAmount(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}

	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}

	fraction := int32(cur.Fraction)
	minor := amount.Round(fraction).Shift(fraction)
	return cur.Formatter().Format(minor.IntPart())
}

// ParseAmount parses a non-negative decimal amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", kerrors.ErrValidation, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must not be negative", kerrors.ErrValidation)
	}
	return d, nil
}

// NormalizeCurrency upper-cases code and checks it is an ISO 4217 code
// go-money knows about.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		return "", fmt.Errorf("%w: unknown currency %q", kerrors.ErrValidation, code)
	}
	return code, nil
}
