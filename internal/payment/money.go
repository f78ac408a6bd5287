package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when a caller does not name one.
const DefaultCurrency = "USD"

const (
	maxAmountLiteral  = 32
	maxIntegerDigits  = 8
	maxFractionDigits = 8
)

// MaxAmount is the largest donation accepted, in major units.
var MaxAmount = decimal.RequireFromString("99999999.99")

// Money is a positive decimal amount in major units of an ISO 4217 currency.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// NewMoney validates amount and currency code. An empty code selects DefaultCurrency.
func NewMoney(amount decimal.Decimal, code string) (Money, error) {
	if err := checkAmount(amount); err != nil {
		return Money{}, err
	}
	unit, err := ParseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: unit}, nil
}

// FromMinorUnits builds Money from a provider amount expressed in minor units.
func FromMinorUnits(units int64, code string) (Money, error) {
	unit, err := ParseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: decimal.New(units, -scaleOf(unit)), Currency: unit}, nil
}

// ParseCurrency parses a three letter ISO code, case-insensitively.
func ParseCurrency(code string) (currency.Unit, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return unit, nil
}

// ParseAmount parses a plain decimal amount in major units. Non-numeric,
// exponent notation, empty, non-positive and out of range input all fail with
// ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if len(raw) > maxAmountLiteral || strings.ContainsAny(raw, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q is not a plain decimal", ErrInvalidAmount, truncate(raw))
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// checkAmount bounds digit count and exponent before comparing against MaxAmount.
func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	exp := int64(amount.Exponent())
	if exp < -maxFractionDigits {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, maxFractionDigits)
	}
	if int64(amount.NumDigits())+exp > maxIntegerDigits || amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: must not exceed %s", ErrInvalidAmount, MaxAmount)
	}
	return nil
}

func truncate(s string) string {
	if len(s) > maxAmountLiteral {
		return s[:maxAmountLiteral] + "..."
	}
	return s
}

// MinorUnits converts a major-unit amount using the given scale. Rounding is
// half away from zero on the decimal value: 0.004 -> 0, 0.005 -> 1, 0.285 -> 29.
func MinorUnits(amount decimal.Decimal, scale int32) int64 {
	return amount.Shift(scale).Round(0).IntPart()
}

// Scale is the number of minor-unit digits of the currency (2 for USD, 0 for JPY).
func (m Money) Scale() int32 {
	return scaleOf(m.Currency)
}

// MinorUnits returns the amount in the currency's minor units.
func (m Money) MinorUnits() int64 {
	return MinorUnits(m.Amount, m.Scale())
}

// Value formats the amount with exactly Scale() fractional digits.
func (m Money) Value() string {
	return m.Amount.StringFixed(m.Scale())
}

// Code returns the upper-case ISO code.
func (m Money) Code() string {
	return m.Currency.String()
}

// IsZero reports whether m carries no amount, e.g. when a provider did not report one.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Covers reports whether a settled provider amount matches a requested major-unit
// amount once the request is rounded to the currency's minor unit.
func (m Money) Covers(requested decimal.Decimal) bool {
	return m.Amount.Equal(requested.Round(m.Scale()))
}

func (m Money) String() string {
	return m.Value() + " " + m.Code()
}

func scaleOf(unit currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}
