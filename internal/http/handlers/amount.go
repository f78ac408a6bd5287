package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"donation-api/internal/payment"
)

// parseAmount accepts a JSON number or a numeric string holding a positive
// amount in major units. The literal is parsed as a decimal, never as float64.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, payment.ErrInvalidAmount
	}
	literal := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &literal); err != nil {
			return decimal.Decimal{}, payment.ErrInvalidAmount
		}
	}
	return payment.ParseAmount(literal)
}
