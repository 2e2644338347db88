package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a numeric(12,2) money column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ErrAmountOutOfRange is returned when an amount has no int64 cent value.
var ErrAmountOutOfRange = errors.New("amount out of range")

// Money is a two-decimal amount rendered as a bare JSON number ("100.00").
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d to cents.
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// Cents converts the amount to the smallest currency unit, rounding half away
// from zero. Amounts beyond int64 cents fail instead of wrapping.
func (m Money) Cents() (int64, error) {
	cents := m.Decimal.Shift(2).Round(0).BigInt()
	if !cents.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, m.String())
	}
	return cents.Int64(), nil
}

// Exceeds reports whether the amount is above the storable maximum.
func (m Money) Exceeds() bool {
	return m.Decimal.GreaterThan(MaxAmount)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.StringFixed(2)), nil
}

// UnmarshalJSON accepts both numbers and quoted strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		m.Decimal = decimal.Zero
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		trimmed = []byte(raw)
	}
	d, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return fmt.Errorf("money: %w", err)
	}
	m.Decimal = d
	return nil
}
