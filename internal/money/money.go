// Package money implements the fixed-point decimal used for every balance and
// amount. Values carry at most Scale fractional digits and are never backed by
// binary floating point.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bark-bank/bark/internal/bankerr"
)

// Scale is the number of fractional digits of the domain currency.
const Scale = 4

// Money is a signed fixed-point quantity. The zero value is 0.0000.
type Money struct {
	d decimal.Decimal
}

// Zero is 0.0000.
var Zero = Money{}

// FromInt returns n whole currency units.
func FromInt(n int64) Money {
	return Money{d: decimal.NewFromInt(n)}
}

// FromDecimal converts d, rejecting values finer than Scale.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(Scale)) {
		return Money{}, bankerr.New(bankerr.KindInvalidAmount, "money.FromDecimal",
			fmt.Sprintf("%s has more than %d fractional digits", d.String(), Scale))
	}
	return Money{d: d}, nil
}

// Parse reads a decimal string such as "30", "30.5" or "-0.0001".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, bankerr.New(bankerr.KindInvalidAmount, "money.Parse", "amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, bankerr.New(bankerr.KindInvalidAmount, "money.Parse", fmt.Sprintf("malformed amount %q", s))
	}
	return FromDecimal(d)
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Mul multiplies by an integer factor. Used for aggregate checks in tests and
// reconciliation.
func (m Money) Mul(n int64) Money { return Money{d: m.d.Mul(decimal.NewFromInt(n))} }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether m and o hold the same amount.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// LessThan reports whether m < o.
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m.d.IsZero() }

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String renders the value with exactly Scale fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON encodes as a quoted decimal string to avoid float round trips in clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.5" and 12.5.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return bankerr.New(bankerr.KindInvalidAmount, "money.UnmarshalJSON", "amount is null")
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return bankerr.Wrap(bankerr.KindInvalidAmount, "money.UnmarshalJSON", err)
		}
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all values.
func Sum(values ...Money) Money {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
