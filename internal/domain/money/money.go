// Package money provides the fixed-point amount type used for every price and
// total in the back office.
//
// Arithmetic is exact: sums and products are kept at full precision and only
// rounded to two fractional digits at presentation and storage boundaries
// (String, MinorUnits, Round). Rounding is half away from zero.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept at storage boundaries.
const Scale = 2

// Money is an exact decimal amount in the store currency. The zero value is
// a valid zero amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New wraps an exact decimal value.
func New(d decimal.Decimal) Money {
	return Money{d: d}
}

// FromMinor builds an amount from minor units (cents).
func FromMinor(units int64) Money {
	return Money{d: decimal.New(units, -Scale)}
}

// Parse parses a decimal string such as "45.50".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, errors.Wrapf(err, "parse amount %q", s)
	}
	return Money{d: d}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Sum folds the given amounts.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.d)
	}
	return Money{d: total}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

// MulQty returns m multiplied by an integer quantity.
func (m Money) MulQty(qty int) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty)))}
}

// Cmp compares m and o, returning -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal reports whether m and o represent the same amount regardless of
// their internal exponent ("10" equals "10.00").
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Round rounds to Scale fractional digits, half away from zero.
func (m Money) Round() Money {
	return Money{d: m.d.Round(Scale)}
}

// MinorUnits returns the rounded amount in minor units, e.g. 50.00 -> 5000.
func (m Money) MinorUnits() int64 {
	return m.d.Round(Scale).Shift(Scale).IntPart()
}

// Decimal exposes the underlying exact value for storage codecs.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String formats the amount with exactly Scale fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}
