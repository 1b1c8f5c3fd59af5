// Package money provides the single money value type used by the financial
// core. Amounts accumulate at full decimal precision; rounding happens once,
// when a value crosses the system boundary.
package money

import "github.com/shopspring/decimal"

// Amount is an exact monetary (or hours) quantity.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
func Zero() Amount { return Amount{} }

// FromDecimal wraps a decimal value.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// FromFloat converts a float at the boundary.
func FromFloat(f float64) Amount { return Amount{d: decimal.NewFromFloat(f)} }

// HoursFromMinutes converts a minute count to hours exactly.
func HoursFromMinutes(minutes int) Amount {
	return Amount{d: decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))}
}

// Add returns a+b at full precision.
func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }

// Sub returns a-b at full precision.
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }

// Mul returns a*b at full precision.
func (a Amount) Mul(b Amount) Amount { return Amount{d: a.d.Mul(b.d)} }

// MulFloat scales by a float factor (overtime multipliers).
func (a Amount) MulFloat(f float64) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromFloat(f))}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool { return a.d.IsPositive() }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

// Round2 rounds to 2 decimal places for monetary output.
func (a Amount) Round2() float64 {
	f, _ := a.d.Round(2).Float64()
	return f
}

// Round1 rounds to 1 decimal place for hour and percentage output.
func (a Amount) Round1() float64 {
	f, _ := a.d.Round(1).Float64()
	return f
}

// String renders the amount with 2 decimal places (export rows).
func (a Amount) String() string { return a.d.StringFixed(2) }

// Pct returns part/whole*100 rounded to 1 decimal place, and 0 when the
// whole is zero — never a division error.
func Pct(part, whole Amount) float64 {
	if whole.d.IsZero() {
		return 0
	}
	f, _ := part.d.Div(whole.d).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return f
}
