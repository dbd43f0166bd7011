package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits persisted for monetary columns.
const Scale int32 = 4

var (
	Zero    = decimal.Zero
	Hundred = decimal.NewFromInt(100)

	// Epsilon is the tolerance used for drift detection and settled receivables.
	Epsilon = decimal.RequireFromString("0.01")
)

// Round rounds a monetary amount to Scale digits.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// FloorZero clamps negative amounts to zero.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return Zero
	}
	return d
}

// Percent returns amount × rate / 100 rounded to Scale.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate).Div(Hundred))
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// ValidRate reports whether rate is a percentage in [0, 100].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(Hundred)
}

// Drifted reports whether persisted differs from expected by more than epsilon.
func Drifted(persisted, expected, epsilon decimal.Decimal) bool {
	return persisted.Sub(expected).Abs().GreaterThan(epsilon)
}
