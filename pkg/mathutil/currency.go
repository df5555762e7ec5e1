// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Halves round away from zero on the decimal representation, so 1.235
// becomes 1.24 even though its binary value is slightly below the midpoint.
func Round(val float64) float64 {
	return decimal.NewFromFloat(val).Round(constants.CurrencyFraction).InexactFloat64()
}

// RoundWhole rounds to the nearest whole currency unit with halves rounding
// up (towards positive infinity), so 2.5 becomes 3 and -2.5 becomes -2.
func RoundWhole(val float64) float64 {
	return math.Floor(val + 0.5)
}

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ClampZero floors a value at zero.
func ClampZero(val float64) float64 {
	return Max(0, val)
}
