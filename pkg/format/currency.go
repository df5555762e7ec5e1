// Package format renders amounts for people: currency symbols, thousands
// separators and cent rounding. The engine itself never formats numbers.
package format

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/iwvelando/loan-tracker/pkg/constants"
	"github.com/shopspring/decimal"
)

// Currency returns amount in the given ISO 4217 currency with its symbol and
// thousands separators (e.g. "-$1,234.56" for USD). An unknown or empty code
// falls back to DefaultCurrency.
func Currency(amount float64, code string) string {
	currency := lookup(code)
	return currency.Formatter().Format(minorUnits(amount, currency.Fraction))
}

// Plain returns amount with two decimals and no separators, as used in
// machine-readable output.
func Plain(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(constants.CurrencyFraction)
}

// KnownCurrency reports whether code names a currency the formatter knows.
func KnownCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))) != nil
}

func lookup(code string) *money.Currency {
	if currency := money.GetCurrency(strings.ToUpper(strings.TrimSpace(code))); currency != nil {
		return currency
	}
	return money.GetCurrency(constants.DefaultCurrency)
}

func minorUnits(amount float64, fraction int) int64 {
	return decimal.NewFromFloat(amount).Round(int32(fraction)).Shift(int32(fraction)).IntPart()
}
