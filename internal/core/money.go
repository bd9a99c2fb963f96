// Package core holds the derivation layer of the expense tracker.
//
// Everything here is pure: functions take backend records and return
// display-ready values. No I/O, no clocks, no shared state.
package core

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// FormatCurrency renders an amount with exactly two decimal digits and comma
// thousands grouping. The output never depends on the process locale.
//
// Amounts are rounded half away from zero at the cent. Negative amounts keep
// a leading minus sign; a value that rounds to zero is always "0.00".
//
// Examples:
//
//	FormatCurrency(1000.4)     -> "1,000.40"
//	FormatCurrency(0)          -> "0.00"
//	FormatCurrency(1000000.99) -> "1,000,000.99"
//	FormatCurrency(-12.345)    -> "-12.35"
func FormatCurrency(amount float64) string {
	switch {
	case math.IsNaN(amount):
		return "NaN"
	case math.IsInf(amount, 1):
		return "Inf"
	case math.IsInf(amount, -1):
		return "-Inf"
	}

	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	// StringFixed always yields "<int>.<two digits>" for non-negative values.
	fixed := d.StringFixed(2)
	frac := fixed[len(fixed)-2:]
	return sign + humanize.BigComma(d.BigInt()) + "." + frac
}

// FormatAmount prefixes FormatCurrency with a dollar sign, the form used in
// goal texts.
func FormatAmount(amount float64) string {
	s := FormatCurrency(amount)
	if len(s) > 0 && s[0] == '-' {
		return "-$" + s[1:]
	}
	return "$" + s
}
