// Package format renders KPI values for humans, shared by the web page
// and the terminal report.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency renders v as $1,234.56, with the sign ahead of the symbol.
func Currency(v float64) string {
	if v < 0 && math.Round(v*100) != 0 {
		return "-$" + printer.Sprintf("%.2f", -v)
	}
	return "$" + printer.Sprintf("%.2f", math.Abs(v))
}

// Count renders n with thousands separators.
func Count(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent renders a ratio (0.1234) as 12.34%.
func Percent(ratio float64) string {
	return printer.Sprintf("%.2f%%", ratio*100)
}

// Change renders a percentage change with an explicit sign.
func Change(pct float64) string {
	if pct > 0 {
		return "+" + printer.Sprintf("%.2f%%", pct)
	}
	return printer.Sprintf("%.2f%%", pct)
}

// Number renders a metric value with two decimals and separators.
func Number(v float64) string {
	return printer.Sprintf("%.2f", v)
}
