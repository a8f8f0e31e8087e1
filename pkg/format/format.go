// Package format renders the numbers and names shown in labels, legends and
// detail panels.
package format

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.AmericanEnglish)
	titler  = cases.Title(language.English)
	splitRe = regexp.MustCompile(`[_\s-]+`)
)

// Currency abbreviates a USD amount: $1.23T, $4.56B, $7.89M, else a whole
// dollar amount with thousands separators.
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	switch a := math.Abs(v); {
	case a >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case a >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	}
	return printer.Sprintf("$%d", int64(math.Round(v)))
}

// SignedCurrency is [Currency] with an explicit sign for non-negative values.
func SignedCurrency(v float64) string {
	if v >= 0 {
		return "+" + Currency(v)
	}
	return "-" + Currency(-v)
}

// Flag turns a two-letter country code into its regional-indicator emoji.
// Anything else yields "??".
func Flag(iso2 string) string {
	if len(iso2) != 2 {
		return "??"
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(iso2) {
		if c < 'A' || c > 'Z' {
			return "??"
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}

// TitleCase splits s on underscores, hyphens and spaces and capitalizes
// every part: "heavy_machinery" becomes "Heavy Machinery".
func TitleCase(s string) string {
	parts := splitRe.Split(strings.TrimSpace(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, titler.String(p))
		}
	}
	return strings.Join(out, " ")
}

// Percent formats a 0..1 fraction as a whole percentage.
func Percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}
