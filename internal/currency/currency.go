// Package currency formats and parses Sri Lankan Rupee amounts for display.
//
// Formatting never fails: values that cannot be read as a number render as
// the zero amount so that tables and exports always show well-formed money.
package currency

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	Symbol = "Rs."
	Code   = "LKR"
)

var printer = message.NewPrinter(language.English)

// Options toggles the symbol prefix and the ISO code suffix.
type Options struct {
	ShowSymbol bool
	ShowCode   bool
}

// DefaultOptions renders the symbol only, e.g. "Rs. 1,234.50".
var DefaultOptions = Options{ShowSymbol: true}

// Format renders amount with DefaultOptions.
func Format(amount any) string {
	return FormatWith(amount, DefaultOptions)
}

// FormatWith renders amount with two fixed decimals and thousands separators.
// amount may be any numeric type, a json.Number or a numeric string.
func FormatWith(amount any, opts Options) string {
	v, _ := ToFloat(amount)
	return decorate(printer.Sprint(number.Decimal(Round(v), number.Scale(2))), opts)
}

// Round rounds v to whole cents. Differences that vanish at cent precision,
// such as 0.3-(0.1+0.2), come back as exactly zero rather than -0.
func Round(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// FormatCompact renders large magnitudes with a unit suffix and one decimal:
// K (thousand), L (lakh), M (million), B (billion). Amounts under a thousand
// fall back to the full format.
func FormatCompact(amount any) string {
	v, ok := ToFloat(amount)
	if !ok {
		v = 0
	}
	abs := math.Abs(v)

	var div float64
	var unit string
	switch {
	case abs >= 1e9:
		div, unit = 1e9, "B"
	case abs >= 1e6:
		div, unit = 1e6, "M"
	case abs >= 1e5:
		div, unit = 1e5, "L"
	case abs >= 1e3:
		div, unit = 1e3, "K"
	default:
		return Format(v)
	}
	return Symbol + " " + strconv.FormatFloat(v/div, 'f', 1, 64) + unit
}

// Parse reverses Format: it strips the symbol, the code and the grouping
// separators and parses what is left. Unparseable input yields 0.
func Parse(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, Symbol, "")
	s = strings.ReplaceAll(s, "Rs", "")
	s = strings.ReplaceAll(s, Code, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ToFloat reads a numeric value out of the loosely typed values found in
// decoded JSON. The second result is false when v is absent or not numeric.
func ToFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decorate(digits string, opts Options) string {
	out := digits
	if opts.ShowSymbol {
		out = Symbol + " " + out
	}
	if opts.ShowCode {
		out = out + " " + Code
	}
	return out
}
