// Package core provides the expense dashboard's domain types and the pure
// display helpers: multi-currency amount formatting, date headers, and
// category color styles.
package core

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCategoryColor is the neutral gray used when a category has no valid color.
const DefaultCategoryColor = "#94a3b8"

// baseCurrency is the currency all exchange rates are expressed against.
const baseCurrency = "USD"

// FormatCurrency converts amount from its source currency to the target display
// currency and renders it as a currency string. Rates are expressed as units of
// the currency per one unit of the base currency, so conversion goes through
// the base: amount / rate[source] * rate[target].
//
// The function never fails. An unknown target falls back to USD, then to the
// first active currency; with no currencies at all it returns the raw amount
// and the requested code. A missing or non-positive rate abandons conversion
// and renders the original amount in its source currency instead.
func FormatCurrency(amount decimal.Decimal, sourceCode, targetCode string, currencies []Currency, rates map[string]decimal.Decimal) string {
	target, ok := resolveTarget(targetCode, currencies)
	if !ok {
		return amount.StringFixed(2) + " " + targetCode
	}

	display := amount
	if sourceCode != target.Code {
		srcRate, srcOK := rates[sourceCode]
		dstRate, dstOK := rates[target.Code]
		if !srcOK || !dstOK || !srcRate.IsPositive() || !dstRate.IsPositive() {
			// Conversion is impossible; show the amount in its own currency.
			if src, found := findCurrency(sourceCode, currencies); found {
				return renderAmount(amount, src)
			}
			return renderAmount(amount, Currency{Code: sourceCode, Symbol: sourceCode})
		}
		display = amount.Div(srcRate).Mul(dstRate)
	}

	return renderAmount(display, target)
}

// resolveTarget picks the currency record to display in: exact match first,
// then USD, then whatever currency comes first.
func resolveTarget(code string, currencies []Currency) (Currency, bool) {
	if c, ok := findCurrency(code, currencies); ok {
		return c, true
	}
	if c, ok := findCurrency(baseCurrency, currencies); ok {
		return c, true
	}
	if len(currencies) > 0 {
		return currencies[0], true
	}
	return Currency{}, false
}

func findCurrency(code string, currencies []Currency) (Currency, bool) {
	for _, c := range currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// renderAmount formats the amount with the currency's conventional symbol and
// separators, always with two fraction digits. Codes go-money does not know
// fall back to the stored symbol (or the code itself) plus a fixed decimal.
func renderAmount(amount decimal.Decimal, cur Currency) string {
	if known := money.GetCurrency(cur.Code); known != nil {
		f := money.NewFormatter(2, known.Decimal, known.Thousand, known.Grapheme, known.Template)
		return f.Format(amount.Shift(2).Round(0).IntPart())
	}
	symbol := cur.Symbol
	if symbol == "" {
		symbol = cur.Code
	}
	return symbol + " " + amount.StringFixed(2)
}

var spanishWeekdays = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "lunes",
	time.Tuesday:   "martes",
	time.Wednesday: "miércoles",
	time.Thursday:  "jueves",
	time.Friday:    "viernes",
	time.Saturday:  "sábado",
}

var spanishMonths = [...]string{
	time.January:   "enero",
	time.February:  "febrero",
	time.March:     "marzo",
	time.April:     "abril",
	time.May:       "mayo",
	time.June:      "junio",
	time.July:      "julio",
	time.August:    "agosto",
	time.September: "septiembre",
	time.October:   "octubre",
	time.November:  "noviembre",
	time.December:  "diciembre",
}

// FormatDateHeader labels a transaction group's date: "Hoy" for the current
// UTC day, "Ayer" for the day before, otherwise a fully spelled-out date like
// "lunes, 1 de septiembre de 2025".
func FormatDateHeader(d Date) string {
	return formatDateHeaderAt(d, time.Now().UTC())
}

func formatDateHeaderAt(d Date, now time.Time) string {
	today := NewDate(now.Date())
	switch {
	case d.Equal(today):
		return "Hoy"
	case d.Equal(today.AddDays(-1)):
		return "Ayer"
	}
	return fmt.Sprintf("%s, %d de %s de %d",
		spanishWeekdays[d.Weekday()], d.Day(), spanishMonths[d.Month()], d.Year())
}

// Style carries the CSS colors derived from a category color.
type Style struct {
	Background string `json:"background"`
	Color      string `json:"color"`
	Border     string `json:"border"`
}

// CategoryStyle builds background/text/border colors from a #RGB or #RRGGBB
// category color, defaulting to neutral gray on anything it cannot parse.
// Text is black on light backgrounds and white on dark ones, using the
// 0.299/0.587/0.114 luminance weights.
func CategoryStyle(hexColor string, opacity float64) Style {
	r, g, b, ok := parseHexColor(hexColor)
	if !ok {
		r, g, b, _ = parseHexColor(DefaultCategoryColor)
	}

	textColor := "#FFFFFF"
	if 0.299*float64(r)+0.587*float64(g)+0.114*float64(b) > 186 {
		textColor = "#000000"
	}

	return Style{
		Background: fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(opacity, 'f', -1, 64)),
		Color:      textColor,
		Border:     fmt.Sprintf("rgb(%d,%d,%d)", r, g, b),
	}
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	switch len(s) {
	case 7: // #RRGGBB
		if s[0] != '#' {
			return 0, 0, 0, false
		}
		r, g, b = hexByte(s[1:3]), hexByte(s[3:5]), hexByte(s[5:7])
	case 4: // #RGB
		if s[0] != '#' {
			return 0, 0, 0, false
		}
		r, g, b = hexByte(s[1:2]+s[1:2]), hexByte(s[2:3]+s[2:3]), hexByte(s[3:4]+s[3:4])
	default:
		return 0, 0, 0, false
	}
	if r < 0 || g < 0 || b < 0 {
		return 0, 0, 0, false
	}
	return r, g, b, true
}

func hexByte(s string) int {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return -1
	}
	return int(v)
}
