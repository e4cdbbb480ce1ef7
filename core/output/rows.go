package output

import (
	"strings"

	"github.com/shopspring/decimal"

	"energy-quote/core/pricing"
	"energy-quote/core/types"
)

// siteRow gathers the lines of one site across durations
type siteRow struct {
	Name     string
	Postcode string
	KWh      decimal.Decimal
	Lines    map[int]pricing.QuoteLine
}

// siteRows pivots a site-major sheet into one row per site
func siteRows(sheet *pricing.QuoteSheet) []siteRow {
	var out []siteRow
	pos := make(map[string]int)
	for _, l := range sheet.Lines {
		key := l.Site + "\x00" + l.Postcode
		i, ok := pos[key]
		if !ok {
			i = len(out)
			pos[key] = i
			out = append(out, siteRow{Name: l.Site, Postcode: l.Postcode, KWh: l.AnnualConsumptionKWh, Lines: make(map[int]pricing.QuoteLine)})
		}
		out[i].Lines[l.DurationMonths] = l
	}
	return out
}

// money renders a major-unit amount as "£1,234.56"
func money(c types.Currency, d decimal.Decimal) string {
	return withUnit(c.Symbol(), d)
}

func withUnit(unit string, d decimal.Decimal) string {
	s := d.StringFixed(types.MoneyPlaces)
	if strings.HasPrefix(s, "-") {
		return "-" + unit + groupDigits(s[1:])
	}
	return unit + groupDigits(s)
}

// rate renders a unit rate at RatePlaces
func rate(d decimal.Decimal) string {
	return d.StringFixed(types.RatePlaces)
}

// kwh renders consumption with separators
func kwh(d decimal.Decimal) string {
	return groupDigits(d.Round(0).String())
}

func groupDigits(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String() + frac
}

// truncate shortens s to maxLen runes
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}
