package output

import (
	"fmt"
	"io"
	"strings"

	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
)

// CLIFormatter prints boxed summary tables
type CLIFormatter struct{}

// Format returns FormatCLI
func (CLIFormatter) Format() Format { return FormatCLI }

// ContentType returns text/plain
func (CLIFormatter) ContentType() string { return "text/plain; charset=utf-8" }

// Render writes the quote or price book table
func (CLIFormatter) Render(w io.Writer, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}
	b := &box{w: w}
	if doc.Quote != nil {
		renderQuoteTable(b, doc, doc.Quote)
	} else {
		renderBookTable(b, doc, doc.Book)
	}
	return b.err
}

// box writes the ┌─┐ framed tables and keeps the first write error
type box struct {
	w     io.Writer
	width int
	err   error
}

func (b *box) printf(format string, args ...interface{}) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}

func (b *box) rule(left, right string) {
	b.printf("%s%s%s\n", left, strings.Repeat("─", b.width), right)
}

func (b *box) line(text string) {
	pad := b.width - 2 - len([]rune(text))
	if pad < 0 {
		pad = 0
	}
	b.printf("│ %s%s │\n", text, strings.Repeat(" ", pad))
}

func (b *box) centered(text string) {
	n := len([]rune(text))
	left := (b.width - n) / 2
	if left < 0 {
		left = 0
	}
	right := b.width - n - left
	if right < 0 {
		right = 0
	}
	b.printf("│%s%s%s│\n", strings.Repeat(" ", left), text, strings.Repeat(" ", right))
}

func renderQuoteTable(b *box, doc *Document, sheet *pricing.QuoteSheet) {
	cols := fmt.Sprintf("%-24s %-9s %10s", "SITE", "POSTCODE", "KWH")
	for _, d := range sheet.Durations {
		cols += fmt.Sprintf(" %13s", fmt.Sprintf("TAC %dm", d))
	}
	b.width = len([]rune(cols)) + 2

	title := "QUOTE SUMMARY"
	if sheet.Customer != "" {
		title += " - " + strings.ToUpper(sheet.Customer)
	}
	b.rule("┌", "┐")
	b.centered(title)
	b.rule("├", "┤")
	b.line(cols)
	b.rule("├", "┤")

	for _, s := range siteRows(sheet) {
		row := fmt.Sprintf("%-24s %-9s %10s", truncate(s.Name, 24), truncate(s.Postcode, 9), kwh(s.KWh))
		for _, d := range sheet.Durations {
			cell := "-"
			if l, ok := s.Lines[d]; ok {
				cell = money(doc.Currency, l.Result.TotalAnnualCost)
				if !l.Result.Matched {
					cell = "N/A"
				}
			}
			row += fmt.Sprintf(" %13s", cell)
		}
		b.line(row)
	}

	b.rule("├", "┤")
	total := fmt.Sprintf("%-24s %-9s %10s", "TOTAL ANNUAL COST", "", "")
	margin := fmt.Sprintf("%-24s %-9s %10s", "MARGIN", "", "")
	for _, t := range sheet.Totals {
		total += fmt.Sprintf(" %13s", money(doc.Currency, t.TotalAnnualCost))
		margin += fmt.Sprintf(" %13s", money(doc.Currency, t.Margin))
	}
	b.line(total)
	if doc.SalesView {
		b.line(margin)
	}
	b.rule("└", "┘")

	if len(sheet.Warnings) > 0 {
		b.printf("\nWarnings:\n")
		for _, warn := range sheet.Warnings {
			b.printf("  - %s: %s\n", warn.Site, warn.Message)
		}
	}
}

func renderBookTable(b *box, doc *Document, book *pricebook.Book) {
	cols := fmt.Sprintf("%-22s %10s %10s %10s %10s %13s", "BAND (KWH)", "SC P/DAY", "DAY", "NIGHT", "EVE/WKND", "TAC")
	b.width = len([]rune(cols)) + 2

	title := "PRICE BOOK"
	if book.Name != "" {
		title += " - " + book.Name
	}
	b.rule("┌", "┐")
	b.centered(title)
	b.rule("├", "┤")
	b.line(cols)
	b.rule("├", "┤")

	for _, e := range book.Entries {
		if !e.Matched {
			b.line(fmt.Sprintf("%-22s %10s %10s %10s %10s %13s", e.Band.Label(), "N/A", "N/A", "N/A", "N/A", "N/A"))
			continue
		}
		b.line(fmt.Sprintf("%-22s %10s %10s %10s %10s %13s",
			e.Band.Label(),
			e.StandingCharge.StringFixed(pricebook.RatePlaces),
			e.Rates.Day.StringFixed(pricebook.RatePlaces),
			e.Rates.Night.StringFixed(pricebook.RatePlaces),
			e.Rates.EveningWeekend.StringFixed(pricebook.RatePlaces),
			money(doc.Currency, e.TotalAnnualCost),
		))
	}
	b.rule("└", "┘")
	b.printf("\n%dm contract, %s%% of %s per meter on the standing charge\n",
		book.Params.DurationMonths, book.Params.StandingPct.String(), money(doc.Currency, book.Params.TotalCost))
}
