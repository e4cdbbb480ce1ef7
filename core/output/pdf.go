package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
	"energy-quote/core/types"
)

// Grid widths of the quote table
const (
	gridSite     = 3
	gridPostcode = 2
	gridKWh      = 2
	gridRate     = 2
	gridTAC      = 3
	gridDuration = 2*gridRate + gridTAC
)

var (
	pdfHeaderBg   = &props.Color{Red: 31, Green: 78, Blue: 120}
	pdfHeaderText = &props.Color{Red: 255, Green: 255, Blue: 255}
	pdfMuted      = &props.Color{Red: 80, Green: 80, Blue: 80}
	pdfAltRow     = &props.Color{Red: 245, Green: 247, Blue: 250}
)

// PDFFormatter writes printable customer quotes and price books.
// Base rates and margin never appear in the PDF.
type PDFFormatter struct{}

// Format returns FormatPDF
func (PDFFormatter) Format() Format { return FormatPDF }

// ContentType returns application/pdf
func (PDFFormatter) ContentType() string { return "application/pdf" }

// Render generates the PDF and copies it to w
func (PDFFormatter) Render(w io.Writer, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}

	var m core.Maroto
	if doc.Quote != nil {
		m = quotePDF(doc)
	} else {
		m = bookPDF(doc)
	}

	out, err := m.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	if _, err := w.Write(out.GetBytes()); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func newPDF(grid int) core.Maroto {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(grid).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()
	return maroto.New(cfg)
}

func quotePDF(doc *Document) core.Maroto {
	sheet := doc.Quote
	grid := gridSite + gridPostcode + gridKWh + gridDuration*len(sheet.Durations)
	m := newPDF(grid)

	title := doc.CompanyName
	if title == "" {
		title = "Energy Quote"
	}
	prepared := "Prepared " + sheet.GeneratedAt.Format("02 Jan 2006")
	if sheet.Customer != "" {
		prepared = "Prepared for " + sheet.Customer + ", " + sheet.GeneratedAt.Format("02 Jan 2006")
	}
	addPDFTitle(m, grid, title, prepared)

	headText := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: pdfHeaderText, Top: 1}
	headCell := &props.Cell{BackgroundColor: pdfHeaderBg}

	// duration caption row above the per-duration columns
	caption := []core.Col{col.New(gridSite + gridPostcode + gridKWh).WithStyle(headCell)}
	for _, d := range sheet.Durations {
		caption = append(caption, col.New(gridDuration).Add(text.New(fmt.Sprintf("%d months", d), headText)).WithStyle(headCell))
	}
	m.AddRows(row.New(6).Add(caption...))

	cols := []core.Col{
		col.New(gridSite).Add(text.New("Site Name", headText)).WithStyle(headCell),
		col.New(gridPostcode).Add(text.New("Post Code", headText)).WithStyle(headCell),
		col.New(gridKWh).Add(text.New("Annual kWh", headText)).WithStyle(headCell),
	}
	for range sheet.Durations {
		cols = append(cols,
			col.New(gridRate).Add(text.New("SC p/day", headText)).WithStyle(headCell),
			col.New(gridRate).Add(text.New("Unit p/kWh", headText)).WithStyle(headCell),
			col.New(gridTAC).Add(text.New("TAC", headText)).WithStyle(headCell),
		)
	}
	m.AddRows(row.New(7).Add(cols...))

	body := props.Text{Size: 7, Align: align.Center, Top: 1}
	bodyLeft := body
	bodyLeft.Align = align.Left
	bodyLeft.Left = 1

	for i, s := range siteRows(sheet) {
		cols := []core.Col{
			col.New(gridSite).Add(text.New(truncate(s.Name, 40), bodyLeft)),
			col.New(gridPostcode).Add(text.New(s.Postcode, body)),
			col.New(gridKWh).Add(text.New(kwh(s.KWh), body)),
		}
		for _, d := range sheet.Durations {
			sc, ur, tac := "N/A", "N/A", "N/A"
			if l, ok := s.Lines[d]; ok && l.Result.Matched {
				sc = rate(l.Result.StandingChargeSell)
				ur = rate(l.Result.UnitRateSell)
				tac = pdfMoney(doc.Currency, l.Result.TotalAnnualCost)
			}
			cols = append(cols,
				col.New(gridRate).Add(text.New(sc, body)),
				col.New(gridRate).Add(text.New(ur, body)),
				col.New(gridTAC).Add(text.New(tac, body)),
			)
		}
		r := row.New(6).Add(cols...)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: pdfAltRow})
		}
		m.AddRows(r)
	}

	m.AddRows(row.New(4))
	totalText := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Top: 1}
	totals := []core.Col{col.New(gridSite + gridPostcode + gridKWh).Add(text.New("Total Annual Cost", props.Text{Size: 8, Style: fontstyle.Bold, Top: 1, Left: 1}))}
	for _, d := range sheet.Durations {
		value := "-"
		for _, t := range sheet.Totals {
			if t.DurationMonths == d {
				value = pdfMoney(doc.Currency, t.TotalAnnualCost)
			}
		}
		totals = append(totals, col.New(gridDuration).Add(text.New(value, totalText)))
	}
	m.AddRows(row.New(7).Add(totals...))

	if len(sheet.Warnings) > 0 {
		addPDFWarnings(m, grid, sheet.Warnings)
	}
	return m
}

func bookPDF(doc *Document) core.Maroto {
	book := doc.Book
	const grid = 12
	m := newPDF(grid)

	title := "Price Book"
	if book.Name != "" {
		title += ": " + book.Name
	}
	addPDFTitle(m, grid, title, fmt.Sprintf("%d month contract, generated %s",
		book.Params.DurationMonths, book.GeneratedAt.Format("02 Jan 2006")))

	headText := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Color: pdfHeaderText, Top: 1.5}
	headCell := &props.Cell{BackgroundColor: pdfHeaderBg}
	m.AddRows(row.New(8).Add(
		col.New(3).Add(text.New("Band (kWh)", headText)).WithStyle(headCell),
		col.New(2).Add(text.New("Standing p/day", headText)).WithStyle(headCell),
		col.New(2).Add(text.New("Day p/kWh", headText)).WithStyle(headCell),
		col.New(1).Add(text.New("Night", headText)).WithStyle(headCell),
		col.New(2).Add(text.New("Eve & Wknd", headText)).WithStyle(headCell),
		col.New(2).Add(text.New("TAC", headText)).WithStyle(headCell),
	))

	body := props.Text{Size: 8, Align: align.Center, Top: 1.5}
	for i, e := range book.Entries {
		values := []string{"N/A", "N/A", "N/A", "N/A", "N/A"}
		if e.Matched {
			values = []string{
				e.StandingCharge.StringFixed(pricebook.RatePlaces),
				e.Rates.Day.StringFixed(pricebook.RatePlaces),
				e.Rates.Night.StringFixed(pricebook.RatePlaces),
				e.Rates.EveningWeekend.StringFixed(pricebook.RatePlaces),
				pdfMoney(doc.Currency, e.TotalAnnualCost),
			}
		}
		r := row.New(7).Add(
			col.New(3).Add(text.New(strings.ReplaceAll(e.Band.Label(), "–", "-"), body)),
			col.New(2).Add(text.New(values[0], body)),
			col.New(2).Add(text.New(values[1], body)),
			col.New(1).Add(text.New(values[2], body)),
			col.New(2).Add(text.New(values[3], body)),
			col.New(2).Add(text.New(values[4], body)),
		)
		if i%2 == 1 {
			r.WithStyle(&props.Cell{BackgroundColor: pdfAltRow})
		}
		m.AddRows(r)
	}

	if book.Notes != "" {
		m.AddRows(row.New(4))
		m.AddRows(row.New(8).Add(col.New(grid).Add(text.New(book.Notes, props.Text{Size: 8, Color: pdfMuted}))))
	}
	return m
}

func addPDFTitle(m core.Maroto, grid int, title, subtitle string) {
	m.AddRows(
		row.New(12).Add(
			col.New(grid).Add(text.New(title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center})),
		),
		row.New(8).Add(
			col.New(grid).Add(text.New(subtitle, props.Text{Size: 9, Align: align.Center, Color: pdfMuted})),
		),
		row.New(4),
	)
}

func addPDFWarnings(m core.Maroto, grid int, warnings []pricing.Warning) {
	m.AddRows(row.New(6))
	m.AddRows(row.New(7).Add(col.New(grid).Add(text.New("Notes", props.Text{Size: 9, Style: fontstyle.Bold}))))
	for _, w := range warnings {
		msg := w.Message
		if w.Site != "" {
			msg = w.Site + ": " + msg
		}
		m.AddRows(row.New(5).Add(col.New(grid).Add(text.New(msg, props.Text{Size: 7, Color: pdfMuted}))))
	}
}

// pdfMoney uses the currency code; the core PDF fonts lack the £ glyph
func pdfMoney(c types.Currency, d decimal.Decimal) string {
	return withUnit(c.String()+" ", d)
}
