package output

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
)

// Workbook sheet names
const (
	SheetCustomerQuote = "Customer Quote"
	SheetSalesView     = "Sales View"
	SheetWarnings      = "Warnings"
	SheetPriceBook     = "Price Book"
)

// XLSXFormatter writes Excel workbooks
type XLSXFormatter struct{}

// Format returns FormatXLSX
func (XLSXFormatter) Format() Format { return FormatXLSX }

// ContentType returns the OOXML spreadsheet type
func (XLSXFormatter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render writes the workbook
func (XLSXFormatter) Render(w io.Writer, doc *Document) error {
	if err := doc.validate(); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if doc.Quote != nil {
		err = writeQuoteWorkbook(f, st, doc)
	} else {
		err = writeBookWorkbook(f, st, doc.Book)
	}
	if err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

type styles struct {
	title, subtitle, header, text, money, rate, kwh, total int
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

func newStyles(f *excelize.File) (*styles, error) {
	rateFmt := "0.000"
	st := &styles{}
	defs := []styleDef{
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}}},
		{&st.subtitle, &excelize.Style{Font: &excelize.Font{Size: 11, Color: "#555555"}}},
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
			Border:    thinBorders(),
		}},
		{&st.text, &excelize.Style{Border: thinBorders()}},
		{&st.money, &excelize.Style{NumFmt: 4, Border: thinBorders()}},
		{&st.rate, &excelize.Style{CustomNumFmt: &rateFmt, Border: thinBorders()}},
		{&st.kwh, &excelize.Style{NumFmt: 3, Border: thinBorders()}},
		{&st.total, &excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4, Border: thinBorders()}},
	}

	for _, def := range defs {
		id, err := f.NewStyle(def.style)
		if err != nil {
			return nil, fmt.Errorf("create style: %w", err)
		}
		*def.dst = id
	}
	return st, nil
}

// sheetWriter fills one worksheet row by row
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (s *sheetWriter) set(col int, value interface{}, style int) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, s.row)
	if err != nil {
		s.err = err
		return
	}
	if str, ok := value.(string); ok {
		value = sanitizeExcelCell(str)
	}
	if err := s.f.SetCellValue(s.sheet, cell, value); err != nil {
		s.err = err
		return
	}
	if style != 0 {
		s.err = s.f.SetCellStyle(s.sheet, cell, cell, style)
	}
}

func (s *sheetWriter) headers(style int, names ...string) {
	for i, n := range names {
		s.set(i+1, n, style)
	}
	s.row++
}

func (s *sheetWriter) widths(widths ...float64) {
	for i, w := range widths {
		if s.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.err = err
			return
		}
		s.err = s.f.SetColWidth(s.sheet, col, col, w)
	}
}

func writeQuoteWorkbook(f *excelize.File, st *styles, doc *Document) error {
	sheet := doc.Quote
	if err := f.SetSheetName(f.GetSheetName(0), SheetCustomerQuote); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	w := &sheetWriter{f: f, sheet: SheetCustomerQuote, row: 1}
	title := doc.CompanyName
	if title == "" {
		title = "Energy Quote"
	}
	w.set(1, title, st.title)
	w.row++
	subtitle := "Prepared " + sheet.GeneratedAt.Format("02 Jan 2006")
	if sheet.Customer != "" {
		subtitle = "Prepared for " + sheet.Customer + ", " + sheet.GeneratedAt.Format("02 Jan 2006")
	}
	w.set(1, subtitle, st.subtitle)
	w.row += 2

	names := []string{"Site Name", "Post Code", "Annual KWH"}
	widths := []float64{32, 12, 14}
	for _, d := range sheet.Durations {
		names = append(names,
			fmt.Sprintf("Standing Charge p/day (%dm)", d),
			fmt.Sprintf("Unit Rate p/kWh (%dm)", d),
			fmt.Sprintf("TAC %s(%dm)", doc.Currency.Symbol(), d),
		)
		widths = append(widths, 16, 16, 16)
	}
	w.widths(widths...)
	w.headers(st.header, names...)

	for _, s := range siteRows(sheet) {
		w.set(1, s.Name, st.text)
		w.set(2, s.Postcode, st.text)
		w.set(3, s.KWh.InexactFloat64(), st.kwh)
		for i, d := range sheet.Durations {
			col := 4 + i*3
			l, ok := s.Lines[d]
			if !ok || !l.Result.Matched {
				for j := 0; j < 3; j++ {
					w.set(col+j, "N/A", st.text)
				}
				continue
			}
			w.set(col, l.Result.StandingChargeSell.InexactFloat64(), st.rate)
			w.set(col+1, l.Result.UnitRateSell.InexactFloat64(), st.rate)
			w.set(col+2, l.Result.TotalAnnualCost.InexactFloat64(), st.money)
		}
		w.row++
	}

	w.row++
	w.set(1, "Total Annual Cost", st.title)
	w.row++
	for _, t := range sheet.Totals {
		w.set(1, fmt.Sprintf("%d months", t.DurationMonths), st.text)
		w.set(2, t.TotalAnnualCost.InexactFloat64(), st.total)
		w.row++
	}
	if w.err != nil {
		return fmt.Errorf("write customer quote: %w", w.err)
	}
	if err := f.SetPanes(SheetCustomerQuote, &excelize.Panes{Freeze: true, YSplit: 4, TopLeftCell: "A5", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if doc.SalesView {
		if err := writeSalesView(f, st, doc); err != nil {
			return err
		}
	}
	if len(sheet.Warnings) > 0 {
		if err := writeWarnings(f, st, sheet.Warnings); err != nil {
			return err
		}
	}
	return nil
}

func writeSalesView(f *excelize.File, st *styles, doc *Document) error {
	if _, err := f.NewSheet(SheetSalesView); err != nil {
		return fmt.Errorf("create sales view: %w", err)
	}
	w := &sheetWriter{f: f, sheet: SheetSalesView, row: 1}
	w.widths(32, 12, 10, 8, 12, 12, 12, 12, 12, 12, 14, 14, 14, 9, 9)
	w.headers(st.header,
		"Site Name", "Post Code", "Duration", "LDZ",
		"Base SC", "Base Unit", "SC Uplift", "Unit Uplift", "Sell SC", "Sell Unit",
		"Base TAC", "Sell TAC", "Margin", "Matched", "Capped",
	)
	for _, l := range doc.Quote.Lines {
		r := l.Result
		w.set(1, l.Site, st.text)
		w.set(2, l.Postcode, st.text)
		w.set(3, l.DurationMonths, st.text)
		w.set(4, r.RegionCode, st.text)
		w.set(5, r.StandingChargeBase.InexactFloat64(), st.rate)
		w.set(6, r.UnitRateBase.InexactFloat64(), st.rate)
		w.set(7, r.StandingChargeUplift.InexactFloat64(), st.rate)
		w.set(8, r.UnitRateUplift.InexactFloat64(), st.rate)
		w.set(9, r.StandingChargeSell.InexactFloat64(), st.rate)
		w.set(10, r.UnitRateSell.InexactFloat64(), st.rate)
		w.set(11, r.BaseAnnualCost.InexactFloat64(), st.money)
		w.set(12, r.TotalAnnualCost.InexactFloat64(), st.money)
		w.set(13, r.Margin.InexactFloat64(), st.money)
		w.set(14, yesNo(r.Matched), st.text)
		w.set(15, yesNo(r.UpliftWasCapped), st.text)
		w.row++
	}
	if w.err != nil {
		return fmt.Errorf("write sales view: %w", w.err)
	}
	return nil
}

func writeWarnings(f *excelize.File, st *styles, warnings []pricing.Warning) error {
	if _, err := f.NewSheet(SheetWarnings); err != nil {
		return fmt.Errorf("create warnings sheet: %w", err)
	}
	w := &sheetWriter{f: f, sheet: SheetWarnings, row: 1}
	w.widths(20, 32, 12, 10, 60)
	w.headers(st.header, "Kind", "Site Name", "Post Code", "Duration", "Message")
	for _, warn := range warnings {
		w.set(1, string(warn.Kind), st.text)
		w.set(2, warn.Site, st.text)
		w.set(3, warn.Postcode, st.text)
		if warn.DurationMonths > 0 {
			w.set(4, warn.DurationMonths, st.text)
		}
		w.set(5, warn.Message, st.text)
		w.row++
	}
	if w.err != nil {
		return fmt.Errorf("write warnings: %w", w.err)
	}
	return nil
}

func writeBookWorkbook(f *excelize.File, st *styles, book *pricebook.Book) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetPriceBook); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	w := &sheetWriter{f: f, sheet: SheetPriceBook, row: 1}
	w.widths(24, 18, 16, 16, 22, 18)

	title := "Price Book"
	if book.Name != "" {
		title += ": " + book.Name
	}
	w.set(1, title, st.title)
	w.row++
	w.set(1, fmt.Sprintf("%dm contract, generated %s", book.Params.DurationMonths, book.GeneratedAt.Format(time.DateOnly)), st.subtitle)
	w.row += 2

	w.headers(st.header, "Band", "Standing Charge (p/day)", "Day Rate (p/kWh)", "Night Rate (p/kWh)",
		"Evening & Weekend Rate (p/kWh)", "Total Annual Cost")
	for _, e := range book.Entries {
		w.set(1, e.Band.Label(), st.text)
		if !e.Matched {
			for c := 2; c <= 6; c++ {
				w.set(c, "N/A", st.text)
			}
			w.row++
			continue
		}
		w.set(2, e.StandingCharge.InexactFloat64(), st.rate)
		w.set(3, e.Rates.Day.InexactFloat64(), st.rate)
		w.set(4, e.Rates.Night.InexactFloat64(), st.rate)
		w.set(5, e.Rates.EveningWeekend.InexactFloat64(), st.rate)
		w.set(6, e.TotalAnnualCost.InexactFloat64(), st.money)
		w.row++
	}
	if w.err != nil {
		return fmt.Errorf("write price book: %w", w.err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1,
		}
	}
	return borders
}
