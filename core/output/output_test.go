package output

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
	"energy-quote/core/region"
	"energy-quote/core/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tariff(duration int, max, sc, ur string) types.TariffRow {
	return types.TariffRow{
		RegionCode:             "LN",
		ContractDurationMonths: duration,
		MinAnnualConsumption:   d("0"),
		MaxAnnualConsumption:   d(max),
		StandingCharge:         d(sc),
		UnitRate:               d(ur),
	}
}

func fixtureSheet(t *testing.T) *pricing.QuoteSheet {
	t.Helper()
	regions := region.NewTable([]types.RegionLookupEntry{{PostcodePrefix: "SW1A 1AA", RegionCode: "LN"}})
	tariffs := pricing.MustTariffTable([]types.TariffRow{
		tariff(12, "10000", "20.00", "4.000"),
		tariff(24, "10000", "19.00", "3.900"),
	})
	p := pricing.NewPricer(regions, tariffs, types.DefaultUpliftCaps())

	sheet, err := p.PriceQuote(context.Background(), pricing.QuoteRequest{
		Customer:  "Acme Ltd",
		Durations: []int{12, 24},
		Sites: []pricing.Site{
			{Name: "Head Office", Postcode: "SW1A 1AA", AnnualConsumptionKWh: d("5000")},
			{Name: "=HYPERLINK(\"x\")", Postcode: "SW1A 1AA", AnnualConsumptionKWh: d("50000")},
		},
	})
	require.NoError(t, err)
	return sheet
}

func fixtureBook(t *testing.T) *pricebook.Book {
	t.Helper()
	tariffs := pricing.MustTariffTable([]types.TariffRow{tariff(12, "100000", "20.00", "4.000")})
	book, err := pricebook.Generate(tariffs, pricebook.DefaultConfig("Autumn"), pricebook.DefaultParams())
	require.NoError(t, err)
	return book
}

func render(t *testing.T, format Format, doc *Document) []byte {
	t.Helper()
	f, err := For(format)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf, doc))
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCLI, false},
		{"table", FormatCLI, false},
		{"JSON", FormatJSON, false},
		{"excel", FormatXLSX, false},
		{"xlsx", FormatXLSX, false},
		{" pdf ", FormatPDF, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry(t *testing.T) {
	all := Default().GetAll()
	require.Len(t, all, 4)
	assert.Equal(t, FormatCLI, all[0].Format())

	r := NewRegistry()
	require.NoError(t, r.Register(JSONFormatter{}))
	assert.Error(t, r.Register(JSONFormatter{}))

	_, ok := r.GetFormatter(FormatPDF)
	assert.False(t, ok)
}

func TestRenderRejectsEmptyDocument(t *testing.T) {
	for _, f := range Default().GetAll() {
		assert.Error(t, f.Render(&bytes.Buffer{}, &Document{}), f.Format())
	}
}

func TestCLIQuote(t *testing.T) {
	out := string(render(t, FormatCLI, QuoteDocument(fixtureSheet(t))))

	assert.Contains(t, out, "QUOTE SUMMARY - ACME LTD")
	assert.Contains(t, out, "£273.00")
	assert.Contains(t, out, "£264.35")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Warnings:")
	assert.NotContains(t, out, "MARGIN")

	for _, line := range strings.Split(strings.TrimSpace(strings.SplitN(out, "\n\n", 2)[0]), "\n") {
		assert.Equal(t, len([]rune(strings.Split(out, "\n")[0])), len([]rune(line)), "ragged box line %q", line)
	}
}

func TestCLISalesViewShowsMargin(t *testing.T) {
	doc := QuoteDocument(fixtureSheet(t))
	doc.SalesView = true
	assert.Contains(t, string(render(t, FormatCLI, doc)), "MARGIN")
}

func TestCLIBook(t *testing.T) {
	out := string(render(t, FormatCLI, BookDocument(fixtureBook(t))))
	assert.Contains(t, out, "PRICE BOOK - Autumn")
	assert.Contains(t, out, "1,000 – 3,000")
	assert.Contains(t, out, "N/A", "bands above the only row stay unpriced")
}

func TestJSONQuote(t *testing.T) {
	sheet := fixtureSheet(t)
	var decoded pricing.QuoteSheet
	require.NoError(t, json.Unmarshal(render(t, FormatJSON, QuoteDocument(sheet)), &decoded))

	assert.Equal(t, "Acme Ltd", decoded.Customer)
	require.Len(t, decoded.Lines, len(sheet.Lines))
	assert.True(t, decoded.Lines[0].Result.TotalAnnualCost.Equal(d("273")))
}

func TestXLSXQuote(t *testing.T) {
	doc := QuoteDocument(fixtureSheet(t))
	doc.CompanyName = "Northern Gas Brokers"

	f, err := excelize.OpenReader(bytes.NewReader(render(t, FormatXLSX, doc)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCustomerQuote, SheetWarnings}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	cell := func(c string) string {
		v, err := f.GetCellValue(SheetCustomerQuote, c, raw)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Northern Gas Brokers", cell("A1"))
	assert.Equal(t, "Site Name", cell("A4"))
	assert.Equal(t, "TAC £(12m)", cell("F4"))
	assert.Equal(t, "Head Office", cell("A5"))
	assert.Equal(t, "5000", cell("C5"))
	assert.Equal(t, "20", cell("D5"))
	assert.Equal(t, "273", cell("F5"))
	assert.Equal(t, "264.35", cell("I5"))

	assert.Equal(t, "'=HYPERLINK(\"x\")", cell("A6"), "formula-like names are neutralised")
	assert.Equal(t, "N/A", cell("F6"))
}

func TestXLSXSalesView(t *testing.T) {
	doc := QuoteDocument(fixtureSheet(t))
	doc.SalesView = true

	f, err := excelize.OpenReader(bytes.NewReader(render(t, FormatXLSX, doc)))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), SheetSalesView)
	matched, err := f.GetCellValue(SheetSalesView, "N2")
	require.NoError(t, err)
	assert.Equal(t, "Yes", matched)
}

func TestXLSXBook(t *testing.T) {
	f, err := excelize.OpenReader(bytes.NewReader(render(t, FormatXLSX, BookDocument(fixtureBook(t)))))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPriceBook}, f.GetSheetList())
	label, err := f.GetCellValue(SheetPriceBook, "A5")
	require.NoError(t, err)
	assert.Equal(t, "1,000 – 3,000", label)
}

func TestPDF(t *testing.T) {
	for name, doc := range map[string]*Document{
		"quote": QuoteDocument(fixtureSheet(t)),
		"book":  BookDocument(fixtureBook(t)),
	} {
		t.Run(name, func(t *testing.T) {
			out := render(t, FormatPDF, doc)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "£1,234,567.89", money(types.CurrencyGBP, d("1234567.891")))
	assert.Equal(t, "-£12.50", money(types.CurrencyGBP, d("-12.5")))
	assert.Equal(t, "GBP 999.00", pdfMoney(types.CurrencyGBP, d("999")))
}
