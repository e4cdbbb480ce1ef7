package pricebook

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nhhRow(region string, min, max, sc, day, night, evw string, green bool) types.TariffRow {
	return types.TariffRow{
		RegionCode:             region,
		ContractDurationMonths: 12,
		MinAnnualConsumption:   d(min),
		MaxAnnualConsumption:   d(max),
		CarbonOffset:           green,
		StandingCharge:         d(sc),
		UnitRate:               d(day),
		Rates:                  &types.MultiRate{Day: d(day), Night: d(night), EveningWeekend: d(evw)},
	}
}

func fixtureTable() *pricing.TariffTable {
	return pricing.MustTariffTable([]types.TariffRow{
		nhhRow("EM", "0", "3000", "20", "30", "20", "10", false),
		nhhRow("EM", "3001", "12500", "22", "28", "19", "9", false),
		nhhRow("EM", "3001", "12500", "18", "27", "18", "8", false),
		nhhRow("EM", "0", "3000", "25", "32", "22", "12", true),
	})
}

func TestGenerateAllocatesCostAtMidpoint(t *testing.T) {
	cfg := Config{Name: "test", Bands: []Band{{Min: d("1000"), Max: d("3000")}}}

	book, err := Generate(fixtureTable(), cfg, DefaultParams())
	require.NoError(t, err)
	require.Len(t, book.Entries, 1)

	e := book.Entries[0]
	require.True(t, e.Matched)
	assert.Equal(t, "EM", e.RegionCode)
	assert.True(t, e.MidConsumption.Equal(d("2000")))
	// 20 + 12000p*50%/365
	assert.Equal(t, "36.4384", e.StandingCharge.StringFixed(RatePlaces))
	// 30 + 6000p/2000kWh
	assert.True(t, e.Rates.Day.Equal(d("33")))
	assert.True(t, e.Rates.Night.Equal(d("23")))
	// (29*2000 + 20*365 + 6000)/100
	assert.Equal(t, "713.00", e.TotalAnnualCost.StringFixed(types.MoneyPlaces))
}

func TestGenerateAddsBandUplifts(t *testing.T) {
	params := DefaultParams()
	params.TotalCost = d("0")
	cfg := Config{Bands: []Band{{
		Min: d("1000"), Max: d("3000"),
		UpliftStanding: d("5"), UpliftDay: d("1"), UpliftNight: d("2"), UpliftEVW: d("3"),
	}}}

	book, err := Generate(fixtureTable(), cfg, params)
	require.NoError(t, err)

	e := book.Entries[0]
	assert.True(t, e.StandingCharge.Equal(d("25")))
	assert.True(t, e.Rates.Day.Equal(d("31")))
	assert.True(t, e.Rates.Night.Equal(d("22")))
	assert.True(t, e.Rates.EveningWeekend.Equal(d("13")))
}

func TestGeneratePicksCheapestOverlappingRow(t *testing.T) {
	cfg := Config{Bands: []Band{{Min: d("3001"), Max: d("12500")}}}

	book, err := Generate(fixtureTable(), cfg, DefaultParams())
	require.NoError(t, err)
	e := book.Entries[0]
	require.True(t, e.Matched)
	// the 27/18/8 row is cheaper under 70/20/10 and carries SC 18
	assert.Equal(t, "34.4384", e.StandingCharge.StringFixed(RatePlaces))
	assert.True(t, e.Rates.Day.GreaterThan(d("27")))
}

func TestGenerateGreenAndMissingBands(t *testing.T) {
	params := DefaultParams()
	params.Green = true

	book, err := Generate(fixtureTable(), DefaultConfig("green"), params)
	require.NoError(t, err)
	require.Len(t, book.Entries, 7)

	assert.True(t, book.Entries[0].Matched, "1,000-3,000 overlaps the green row")
	for _, e := range book.Entries[1:] {
		assert.False(t, e.Matched, "band %s has no green row", e.Band.Label())
		assert.True(t, e.TotalAnnualCost.IsZero())
	}
}

func TestGenerateRegionFilter(t *testing.T) {
	params := DefaultParams()
	params.Region = "NW"

	book, err := Generate(fixtureTable(), Config{Bands: DefaultBands()[:1]}, params)
	require.NoError(t, err)
	assert.False(t, book.Entries[0].Matched)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		mutate func(*Params)
	}{
		{"no bands", Config{}, nil},
		{"inverted band", Config{Bands: []Band{{Min: d("5000"), Max: d("100")}}}, nil},
		{"standing share over 100", Config{Bands: DefaultBands()}, func(p *Params) { p.StandingPct = d("150") }},
		{"profile off 100", Config{Bands: DefaultBands()}, func(p *Params) { p.Profile.Night = d("25") }},
		{"negative uplift", Config{Bands: []Band{{Min: d("0"), Max: d("10"), UpliftDay: d("-1")}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			if tt.mutate != nil {
				tt.mutate(&params)
			}
			_, err := Generate(fixtureTable(), tt.cfg, params)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeInput))
		})
	}
}

func TestAllocate(t *testing.T) {
	sc, ur := Allocate(d("365"), d("100"), d("1000"))
	assert.True(t, sc.Equal(d("100")))
	assert.True(t, ur.IsZero())

	sc, ur = Allocate(d("100"), d("0"), d("5000"))
	assert.True(t, sc.IsZero())
	assert.True(t, ur.Equal(d("2")))
}

func TestBandLabel(t *testing.T) {
	bands := DefaultBands()
	assert.Equal(t, "1,000 – 3,000", bands[0].Label())
	assert.Equal(t, "225,001 – 300,000", bands[6].Label())
}

func TestReadConfigAcceptsNumericJSON(t *testing.T) {
	raw := `{
  "name": "Sep24_Sculpted",
  "date": "2024-09-01",
  "notes": "Trial pricing for September",
  "bands": [
    {"min": 1000, "max": 3000, "uplift_standing": 1.5, "uplift_day": 0.2, "uplift_night": 0.1, "uplift_evw": 0}
  ]
}`
	cfg, err := ReadConfig(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Sep24_Sculpted", cfg.Name)
	require.Len(t, cfg.Bands, 1)
	assert.True(t, cfg.Bands[0].UpliftStanding.Equal(d("1.5")))

	var buf bytes.Buffer
	require.NoError(t, WriteConfig(&buf, cfg))
	again, err := ReadConfig(&buf)
	require.NoError(t, err)
	assert.True(t, again.Bands[0].UpliftDay.Equal(d("0.2")))
}

func TestReadConfigRejectsEmpty(t *testing.T) {
	_, err := ReadConfig(strings.NewReader(`{"name":"x","bands":[]}`))
	assert.True(t, errors.IsType(err, errors.TypeParsing))

	_, err = ReadConfig(strings.NewReader(`{`))
	assert.True(t, errors.IsType(err, errors.TypeParsing))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriteConfigReportsEncodeFailure(t *testing.T) {
	err := WriteConfig(failingWriter{}, DefaultConfig("Q4"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeInternal))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestConfigFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bands.json")
	cfg := DefaultConfig("Q4")
	cfg.Date = ""

	require.NoError(t, SaveConfigFile(path, cfg))
	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Q4", loaded.Name)
	assert.NotEmpty(t, loaded.Date)
	assert.Len(t, loaded.Bands, 7)
}
