package pricing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

func fixturePricer() *Pricer {
	regions := region.NewTable([]types.RegionLookupEntry{{PostcodePrefix: "SW1A", RegionCode: "LN"}})
	tariffs := MustTariffTable([]types.TariffRow{
		row("LN", 12, "0", "10000", false, "20.00", "4.000"),
	})
	return NewPricer(regions, tariffs, types.DefaultUpliftCaps())
}

func line(kwh, scUplift, urUplift string) types.QuoteLineInput {
	return types.QuoteLineInput{
		Postcode:               "SW1A 1AA",
		AnnualConsumptionKWh:   d(kwh),
		ContractDurationMonths: 12,
		StandingChargeUplift:   d(scUplift),
		UnitRateUplift:         d(urUplift),
	}
}

func assertDec(t *testing.T, want string, got interface{ String() string }, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(d(got.String())), "%s: want %s got %s", field, want, got.String())
}

func TestPriceLineNoUplift(t *testing.T) {
	res, err := fixturePricer().PriceLine(line("5000", "0", "0"))
	require.NoError(t, err)

	assert.Equal(t, "LN", res.RegionCode)
	assert.True(t, res.Matched)
	assert.False(t, res.UpliftWasCapped)
	assertDec(t, "20.00", res.StandingChargeSell, "sell sc")
	assertDec(t, "4.000", res.UnitRateSell, "sell unit")
	assertDec(t, "273.00", res.TotalAnnualCost, "tac")
	assertDec(t, "273.00", res.BaseAnnualCost, "base")
	assertDec(t, "0", res.Margin, "margin")
	assert.Equal(t, "273.00", res.TotalAnnualCost.StringFixed(types.MoneyPlaces))
}

func TestPriceLineCapsStandingChargeUplift(t *testing.T) {
	res, err := fixturePricer().PriceLine(line("5000", "150", "0"))
	require.NoError(t, err)

	assert.True(t, res.UpliftWasCapped)
	assertDec(t, "100", res.StandingChargeUplift, "capped uplift")
	assertDec(t, "120.00", res.StandingChargeSell, "sell sc")
	// (4*5000 + 120*365)/100
	assertDec(t, "638.00", res.TotalAnnualCost, "tac")
	assertDec(t, "365.00", res.Margin, "margin")
}

func TestPriceLineCapsUnitRateUplift(t *testing.T) {
	res, err := fixturePricer().PriceLine(line("5000", "0", "3.5"))
	require.NoError(t, err)

	assert.True(t, res.UpliftWasCapped)
	assertDec(t, "7.000", res.UnitRateSell, "sell unit")
}

func TestPriceLineRegionNotFound(t *testing.T) {
	in := line("5000", "0", "0")
	in.Postcode = "ZZ9 9ZZ"

	_, err := fixturePricer().PriceLine(in)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeRegionNotFound))
}

func TestPriceLineNoTariffMatchIsZeroPriced(t *testing.T) {
	res, err := fixturePricer().PriceLine(line("20000", "0", "0"))
	require.NoError(t, err)

	assert.False(t, res.Matched)
	assert.Equal(t, "LN", res.RegionCode)
	assertDec(t, "0", res.StandingChargeBase, "base sc")
	assertDec(t, "0", res.UnitRateBase, "base unit")
	assertDec(t, "0", res.StandingChargeSell, "sell sc")
	assertDec(t, "0", res.UnitRateSell, "sell unit")
	assertDec(t, "0", res.TotalAnnualCost, "tac")
	assert.Equal(t, "0.00", res.TotalAnnualCost.StringFixed(types.MoneyPlaces))
}

func TestPriceLineRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.QuoteLineInput)
	}{
		{"zero consumption", func(in *types.QuoteLineInput) { in.AnnualConsumptionKWh = d("0") }},
		{"negative uplift", func(in *types.QuoteLineInput) { in.UnitRateUplift = d("-0.1") }},
		{"zero duration", func(in *types.QuoteLineInput) { in.ContractDurationMonths = 0 }},
		{"missing postcode", func(in *types.QuoteLineInput) { in.Postcode = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := line("5000", "0", "0")
			tt.mutate(&in)
			_, err := fixturePricer().PriceLine(in)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeInput))
		})
	}
}

func TestPriceLineCapIsIdempotent(t *testing.T) {
	p := fixturePricer()

	first, err := p.PriceLine(line("5000", "150", "4"))
	require.NoError(t, err)

	// feed the clamped values back in
	second, err := p.PriceLine(line("5000", first.StandingChargeUplift.String(), first.UnitRateUplift.String()))
	require.NoError(t, err)

	assert.Equal(t, first.TotalAnnualCost.String(), second.TotalAnnualCost.String())
	assert.Equal(t, first.StandingChargeSell.String(), second.StandingChargeSell.String())
	assert.Equal(t, first.UnitRateSell.String(), second.UnitRateSell.String())
	assert.False(t, second.UpliftWasCapped)
}

func TestPriceLineRoundsOnceAtOutput(t *testing.T) {
	regions := region.NewTable([]types.RegionLookupEntry{{PostcodePrefix: "M1 1AA", RegionCode: "NW"}})
	tariffs := MustTariffTable([]types.TariffRow{
		row("NW", 12, "0", "100000", false, "27.4567", "3.12345"),
	})
	p := NewPricer(regions, tariffs, types.DefaultUpliftCaps())

	in := types.QuoteLineInput{
		Postcode:               "M1 1AA",
		AnnualConsumptionKWh:   d("12345"),
		ContractDurationMonths: 12,
		StandingChargeUplift:   d("1.3333"),
		UnitRateUplift:         d("0.4444"),
	}
	res, err := p.PriceLine(in)
	require.NoError(t, err)

	base := types.AnnualCost(d("3.12345"), d("27.4567"), d("12345"))
	sell := types.AnnualCost(d("3.56785"), d("28.79"), d("12345"))

	assert.True(t, res.BaseAnnualCost.Equal(base.Round(2)))
	assert.True(t, res.TotalAnnualCost.Equal(sell.Round(2)))
	assert.True(t, res.Margin.Equal(sell.Sub(base).Round(2)))

	diff := res.TotalAnnualCost.Sub(res.BaseAnnualCost).Sub(res.Margin).Abs()
	assert.True(t, diff.LessThanOrEqual(d("0.01")), "margin drift %s", diff)
	assertDec(t, "3.568", res.UnitRateSell, "sell unit")
	assertDec(t, "28.79", res.StandingChargeSell, "sell sc")
}

func TestPriceLineFreeFunction(t *testing.T) {
	p := fixturePricer()
	res, err := PriceLine(line("5000", "0", "0"), p.Regions(), p.Tariffs(), p.Caps())
	require.NoError(t, err)
	assertDec(t, "273", res.TotalAnnualCost, "tac")
}

func TestPriceLineConcurrentCallsAgree(t *testing.T) {
	p := fixturePricer()
	want, err := p.PriceLine(line("7500", "10", "1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]types.QuoteLineResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = p.PriceLine(line("7500", "10", "1"))
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.TotalAnnualCost.String(), got.TotalAnnualCost.String())
	}
}

func TestClamp(t *testing.T) {
	got, capped := Clamp(d("150"), d("100"))
	assert.True(t, capped)
	assert.True(t, got.Equal(d("100")))

	got, capped = Clamp(d("100"), d("100"))
	assert.False(t, capped)
	assert.True(t, got.Equal(d("100")))

	got, capped = Clamp(d("2.5"), d("3"))
	assert.False(t, capped)
	assert.True(t, got.Equal(d("2.5")))
}
