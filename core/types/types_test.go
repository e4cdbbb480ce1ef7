package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAnnualCost(t *testing.T) {
	tests := []struct {
		name     string
		unitRate string
		standing string
		kwh      string
		want     string
	}{
		{"single rate gas site", "4.000", "20.00", "5000", "273"},
		{"zero priced line", "0", "0", "20000", "0"},
		{"standing charge only", "0", "100", "1", "365"},
		{"fractional pence", "3.125", "27.5", "12345", "486.15625"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualCost(d(tt.unitRate), d(tt.standing), d(tt.kwh))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestRoundingPlaces(t *testing.T) {
	assert.Equal(t, "486.16", RoundMoney(d("486.15625")).StringFixed(MoneyPlaces))
	assert.Equal(t, "0.13", RoundMoney(d("0.125")).StringFixed(MoneyPlaces))
	assert.Equal(t, "3.126", RoundRate(d("3.12550")).StringFixed(RatePlaces))
}

func TestTariffRowBandIsInclusive(t *testing.T) {
	row := TariffRow{MinAnnualConsumption: d("0"), MaxAnnualConsumption: d("10000")}

	assert.True(t, row.InBand(d("0")))
	assert.True(t, row.InBand(d("10000")))
	assert.True(t, row.InBand(d("5000")))
	assert.False(t, row.InBand(d("10000.01")))
}

func TestTariffRowOverlaps(t *testing.T) {
	row := TariffRow{MinAnnualConsumption: d("3001"), MaxAnnualConsumption: d("12500")}

	assert.True(t, row.Overlaps(d("1000"), d("3001")))
	assert.True(t, row.Overlaps(d("12500"), d("26000")))
	assert.False(t, row.Overlaps(d("12501"), d("26000")))
}

func TestProfileSplitWeighted(t *testing.T) {
	rates := MultiRate{Day: d("30"), Night: d("20"), EveningWeekend: d("10")}
	p := DefaultProfileSplit()

	assert.True(t, p.Total().Equal(d("100")))
	// 30*0.7 + 20*0.2 + 10*0.1
	assert.True(t, p.Weighted(rates).Equal(d("26")))
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "£", CurrencyGBP.Symbol())
	assert.Equal(t, "€", CurrencyEUR.Symbol())
}
