package pricing

import (
	"github.com/shopspring/decimal"

	"energy-quote/core/types"
)

// Clamp returns min(uplift, limit) and whether the uplift was reduced.
// Clamping an already clamped value is a no-op.
func Clamp(uplift, limit decimal.Decimal) (decimal.Decimal, bool) {
	if uplift.GreaterThan(limit) {
		return limit, true
	}
	return uplift, false
}

// clampLine applies both caps of a single-rate line
func clampLine(sc, ur decimal.Decimal, caps types.UpliftCaps) (decimal.Decimal, decimal.Decimal, bool) {
	sc, scCapped := Clamp(sc, caps.MaxStandingChargeUplift)
	ur, urCapped := Clamp(ur, caps.MaxUnitRateUplift)
	return sc, ur, scCapped || urCapped
}

// clampRates caps every split rate uplift with the unit rate cap
func clampRates(m types.MultiRate, limit decimal.Decimal) (types.MultiRate, bool) {
	day, c1 := Clamp(m.Day, limit)
	night, c2 := Clamp(m.Night, limit)
	evw, c3 := Clamp(m.EveningWeekend, limit)
	return types.MultiRate{Day: day, Night: night, EveningWeekend: evw}, c1 || c2 || c3
}
