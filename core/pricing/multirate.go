package pricing

import (
	"github.com/shopspring/decimal"

	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/validation"
)

var hundred = decimal.NewFromInt(100)

// RatesOf returns the split rates of a row. A single-rate row charges its
// UnitRate in every period.
func RatesOf(r types.TariffRow) types.MultiRate {
	if r.Rates != nil {
		return *r.Rates
	}
	return types.MultiRate{Day: r.UnitRate, Night: r.UnitRate, EveningWeekend: r.UnitRate}
}

// WeightedRank ranks rows by their profile-weighted unit rate
func WeightedRank(profile types.ProfileSplit) func(types.TariffRow) decimal.Decimal {
	return func(r types.TariffRow) decimal.Decimal {
		return profile.Weighted(RatesOf(r))
	}
}

// ValidateProfile checks the split covers exactly 100 percent
func ValidateProfile(profile types.ProfileSplit) error {
	if err := validation.Default().Struct(profile); err != nil {
		return errors.Wrap(errors.TypeInput, "invalid consumption profile", err).
			WithContext("fields", validation.FieldErrors(err))
	}
	if !profile.Total().Equal(hundred) {
		return errors.Newf(errors.TypeInput, "consumption profile must total 100%%, got %s%%", profile.Total().String())
	}
	return nil
}

// PriceMultiRateLine prices a day/night/evening-weekend line. Rows are
// selected with the single-rate band rule, ranked by the weighted rate
// under the input profile. Every rate uplift is capped by MaxUnitRateUplift.
func (p *Pricer) PriceMultiRateLine(input types.MultiRateLineInput) (types.MultiRateLineResult, error) {
	if err := validation.Default().Struct(input); err != nil {
		return types.MultiRateLineResult{}, errors.Wrap(errors.TypeInput, "invalid multi-rate line", err).
			WithContext("fields", validation.FieldErrors(err))
	}
	if err := ValidateProfile(input.Profile); err != nil {
		return types.MultiRateLineResult{}, err
	}

	code, err := region.Resolve(input.Postcode, p.regions)
	if err != nil {
		return types.MultiRateLineResult{}, err
	}

	scUplift, scCapped := Clamp(input.StandingChargeUplift, p.caps.MaxStandingChargeUplift)
	rateUplifts, ratesCapped := clampRates(input.RateUplifts, p.caps.MaxUnitRateUplift)

	scBase := decimal.Zero
	var ratesBase types.MultiRate
	row, matched := p.tariffs.SelectRanked(code, input.AnnualConsumptionKWh, input.ContractDurationMonths,
		input.CarbonOffsetRequired, WeightedRank(input.Profile))
	if matched {
		scBase = row.StandingCharge
		ratesBase = RatesOf(row)
	}

	scSell := scBase.Add(scUplift)
	ratesSell := ratesBase.Add(rateUplifts)
	weightedBase := input.Profile.Weighted(ratesBase)
	weightedSell := input.Profile.Weighted(ratesSell)

	base := types.AnnualCost(weightedBase, scBase, input.AnnualConsumptionKWh)
	sell := types.AnnualCost(weightedSell, scSell, input.AnnualConsumptionKWh)

	return types.MultiRateLineResult{
		RegionCode:           code,
		StandingChargeBase:   types.RoundMoney(scBase),
		StandingChargeSell:   types.RoundMoney(scSell),
		RatesBase:            ratesBase.Round(),
		RatesSell:            ratesSell.Round(),
		WeightedUnitRateSell: types.RoundRate(weightedSell),
		BaseAnnualCost:       types.RoundMoney(base),
		TotalAnnualCost:      types.RoundMoney(sell),
		Margin:               types.RoundMoney(sell.Sub(base)),
		Matched:              matched,
		UpliftWasCapped:      scCapped || ratesCapped,
	}, nil
}
