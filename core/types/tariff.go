// Package types - Tariff rate table types
package types

import "github.com/shopspring/decimal"

// TariffRow is one supplier flat-file record
type TariffRow struct {
	// RegionCode matches RegionLookupEntry.RegionCode
	RegionCode string `json:"region_code" validate:"required"`

	// ContractDurationMonths is the contract length; any positive integer
	ContractDurationMonths int `json:"contract_duration_months" validate:"gt=0"`

	// MinAnnualConsumption is the inclusive lower band edge (kWh)
	MinAnnualConsumption decimal.Decimal `json:"min_annual_consumption" validate:"gte=0"`

	// MaxAnnualConsumption is the inclusive upper band edge (kWh)
	MaxAnnualConsumption decimal.Decimal `json:"max_annual_consumption" validate:"gte=0"`

	// CarbonOffset selects the green product variant
	CarbonOffset bool `json:"carbon_offset"`

	// StandingCharge is in minor units per day
	StandingCharge decimal.Decimal `json:"standing_charge" validate:"gte=0"`

	// UnitRate is in minor units per kWh
	UnitRate decimal.Decimal `json:"unit_rate" validate:"gte=0"`

	// Rates holds the split rates of a multi-rate product, nil for single-rate
	Rates *MultiRate `json:"rates,omitempty" validate:"omitempty"`

	// SourceRow is the sheet row the record was read from, 0 if built in code
	SourceRow int `json:"source_row,omitempty"`
}

// InBand reports whether kwh lies inside the row's inclusive band
func (r TariffRow) InBand(kwh decimal.Decimal) bool {
	return r.MinAnnualConsumption.LessThanOrEqual(kwh) && kwh.LessThanOrEqual(r.MaxAnnualConsumption)
}

// Overlaps reports whether the row's band intersects [min, max]
func (r TariffRow) Overlaps(min, max decimal.Decimal) bool {
	return r.MinAnnualConsumption.LessThanOrEqual(max) && r.MaxAnnualConsumption.GreaterThanOrEqual(min)
}

// IsMultiRate reports whether the row carries split rates
func (r TariffRow) IsMultiRate() bool {
	return r.Rates != nil
}

// MultiRate holds parallel unit rates (minor units per kWh)
type MultiRate struct {
	Day            decimal.Decimal `json:"day" validate:"gte=0"`
	Night          decimal.Decimal `json:"night" validate:"gte=0"`
	EveningWeekend decimal.Decimal `json:"evening_weekend" validate:"gte=0"`
}

// Add returns the per-rate sum of m and o
func (m MultiRate) Add(o MultiRate) MultiRate {
	return MultiRate{
		Day:            m.Day.Add(o.Day),
		Night:          m.Night.Add(o.Night),
		EveningWeekend: m.EveningWeekend.Add(o.EveningWeekend),
	}
}

// AddAll adds the same amount to every rate
func (m MultiRate) AddAll(d decimal.Decimal) MultiRate {
	return MultiRate{
		Day:            m.Day.Add(d),
		Night:          m.Night.Add(d),
		EveningWeekend: m.EveningWeekend.Add(d),
	}
}

// Round rounds every rate to RatePlaces
func (m MultiRate) Round() MultiRate {
	return MultiRate{
		Day:            RoundRate(m.Day),
		Night:          RoundRate(m.Night),
		EveningWeekend: RoundRate(m.EveningWeekend),
	}
}

// ProfileSplit is a consumption profile in whole percentages
type ProfileSplit struct {
	Day            decimal.Decimal `json:"day" validate:"gte=0,lte=100"`
	Night          decimal.Decimal `json:"night" validate:"gte=0,lte=100"`
	EveningWeekend decimal.Decimal `json:"evening_weekend" validate:"gte=0,lte=100"`
}

// DefaultProfileSplit is the 70/20/10 split the pricing tools start from
func DefaultProfileSplit() ProfileSplit {
	return ProfileSplit{
		Day:            decimal.NewFromInt(70),
		Night:          decimal.NewFromInt(20),
		EveningWeekend: decimal.NewFromInt(10),
	}
}

// Total returns the sum of the three percentages
func (p ProfileSplit) Total() decimal.Decimal {
	return p.Day.Add(p.Night).Add(p.EveningWeekend)
}

// Weighted returns the profile-weighted unit rate of m
func (p ProfileSplit) Weighted(m MultiRate) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return m.Day.Mul(p.Day).
		Add(m.Night.Mul(p.Night)).
		Add(m.EveningWeekend.Mul(p.EveningWeekend)).
		Div(hundred)
}
