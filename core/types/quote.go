// Package types - Quote line types
package types

import "github.com/shopspring/decimal"

// UpliftCaps bounds the margin a seller may add per line
type UpliftCaps struct {
	// MaxStandingChargeUplift is in minor units per day
	MaxStandingChargeUplift decimal.Decimal `json:"max_standing_charge_uplift"`

	// MaxUnitRateUplift is in minor units per kWh
	MaxUnitRateUplift decimal.Decimal `json:"max_unit_rate_uplift"`
}

// DefaultUpliftCaps returns the 100 p/day and 3.000 p/kWh caps
func DefaultUpliftCaps() UpliftCaps {
	return UpliftCaps{
		MaxStandingChargeUplift: decimal.NewFromInt(100),
		MaxUnitRateUplift:       decimal.NewFromInt(3),
	}
}

// QuoteLineInput is one site priced for one contract duration
type QuoteLineInput struct {
	Postcode               string          `json:"postcode" validate:"required"`
	AnnualConsumptionKWh   decimal.Decimal `json:"annual_consumption_kwh" validate:"gt=0"`
	ContractDurationMonths int             `json:"contract_duration_months" validate:"gt=0"`
	CarbonOffsetRequired   bool            `json:"carbon_offset_required"`
	StandingChargeUplift   decimal.Decimal `json:"standing_charge_uplift" validate:"gte=0"`
	UnitRateUplift         decimal.Decimal `json:"unit_rate_uplift" validate:"gte=0"`
}

// QuoteLineResult is derived wholesale from a QuoteLineInput and the rate tables.
// Money figures are rounded to MoneyPlaces and unit rates to RatePlaces.
type QuoteLineResult struct {
	// RegionCode is the region the postcode resolved to
	RegionCode string `json:"region_code"`

	StandingChargeBase decimal.Decimal `json:"standing_charge_base"`
	UnitRateBase       decimal.Decimal `json:"unit_rate_base"`
	StandingChargeSell decimal.Decimal `json:"standing_charge_sell"`
	UnitRateSell       decimal.Decimal `json:"unit_rate_sell"`

	// StandingChargeUplift and UnitRateUplift are the uplifts after capping
	StandingChargeUplift decimal.Decimal `json:"standing_charge_uplift"`
	UnitRateUplift       decimal.Decimal `json:"unit_rate_uplift"`

	// BaseAnnualCost is the supplier-side TAC in major units
	BaseAnnualCost decimal.Decimal `json:"base_annual_cost"`

	// TotalAnnualCost is the customer-facing TAC in major units
	TotalAnnualCost decimal.Decimal `json:"total_annual_cost"`

	// Margin is TotalAnnualCost - BaseAnnualCost, computed before rounding
	Margin decimal.Decimal `json:"margin"`

	// Matched is false when no tariff row matched and the base was priced at zero
	Matched bool `json:"matched"`

	// UpliftWasCapped is true when either uplift was clamped
	UpliftWasCapped bool `json:"uplift_was_capped"`
}

// MultiRateLineInput is a QuoteLineInput for a multi-rate product
type MultiRateLineInput struct {
	Postcode               string          `json:"postcode" validate:"required"`
	AnnualConsumptionKWh   decimal.Decimal `json:"annual_consumption_kwh" validate:"gt=0"`
	ContractDurationMonths int             `json:"contract_duration_months" validate:"gt=0"`
	CarbonOffsetRequired   bool            `json:"carbon_offset_required"`
	StandingChargeUplift   decimal.Decimal `json:"standing_charge_uplift" validate:"gte=0"`
	RateUplifts            MultiRate       `json:"rate_uplifts"`
	Profile                ProfileSplit    `json:"profile"`
}

// MultiRateLineResult mirrors QuoteLineResult for split rates
type MultiRateLineResult struct {
	RegionCode         string          `json:"region_code"`
	StandingChargeBase decimal.Decimal `json:"standing_charge_base"`
	StandingChargeSell decimal.Decimal `json:"standing_charge_sell"`
	RatesBase          MultiRate       `json:"rates_base"`
	RatesSell          MultiRate       `json:"rates_sell"`

	// WeightedUnitRateSell is the profile-weighted sell rate
	WeightedUnitRateSell decimal.Decimal `json:"weighted_unit_rate_sell"`

	BaseAnnualCost  decimal.Decimal `json:"base_annual_cost"`
	TotalAnnualCost decimal.Decimal `json:"total_annual_cost"`
	Margin          decimal.Decimal `json:"margin"`
	Matched         bool            `json:"matched"`
	UpliftWasCapped bool            `json:"uplift_was_capped"`
}
