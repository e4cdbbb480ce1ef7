// Package types defines the core types for energy quote pricing.
// These types are provider-agnostic: the same rate table shape serves
// gas (LDZ regions) and electricity (distribution regions) products.
package types

import "github.com/shopspring/decimal"

// Currency represents a currency code
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// Symbol returns the major-unit symbol used in quote documents
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	default:
		return "£"
	}
}

// DaysPerYear annualizes standing charges. Fixed, not calendar-aware.
const DaysPerYear = 365

const (
	// MoneyPlaces is the precision of money figures at output
	MoneyPlaces int32 = 2

	// RatePlaces is the precision of unit rates at output
	RatePlaces int32 = 3
)

var (
	minorPerMajor = decimal.NewFromInt(100)
	daysPerYear   = decimal.NewFromInt(DaysPerYear)
)

// MinorToMajor converts minor currency units (pence) to major units (pounds)
func MinorToMajor(minor decimal.Decimal) decimal.Decimal {
	return minor.Div(minorPerMajor)
}

// MajorToMinor converts major currency units to minor units
func MajorToMinor(major decimal.Decimal) decimal.Decimal {
	return major.Mul(minorPerMajor)
}

// AnnualCost is (unitRate*kWh + standingCharge*365)/100 with no rounding.
// Rates are minor units; the result is in major units.
func AnnualCost(unitRate, standingCharge, kwh decimal.Decimal) decimal.Decimal {
	energy := unitRate.Mul(kwh)
	standing := standingCharge.Mul(daysPerYear)
	return MinorToMajor(energy.Add(standing))
}

// RoundMoney rounds a money figure for output
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// RoundRate rounds a unit rate for output
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// RegionLookupEntry maps one reference postcode to its region (LDZ)
type RegionLookupEntry struct {
	// PostcodePrefix is the reference postcode, matched by prefix
	PostcodePrefix string `json:"postcode_prefix"`

	// RegionCode is the pricing region
	RegionCode string `json:"region_code"`
}
