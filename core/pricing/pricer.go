package pricing

import (
	"github.com/shopspring/decimal"

	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/validation"
)

// Pricer prices quote lines against one set of reference tables.
// A Pricer holds no mutable state and is safe for concurrent use.
type Pricer struct {
	regions *region.Table
	tariffs *TariffTable
	caps    types.UpliftCaps
}

// NewPricer creates a pricer over read-only tables
func NewPricer(regions *region.Table, tariffs *TariffTable, caps types.UpliftCaps) *Pricer {
	return &Pricer{regions: regions, tariffs: tariffs, caps: caps}
}

// Caps returns the uplift caps the pricer applies
func (p *Pricer) Caps() types.UpliftCaps {
	return p.caps
}

// Regions returns the region table
func (p *Pricer) Regions() *region.Table {
	return p.regions
}

// Tariffs returns the tariff table
func (p *Pricer) Tariffs() *TariffTable {
	return p.tariffs
}

// PriceLine prices a single line. A postcode with no region is the only
// hard failure after validation; a line with no matching tariff is
// zero-priced with Matched=false.
func (p *Pricer) PriceLine(input types.QuoteLineInput) (types.QuoteLineResult, error) {
	if err := validateInput(input); err != nil {
		return types.QuoteLineResult{}, err
	}

	code, err := region.Resolve(input.Postcode, p.regions)
	if err != nil {
		return types.QuoteLineResult{}, err
	}

	return p.priceResolved(code, input), nil
}

// PriceLine prices one line with explicit tables and caps
func PriceLine(input types.QuoteLineInput, regions *region.Table, tariffs *TariffTable, caps types.UpliftCaps) (types.QuoteLineResult, error) {
	return NewPricer(regions, tariffs, caps).PriceLine(input)
}

// priceResolved prices a validated line whose region is already known
func (p *Pricer) priceResolved(code string, input types.QuoteLineInput) types.QuoteLineResult {
	scUplift, urUplift, capped := clampLine(input.StandingChargeUplift, input.UnitRateUplift, p.caps)

	scBase, urBase := decimal.Zero, decimal.Zero
	row, matched := p.tariffs.Select(code, input.AnnualConsumptionKWh, input.ContractDurationMonths, input.CarbonOffsetRequired)
	if matched {
		scBase, urBase = row.StandingCharge, row.UnitRate
	}

	scSell := scBase.Add(scUplift)
	urSell := urBase.Add(urUplift)

	base := types.AnnualCost(urBase, scBase, input.AnnualConsumptionKWh)
	sell := types.AnnualCost(urSell, scSell, input.AnnualConsumptionKWh)
	margin := sell.Sub(base)

	return types.QuoteLineResult{
		RegionCode:           code,
		StandingChargeBase:   types.RoundMoney(scBase),
		UnitRateBase:         types.RoundRate(urBase),
		StandingChargeSell:   types.RoundMoney(scSell),
		UnitRateSell:         types.RoundRate(urSell),
		StandingChargeUplift: types.RoundMoney(scUplift),
		UnitRateUplift:       types.RoundRate(urUplift),
		BaseAnnualCost:       types.RoundMoney(base),
		TotalAnnualCost:      types.RoundMoney(sell),
		Margin:               types.RoundMoney(margin),
		Matched:              matched,
		UpliftWasCapped:      capped,
	}
}

func validateInput(input types.QuoteLineInput) error {
	if err := validation.Default().Struct(input); err != nil {
		return errors.Wrap(errors.TypeInput, "invalid quote line", err).
			WithContext("fields", validation.FieldErrors(err))
	}
	return nil
}
