// Package pricebook builds banded price books for multi-rate products.
//
// A price book quotes one row per consumption band instead of one row per
// site. Each band takes the cheapest overlapping tariff row, adds a fixed
// per-meter cost allocated between standing charge and unit rates, adds the
// band's own uplifts and prices the band at its mid-point.
package pricebook

import (
	"time"

	"github.com/shopspring/decimal"

	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/validation"
)

// RatePlaces is the precision of price book rates
const RatePlaces int32 = 4

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	days    = decimal.NewFromInt(types.DaysPerYear)
)

// Band is one consumption band with its uplifts
type Band struct {
	Min decimal.Decimal `json:"min" validate:"gte=0"`
	Max decimal.Decimal `json:"max" validate:"gt=0"`

	// Uplifts are in minor units (p/day, p/kWh)
	UpliftStanding decimal.Decimal `json:"uplift_standing" validate:"gte=0"`
	UpliftDay      decimal.Decimal `json:"uplift_day" validate:"gte=0"`
	UpliftNight    decimal.Decimal `json:"uplift_night" validate:"gte=0"`
	UpliftEVW      decimal.Decimal `json:"uplift_evw" validate:"gte=0"`
}

// Label renders the band as "1,000 – 3,000"
func (b Band) Label() string {
	return groupThousands(b.Min) + " – " + groupThousands(b.Max)
}

// Mid returns the band mid-point
func (b Band) Mid() decimal.Decimal {
	return b.Min.Add(b.Max).Div(two)
}

func (b Band) rateUplifts() types.MultiRate {
	return types.MultiRate{Day: b.UpliftDay, Night: b.UpliftNight, EveningWeekend: b.UpliftEVW}
}

// DefaultBands returns the standard seven NHH bands with no uplift
func DefaultBands() []Band {
	edges := [][2]int64{
		{1000, 3000},
		{3001, 12500},
		{12501, 26000},
		{26001, 100000},
		{100001, 175000},
		{175001, 225000},
		{225001, 300000},
	}
	out := make([]Band, len(edges))
	for i, e := range edges {
		out[i] = Band{Min: decimal.NewFromInt(e[0]), Max: decimal.NewFromInt(e[1])}
	}
	return out
}

// Params are the book-wide settings
type Params struct {
	// TotalCost is the per-meter cost to recover, in major units per year
	TotalCost decimal.Decimal `json:"total_cost" validate:"gte=0"`

	// StandingPct is the share of TotalCost put on the standing charge (0-100)
	StandingPct decimal.Decimal `json:"standing_pct" validate:"gte=0,lte=100"`

	DurationMonths int                `json:"duration_months" validate:"gt=0"`
	Green          bool               `json:"green"`
	Profile        types.ProfileSplit `json:"profile"`

	// Region restricts rows to one region; empty accepts every region
	Region string `json:"region,omitempty"`
}

// DefaultParams mirrors the pricing desk's starting values
func DefaultParams() Params {
	return Params{
		TotalCost:      decimal.NewFromInt(120),
		StandingPct:    decimal.NewFromInt(50),
		DurationMonths: 12,
		Profile:        types.DefaultProfileSplit(),
	}
}

// Entry is one priced band. Unmatched bands carry only the band.
type Entry struct {
	Band           Band            `json:"band"`
	Matched        bool            `json:"matched"`
	RegionCode     string          `json:"region_code,omitempty"`
	MidConsumption decimal.Decimal `json:"mid_consumption"`

	// StandingCharge and Rates include the allocated cost and uplifts
	StandingCharge decimal.Decimal `json:"standing_charge"`
	Rates          types.MultiRate `json:"rates"`

	// TotalAnnualCost is priced at MidConsumption, in major units
	TotalAnnualCost decimal.Decimal `json:"total_annual_cost"`
}

// Book is a generated price book
type Book struct {
	Name        string    `json:"name"`
	Notes       string    `json:"notes,omitempty"`
	Params      Params    `json:"params"`
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Allocate splits the per-meter cost into p/day and p/kWh at consumption
func Allocate(totalCost, standingPct, consumption decimal.Decimal) (sc, ur decimal.Decimal) {
	pence := types.MajorToMinor(totalCost)
	share := standingPct.Div(hundred)
	sc = pence.Mul(share).Div(days)
	if consumption.IsPositive() {
		ur = pence.Mul(decimal.NewFromInt(1).Sub(share)).Div(consumption)
	}
	return sc, ur
}

// Generate prices every band of cfg against tariffs
func Generate(tariffs *pricing.TariffTable, cfg Config, params Params) (*Book, error) {
	if err := validate(cfg, params); err != nil {
		return nil, err
	}

	book := &Book{
		Name:        cfg.Name,
		Notes:       cfg.Notes,
		Params:      params,
		Entries:     make([]Entry, 0, len(cfg.Bands)),
		GeneratedAt: time.Now().UTC(),
	}
	rank := pricing.WeightedRank(params.Profile)

	for _, band := range cfg.Bands {
		entry := Entry{Band: band, MidConsumption: band.Mid()}

		row, ok := tariffs.SelectOverlapping(params.Region, band.Min, band.Max, params.DurationMonths, params.Green, rank)
		if !ok {
			book.Entries = append(book.Entries, entry)
			continue
		}

		allocSC, allocUR := Allocate(params.TotalCost, params.StandingPct, entry.MidConsumption)
		sc := row.StandingCharge.Add(allocSC).Add(band.UpliftStanding)
		rates := pricing.RatesOf(row).AddAll(allocUR).Add(band.rateUplifts())
		tac := types.AnnualCost(params.Profile.Weighted(rates), sc, entry.MidConsumption)

		entry.Matched = true
		entry.RegionCode = row.RegionCode
		entry.StandingCharge = sc.Round(RatePlaces)
		entry.Rates = types.MultiRate{
			Day:            rates.Day.Round(RatePlaces),
			Night:          rates.Night.Round(RatePlaces),
			EveningWeekend: rates.EveningWeekend.Round(RatePlaces),
		}
		entry.TotalAnnualCost = types.RoundMoney(tac)
		book.Entries = append(book.Entries, entry)
	}

	return book, nil
}

func validate(cfg Config, params Params) error {
	v := validation.Default()
	if err := v.Struct(params); err != nil {
		return errors.Wrap(errors.TypeInput, "invalid price book parameters", err).
			WithContext("fields", validation.FieldErrors(err))
	}
	if err := pricing.ValidateProfile(params.Profile); err != nil {
		return err
	}
	if len(cfg.Bands) == 0 {
		return errors.Input("price book needs at least one band")
	}
	for i, b := range cfg.Bands {
		if err := v.Struct(b); err != nil {
			return errors.Wrapf(errors.TypeInput, err, "band %d", i+1).
				WithContext("fields", validation.FieldErrors(err))
		}
		if b.Min.GreaterThan(b.Max) {
			return errors.Newf(errors.TypeInput, "band %d: min %s above max %s", i+1, b.Min, b.Max)
		}
	}
	return nil
}

// groupThousands formats an integral band edge with comma separators
func groupThousands(d decimal.Decimal) string {
	s := d.Truncate(0).String()
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg, s = true, s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	if frac := d.Sub(d.Truncate(0)); !frac.IsZero() {
		s += frac.Abs().String()[1:]
	}
	return s
}
