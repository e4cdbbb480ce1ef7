package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/validation"
)

// NoMatchPolicy decides what a batch does with a line no tariff row matched
type NoMatchPolicy string

const (
	// NoMatchZero keeps the zero-priced line and warns
	NoMatchZero NoMatchPolicy = "zero"

	// NoMatchSkip drops the line from the sheet and warns
	NoMatchSkip NoMatchPolicy = "skip"

	// NoMatchAbort fails the whole batch with NO_TARIFF_MATCH
	NoMatchAbort NoMatchPolicy = "abort"
)

// ParseNoMatchPolicy parses a policy name; empty means NoMatchZero
func ParseNoMatchPolicy(s string) (NoMatchPolicy, error) {
	switch NoMatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", NoMatchZero:
		return NoMatchZero, nil
	case NoMatchSkip:
		return NoMatchSkip, nil
	case NoMatchAbort:
		return NoMatchAbort, nil
	default:
		return "", errors.Newf(errors.TypeInput, "unknown no-match policy %q (want zero, skip or abort)", s)
	}
}

// DefaultDurations are the contract lengths quoted side by side
var DefaultDurations = []int{12, 24, 36}

// DefaultConcurrency bounds concurrent line pricing in a batch
const DefaultConcurrency = 8

// DurationUplift is the uplift pair a seller entered for one duration
type DurationUplift struct {
	StandingCharge decimal.Decimal `json:"standing_charge" validate:"gte=0"`
	UnitRate       decimal.Decimal `json:"unit_rate" validate:"gte=0"`
}

// Site is one meter point on a quote
type Site struct {
	Name                 string          `json:"name"`
	Postcode             string          `json:"postcode" validate:"required"`
	AnnualConsumptionKWh decimal.Decimal `json:"annual_consumption_kwh" validate:"gt=0"`

	// Uplifts are keyed by contract duration in months; a missing
	// duration is priced with no uplift
	Uplifts map[int]DurationUplift `json:"uplifts,omitempty" validate:"omitempty,dive"`

	// SourceRow is the sheet row the site was read from, 0 if not from a file
	SourceRow int `json:"source_row,omitempty"`
}

// QuoteRequest prices every site for every duration
type QuoteRequest struct {
	Customer     string        `json:"customer"`
	CarbonOffset bool          `json:"carbon_offset"`
	Durations    []int         `json:"durations" validate:"omitempty,dive,gt=0"`
	Sites        []Site        `json:"sites" validate:"required,min=1,dive"`
	NoMatch      NoMatchPolicy `json:"no_match,omitempty"`

	// Concurrency bounds parallel line pricing; <= 0 uses DefaultConcurrency
	Concurrency int `json:"-"`
}

// WarningKind classifies a batch warning
type WarningKind string

const (
	WarningRegionNotFound WarningKind = "region_not_found"
	WarningNoTariffMatch  WarningKind = "no_tariff_match"
	WarningUpliftCapped   WarningKind = "uplift_capped"

	// WarningSiteSkipped is raised by site grid readers, never by PriceQuote
	WarningSiteSkipped WarningKind = "site_skipped"
)

// Warning is an advisory raised for one site or line
type Warning struct {
	Kind           WarningKind `json:"kind"`
	Site           string      `json:"site"`
	Postcode       string      `json:"postcode"`
	DurationMonths int         `json:"duration_months,omitempty"`
	Message        string      `json:"message"`
}

// QuoteLine is one priced (site, duration) pair
type QuoteLine struct {
	Site                 string                `json:"site"`
	Postcode             string                `json:"postcode"`
	AnnualConsumptionKWh decimal.Decimal       `json:"annual_consumption_kwh"`
	DurationMonths       int                   `json:"duration_months"`
	Result               types.QuoteLineResult `json:"result"`
}

// DurationTotal sums the lines of one duration
type DurationTotal struct {
	DurationMonths  int             `json:"duration_months"`
	Lines           int             `json:"lines"`
	BaseAnnualCost  decimal.Decimal `json:"base_annual_cost"`
	TotalAnnualCost decimal.Decimal `json:"total_annual_cost"`
	Margin          decimal.Decimal `json:"margin"`
}

// QuoteSheet is the priced batch
type QuoteSheet struct {
	Customer     string          `json:"customer"`
	CarbonOffset bool            `json:"carbon_offset"`
	SnapshotID   string          `json:"snapshot_id,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Durations    []int           `json:"durations"`
	Lines        []QuoteLine     `json:"lines"`
	Warnings     []Warning       `json:"warnings,omitempty"`
	Totals       []DurationTotal `json:"totals"`
}

// LinesFor returns the sheet lines of one duration in site order
func (s *QuoteSheet) LinesFor(duration int) []QuoteLine {
	var out []QuoteLine
	for _, l := range s.Lines {
		if l.DurationMonths == duration {
			out = append(out, l)
		}
	}
	return out
}

// Line returns the line for a site and duration
func (s *QuoteSheet) Line(site string, duration int) (QuoteLine, bool) {
	for _, l := range s.Lines {
		if l.Site == site && l.DurationMonths == duration {
			return l, true
		}
	}
	return QuoteLine{}, false
}

// lineSlot is the outcome of one (site, duration) job
type lineSlot struct {
	line     QuoteLine
	warnings []Warning
	drop     bool
}

// PriceQuote prices every (site, duration) line of the request. Lines are
// independent and priced concurrently; the sheet keeps site-major input
// order regardless. A site whose postcode has no region is left out with a
// warning. Lines without a tariff match follow req.NoMatch.
func (p *Pricer) PriceQuote(ctx context.Context, req QuoteRequest) (*QuoteSheet, error) {
	policy, err := ParseNoMatchPolicy(string(req.NoMatch))
	if err != nil {
		return nil, err
	}
	if err := validation.Default().Struct(req); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "invalid quote request", err).
			WithContext("fields", validation.FieldErrors(err))
	}

	durations := uniqueDurations(req.Durations)
	if len(durations) == 0 {
		durations = DefaultDurations
	}
	limit := req.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	// Regions resolve once per site; an unknown postcode affects every duration.
	siteRegions := make([]string, len(req.Sites))
	resolved := make([]bool, len(req.Sites))
	var warnings []Warning
	for i, site := range req.Sites {
		code, ok := p.regions.Lookup(site.Postcode)
		if !ok {
			warnings = append(warnings, Warning{
				Kind:     WarningRegionNotFound,
				Site:     site.Name,
				Postcode: site.Postcode,
				Message:  fmt.Sprintf("no region found for postcode %q", site.Postcode),
			})
			continue
		}
		siteRegions[i] = code
		resolved[i] = true
	}

	slots := make([]lineSlot, len(req.Sites)*len(durations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range req.Sites {
		if !resolved[i] {
			for j := range durations {
				slots[i*len(durations)+j].drop = true
			}
			continue
		}
		for j, duration := range durations {
			i, j, duration := i, j, duration
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				slot, err := p.priceSlot(req.Sites[i], siteRegions[i], duration, req.CarbonOffset, policy)
				if err != nil {
					return err
				}
				slots[i*len(durations)+j] = slot
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sheet := &QuoteSheet{
		Customer:     req.Customer,
		CarbonOffset: req.CarbonOffset,
		GeneratedAt:  time.Now().UTC(),
		Durations:    append([]int(nil), durations...),
		Lines:        make([]QuoteLine, 0, len(slots)),
		Warnings:     warnings,
	}
	for _, slot := range slots {
		sheet.Warnings = append(sheet.Warnings, slot.warnings...)
		if !slot.drop {
			sheet.Lines = append(sheet.Lines, slot.line)
		}
	}
	sheet.Totals = totals(durations, sheet.Lines)

	return sheet, nil
}

func (p *Pricer) priceSlot(site Site, code string, duration int, carbon bool, policy NoMatchPolicy) (lineSlot, error) {
	uplift := site.Uplifts[duration]
	input := types.QuoteLineInput{
		Postcode:               site.Postcode,
		AnnualConsumptionKWh:   site.AnnualConsumptionKWh,
		ContractDurationMonths: duration,
		CarbonOffsetRequired:   carbon,
		StandingChargeUplift:   uplift.StandingCharge,
		UnitRateUplift:         uplift.UnitRate,
	}
	if err := validateInput(input); err != nil {
		return lineSlot{}, err
	}

	res := p.priceResolved(code, input)
	slot := lineSlot{line: QuoteLine{
		Site:                 site.Name,
		Postcode:             region.Normalize(site.Postcode),
		AnnualConsumptionKWh: site.AnnualConsumptionKWh,
		DurationMonths:       duration,
		Result:               res,
	}}

	if res.UpliftWasCapped {
		slot.warnings = append(slot.warnings, Warning{
			Kind:           WarningUpliftCapped,
			Site:           site.Name,
			Postcode:       site.Postcode,
			DurationMonths: duration,
			Message: fmt.Sprintf("uplift capped to %s p/day and %s p/kWh",
				p.caps.MaxStandingChargeUplift.StringFixed(types.MoneyPlaces),
				p.caps.MaxUnitRateUplift.StringFixed(types.RatePlaces)),
		})
	}

	if !res.Matched {
		if policy == NoMatchAbort {
			return lineSlot{}, errors.NoTariffMatch(code, duration).
				WithContext("site", site.Name).
				WithContext("annual_consumption_kwh", site.AnnualConsumptionKWh.String())
		}
		slot.warnings = append(slot.warnings, Warning{
			Kind:           WarningNoTariffMatch,
			Site:           site.Name,
			Postcode:       site.Postcode,
			DurationMonths: duration,
			Message: fmt.Sprintf("no %dm tariff in region %s for %s kWh; line priced at zero",
				duration, code, site.AnnualConsumptionKWh.String()),
		})
		slot.drop = policy == NoMatchSkip
	}

	return slot, nil
}

func totals(durations []int, lines []QuoteLine) []DurationTotal {
	out := make([]DurationTotal, len(durations))
	pos := make(map[int]int, len(durations))
	for i, d := range durations {
		out[i] = DurationTotal{DurationMonths: d, BaseAnnualCost: decimal.Zero, TotalAnnualCost: decimal.Zero, Margin: decimal.Zero}
		pos[d] = i
	}
	for _, l := range lines {
		t := &out[pos[l.DurationMonths]]
		t.Lines++
		t.BaseAnnualCost = t.BaseAnnualCost.Add(l.Result.BaseAnnualCost)
		t.TotalAnnualCost = t.TotalAnnualCost.Add(l.Result.TotalAnnualCost)
		t.Margin = t.Margin.Add(l.Result.Margin)
	}
	return out
}

func uniqueDurations(in []int) []int {
	seen := make(map[int]bool, len(in))
	var out []int
	for _, d := range in {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}
