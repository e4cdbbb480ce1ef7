package loader

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"energy-quote/core/pricing"
	"energy-quote/core/region"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

// Site grid columns
const (
	ColSiteName  = "Site Name"
	ColPostCode  = "Post Code"
	ColAnnualKWh = "Annual KWH"
)

// StandingUpliftColumn names the standing charge uplift column of a duration
func StandingUpliftColumn(months int) string {
	return fmt.Sprintf("Standing Charge Uplift (%dm)", months)
}

// UnitUpliftColumn names the unit rate uplift column of a duration
func UnitUpliftColumn(months int) string {
	return fmt.Sprintf("Uplift Unit Rate (%dm)", months)
}

// SkippedSite records a grid row left out of the quote
type SkippedSite struct {
	Row    int    `json:"row"`
	Site   string `json:"site"`
	Reason string `json:"reason"`
}

// Warning converts the skip into a quote sheet warning
func (s SkippedSite) Warning() pricing.Warning {
	return pricing.Warning{
		Kind:    pricing.WarningSiteSkipped,
		Site:    s.Site,
		Message: fmt.Sprintf("row %d skipped: %s", s.Row, s.Reason),
	}
}

// ReadSites reads a customer site grid. Rows without a postcode or with no
// positive consumption are skipped, not rejected. Uplift columns are read
// for each of durations when present.
func ReadSites(r io.Reader, format Format, durations []int) ([]pricing.Site, []SkippedSite, error) {
	s, err := readSheet(r, format)
	if err != nil {
		return nil, nil, err
	}
	if err := s.require(ColPostCode, ColAnnualKWh); err != nil {
		return nil, nil, err
	}

	var (
		sites   []pricing.Site
		skipped []SkippedSite
	)
	for i, raw := range s.rows {
		if blank(raw) {
			continue
		}
		name := s.cell(raw, ColSiteName)
		if name == "" {
			name = fmt.Sprintf("Site %d", i+1)
		}

		pc := s.cell(raw, ColPostCode)
		if region.Normalize(pc) == "" {
			skipped = append(skipped, SkippedSite{Row: sheetRow(i), Site: name, Reason: "no postcode"})
			continue
		}
		kwh, err := parseDecimal(s.cell(raw, ColAnnualKWh))
		if err != nil || !kwh.IsPositive() {
			skipped = append(skipped, SkippedSite{Row: sheetRow(i), Site: name, Reason: "no annual consumption"})
			continue
		}

		site := pricing.Site{
			Name:                 name,
			Postcode:             pc,
			AnnualConsumptionKWh: kwh,
			SourceRow:            sheetRow(i),
		}
		for _, months := range durations {
			sc, err := parseDecimal(s.cell(raw, StandingUpliftColumn(months)))
			if err != nil {
				return nil, nil, errors.Newf(errors.TypeParsing, "row %d: %s: %v", sheetRow(i), StandingUpliftColumn(months), err)
			}
			ur, err := parseDecimal(s.cell(raw, UnitUpliftColumn(months)))
			if err != nil {
				return nil, nil, errors.Newf(errors.TypeParsing, "row %d: %s: %v", sheetRow(i), UnitUpliftColumn(months), err)
			}
			if sc.IsZero() && ur.IsZero() {
				continue
			}
			if site.Uplifts == nil {
				site.Uplifts = make(map[int]pricing.DurationUplift, len(durations))
			}
			site.Uplifts[months] = pricing.DurationUplift{StandingCharge: sc, UnitRate: ur}
		}

		sites = append(sites, site)
	}
	return sites, skipped, nil
}

// LoadSites reads a site grid from disk
func LoadSites(path string, durations []int) ([]pricing.Site, []SkippedSite, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.TypeInput, err, "failed to open site grid %s", path)
	}
	defer f.Close()

	sites, skipped, err := ReadSites(f, format, durations)
	if err != nil {
		return nil, nil, err
	}

	log := logging.Named("loader")
	for _, sk := range skipped {
		log.Warn("skipped site row", zap.Int("row", sk.Row), zap.String("site", sk.Site), zap.String("reason", sk.Reason))
	}
	log.Info("loaded site grid", zap.String("path", path), zap.Int("sites", len(sites)), zap.Int("skipped", len(skipped)))
	return sites, skipped, nil
}
