package loader

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"energy-quote/core/pricing"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

// Flat file columns
const (
	ColContractDuration = "Contract_Duration"
	ColMinConsumption   = "Minimum_Annual_Consumption"
	ColMaxConsumption   = "Maximum_Annual_Consumption"
	ColCarbonOffset     = "Carbon_Offset"
	ColGreenEnergy      = "Green_Energy"
	ColStandingCharge   = "Standing_Charge"
	ColUnitRate         = "Unit_Rate"
	ColDayRate          = "Day_Rate"
	ColNightRate        = "Night_Rate"
	ColEveningWeekend   = "Evening_And_Weekend_Rate"
)

// ReadTariffs reads supplier flat-file rows. A file carries either
// Unit_Rate or the Day/Night/Evening-and-Weekend split (or both). Carbon
// flags may come as Carbon_Offset or Green_Energy. Cells that cannot be
// parsed are reported together with their sheet row.
func ReadTariffs(r io.Reader, format Format) ([]types.TariffRow, error) {
	s, err := readSheet(r, format)
	if err != nil {
		return nil, err
	}
	if err := s.require(ColLDZ, ColContractDuration, ColMinConsumption, ColMaxConsumption, ColStandingCharge); err != nil {
		return nil, err
	}

	carbonCol, hasCarbon := s.firstOf(ColCarbonOffset, ColGreenEnergy)
	if !hasCarbon {
		return nil, s.require(ColCarbonOffset)
	}
	multi := s.has(ColDayRate) && s.has(ColNightRate) && s.has(ColEveningWeekend)
	if !multi && !s.has(ColUnitRate) {
		return nil, s.require(ColUnitRate)
	}

	var (
		rows     []types.TariffRow
		problems []string
	)
	for i, raw := range s.rows {
		if blank(raw) {
			continue
		}
		row, err := parseTariffRow(s, raw, carbonCol, multi)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", sheetRow(i), err))
			continue
		}
		row.SourceRow = sheetRow(i)
		rows = append(rows, row)
	}

	if len(problems) > 0 {
		return nil, errors.Newf(errors.TypeParsing, "%d unreadable tariff rows", len(problems)).
			WithContext("rows", problems)
	}
	return rows, nil
}

func parseTariffRow(s *sheet, raw []string, carbonCol string, multi bool) (types.TariffRow, error) {
	var (
		row types.TariffRow
		err error
	)
	row.RegionCode = strings.ToUpper(s.cell(raw, ColLDZ))

	if row.ContractDurationMonths, err = requiredInt(s.cell(raw, ColContractDuration)); err != nil {
		return row, fmt.Errorf("%s: %w", ColContractDuration, err)
	}
	if row.MinAnnualConsumption, err = requiredDecimal(s.cell(raw, ColMinConsumption)); err != nil {
		return row, fmt.Errorf("%s: %w", ColMinConsumption, err)
	}
	if row.MaxAnnualConsumption, err = requiredDecimal(s.cell(raw, ColMaxConsumption)); err != nil {
		return row, fmt.Errorf("%s: %w", ColMaxConsumption, err)
	}
	if row.CarbonOffset, err = parseBool(s.cell(raw, carbonCol)); err != nil {
		return row, fmt.Errorf("%s: %w", carbonCol, err)
	}
	if row.StandingCharge, err = requiredDecimal(s.cell(raw, ColStandingCharge)); err != nil {
		return row, fmt.Errorf("%s: %w", ColStandingCharge, err)
	}

	// A split file may leave Unit_Rate empty; its rows then price off the day rate.
	unitRate := s.cell(raw, ColUnitRate)
	if s.has(ColUnitRate) && (!multi || unitRate != "") {
		if row.UnitRate, err = requiredDecimal(unitRate); err != nil {
			return row, fmt.Errorf("%s: %w", ColUnitRate, err)
		}
	}

	if multi {
		var m types.MultiRate
		if m.Day, err = requiredDecimal(s.cell(raw, ColDayRate)); err != nil {
			return row, fmt.Errorf("%s: %w", ColDayRate, err)
		}
		if m.Night, err = requiredDecimal(s.cell(raw, ColNightRate)); err != nil {
			return row, fmt.Errorf("%s: %w", ColNightRate, err)
		}
		if m.EveningWeekend, err = requiredDecimal(s.cell(raw, ColEveningWeekend)); err != nil {
			return row, fmt.Errorf("%s: %w", ColEveningWeekend, err)
		}
		row.Rates = &m
		if unitRate == "" {
			// single-rate consumers of a split file see the day rate
			row.UnitRate = m.Day
		}
	}

	return row, nil
}

// ReadTariffTable reads and validates a flat file in one step
func ReadTariffTable(r io.Reader, format Format) (*pricing.TariffTable, error) {
	rows, err := ReadTariffs(r, format)
	if err != nil {
		return nil, err
	}
	return pricing.NewTariffTable(rows)
}

// LoadTariffTable reads a flat file from disk
func LoadTariffTable(path string) (*pricing.TariffTable, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to open tariff table %s", path)
	}
	defer f.Close()

	table, err := ReadTariffTable(f, format)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeParsing, err, "tariff table %s", path)
	}

	logging.Named("loader").Info("loaded tariff table",
		zap.String("path", path),
		zap.Int("rows", table.Len()),
		zap.Strings("regions", table.Regions()),
		zap.Ints("durations", table.Durations()),
	)
	return table, nil
}
