package loader

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

// Region table columns
const (
	ColPostcode = "Postcode"
	ColLDZ      = "LDZ"
)

// ReadRegions reads postcode to LDZ rows in file order. Postcodes are
// normalized; rows missing either value are skipped.
func ReadRegions(r io.Reader, format Format) ([]types.RegionLookupEntry, error) {
	s, err := readSheet(r, format)
	if err != nil {
		return nil, err
	}
	if err := s.require(ColPostcode, ColLDZ); err != nil {
		return nil, err
	}

	entries := make([]types.RegionLookupEntry, 0, len(s.rows))
	for _, row := range s.rows {
		pc := region.Normalize(s.cell(row, ColPostcode))
		code := strings.ToUpper(s.cell(row, ColLDZ))
		if pc == "" || code == "" {
			continue
		}
		entries = append(entries, types.RegionLookupEntry{PostcodePrefix: pc, RegionCode: code})
	}
	return entries, nil
}

// LoadRegionTable reads a region table file into a lookup table
func LoadRegionTable(path string) (*region.Table, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "failed to open region table %s", path)
	}
	defer f.Close()

	entries, err := ReadRegions(f, format)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeParsing, err, "region table %s", path)
	}

	table := region.NewTable(entries)
	logging.Named("loader").Info("loaded region table",
		zap.String("path", path),
		zap.Int("entries", table.Len()),
	)
	return table, nil
}
