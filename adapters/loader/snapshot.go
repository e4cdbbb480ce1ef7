package loader

import (
	"io"

	"go.uber.org/zap"

	"energy-quote/core/pricing"
	"energy-quote/internal/logging"
)

// LoadSnapshot reads both reference tables into a new snapshot
func LoadSnapshot(regionPath, tariffPath string) (*pricing.Snapshot, error) {
	regions, err := LoadRegionTable(regionPath)
	if err != nil {
		return nil, err
	}
	tariffs, err := LoadTariffTable(tariffPath)
	if err != nil {
		return nil, err
	}

	snap := pricing.NewSnapshot(regions, tariffs, regionPath+"+"+tariffPath)
	logging.Named("loader").Info("rate snapshot ready",
		logging.Snapshot(snap.ID),
		zap.String("content_hash", snap.ContentHash),
	)
	return snap, nil
}

// ReplaceTariffs reads an uploaded flat file and derives a snapshot from
// base that shares its region table
func ReplaceTariffs(base *pricing.Snapshot, r io.Reader, filename string) (*pricing.Snapshot, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}
	tariffs, err := ReadTariffTable(r, format)
	if err != nil {
		return nil, err
	}
	return base.WithTariffs(tariffs, "upload:"+filename), nil
}
