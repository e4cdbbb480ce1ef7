package pricing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"energy-quote/core/region"
	"energy-quote/core/types"
)

// Snapshot is an immutable pair of reference tables.
// A snapshot is never modified after NewSnapshot returns; reloads build a
// new one and swap it into a Store.
type Snapshot struct {
	// ID uniquely identifies this load
	ID string

	// LoadedAt is when the snapshot was built
	LoadedAt time.Time

	// ContentHash is the SHA-256 of the normalized tables. Two loads of the
	// same data share a hash but not an ID.
	ContentHash string

	// Source describes where the tables came from (file names, upload)
	Source string

	Regions *region.Table
	Tariffs *TariffTable
}

// SnapshotInfo is the serializable summary of a Snapshot
type SnapshotInfo struct {
	ID          string    `json:"id"`
	LoadedAt    time.Time `json:"loaded_at"`
	ContentHash string    `json:"content_hash"`
	Source      string    `json:"source,omitempty"`
	RegionRows  int       `json:"region_rows"`
	TariffRows  int       `json:"tariff_rows"`
	Regions     []string  `json:"regions"`
	Durations   []int     `json:"durations"`
}

// NewSnapshot wraps validated tables in a new identified snapshot
func NewSnapshot(regions *region.Table, tariffs *TariffTable, source string) *Snapshot {
	return &Snapshot{
		ID:          uuid.New().String(),
		LoadedAt:    time.Now().UTC(),
		ContentHash: contentHash(regions, tariffs),
		Source:      source,
		Regions:     regions,
		Tariffs:     tariffs,
	}
}

// Pricer returns a pricer over this snapshot's tables
func (s *Snapshot) Pricer(caps types.UpliftCaps) *Pricer {
	return NewPricer(s.Regions, s.Tariffs, caps)
}

// PriceQuote prices a batch against this snapshot and stamps the sheet
// with the snapshot ID
func (s *Snapshot) PriceQuote(ctx context.Context, caps types.UpliftCaps, req QuoteRequest) (*QuoteSheet, error) {
	sheet, err := s.Pricer(caps).PriceQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	sheet.SnapshotID = s.ID
	return sheet, nil
}

// Info summarizes the snapshot
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		LoadedAt:    s.LoadedAt,
		ContentHash: s.ContentHash,
		Source:      s.Source,
		RegionRows:  s.Regions.Len(),
		TariffRows:  s.Tariffs.Len(),
		Regions:     s.Tariffs.Regions(),
		Durations:   s.Tariffs.Durations(),
	}
}

// WithTariffs returns a new snapshot sharing the region table
func (s *Snapshot) WithTariffs(tariffs *TariffTable, source string) *Snapshot {
	return NewSnapshot(s.Regions, tariffs, source)
}

func contentHash(regions *region.Table, tariffs *TariffTable) string {
	h := sha256.New()
	for _, e := range regions.Entries() {
		io.WriteString(h, "R|"+e.PostcodePrefix+"|"+e.RegionCode+"\n")
	}
	for _, r := range tariffs.Rows() {
		fmt.Fprintf(h, "T|%s|%d|%s|%s|%s|%s|%s",
			r.RegionCode,
			r.ContractDurationMonths,
			r.MinAnnualConsumption.String(),
			r.MaxAnnualConsumption.String(),
			strconv.FormatBool(r.CarbonOffset),
			r.StandingCharge.String(),
			r.UnitRate.String(),
		)
		if r.Rates != nil {
			fmt.Fprintf(h, "|%s|%s|%s", r.Rates.Day.String(), r.Rates.Night.String(), r.Rates.EveningWeekend.String())
		}
		io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}
