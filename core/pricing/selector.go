// Package pricing prices quote lines against an immutable tariff table.
// Tariff selection, uplift capping and the annual cost arithmetic are pure;
// the only shared state is the Store holding the current rate Snapshot.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/validation"
)

// tariffKey is the exact-match part of the selection filter
type tariffKey struct {
	region   string
	duration int
	carbon   bool
}

// TariffTable is an immutable supplier rate table.
// Rows keep their file order; selection ties resolve to the earliest row.
type TariffTable struct {
	rows  []types.TariffRow
	index map[tariffKey][]int
}

// RowError reports a tariff row rejected at construction
type RowError struct {
	// Position is the zero-based index of the row in the input slice
	Position int

	// SourceRow is the sheet row, when known
	SourceRow int

	// Problems lists the failed rules as "field: rule"
	Problems []string
}

// Error implements the error interface
func (e RowError) Error() string {
	row := e.SourceRow
	if row == 0 {
		row = e.Position + 1
	}
	return fmt.Sprintf("row %d: %s", row, strings.Join(e.Problems, ", "))
}

// NewTariffTable validates rows and builds the selection index.
// Any invalid row fails the whole table with a PARSING_ERROR listing every
// offending row; rates are never silently dropped.
func NewTariffTable(rows []types.TariffRow) (*TariffTable, error) {
	t := &TariffTable{
		rows:  make([]types.TariffRow, 0, len(rows)),
		index: make(map[tariffKey][]int),
	}

	var rowErrs []RowError
	v := validation.Default()

	for i, r := range rows {
		r.RegionCode = strings.ToUpper(strings.TrimSpace(r.RegionCode))

		var problems []string
		if err := v.Struct(r); err != nil {
			problems = append(problems, validation.FieldErrors(err)...)
		}
		if r.MinAnnualConsumption.GreaterThan(r.MaxAnnualConsumption) {
			problems = append(problems, "min_annual_consumption: lte=max_annual_consumption")
		}
		if len(problems) > 0 {
			rowErrs = append(rowErrs, RowError{Position: i, SourceRow: r.SourceRow, Problems: problems})
			continue
		}

		pos := len(t.rows)
		t.rows = append(t.rows, r)
		key := tariffKey{region: r.RegionCode, duration: r.ContractDurationMonths, carbon: r.CarbonOffset}
		t.index[key] = append(t.index[key], pos)
	}

	if len(rowErrs) > 0 {
		msgs := make([]string, len(rowErrs))
		for i, re := range rowErrs {
			msgs[i] = re.Error()
		}
		return nil, errors.Newf(errors.TypeParsing, "%d invalid tariff rows", len(rowErrs)).
			WithContext("rows", msgs)
	}

	return t, nil
}

// MustTariffTable is NewTariffTable for tables built in code. It panics on
// invalid rows.
func MustTariffTable(rows []types.TariffRow) *TariffTable {
	t, err := NewTariffTable(rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows
func (t *TariffTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns a copy of the rows in table order
func (t *TariffTable) Rows() []types.TariffRow {
	if t == nil {
		return nil
	}
	out := make([]types.TariffRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Regions returns the distinct region codes in first-seen order
func (t *TariffTable) Regions() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rows {
		if !seen[r.RegionCode] {
			seen[r.RegionCode] = true
			out = append(out, r.RegionCode)
		}
	}
	return out
}

// Durations returns the distinct contract durations in first-seen order
func (t *TariffTable) Durations() []int {
	if t == nil {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, r := range t.rows {
		if !seen[r.ContractDurationMonths] {
			seen[r.ContractDurationMonths] = true
			out = append(out, r.ContractDurationMonths)
		}
	}
	return out
}

// Select returns the cheapest row for the region, duration and carbon flag
// whose inclusive band contains consumption. Ties on unit rate go to the
// earliest row.
func (t *TariffTable) Select(region string, consumption decimal.Decimal, duration int, carbon bool) (types.TariffRow, bool) {
	if strings.TrimSpace(region) == "" {
		return types.TariffRow{}, false
	}
	return t.selectBy(region, duration, carbon,
		func(r types.TariffRow) bool { return r.InBand(consumption) },
		func(r types.TariffRow) decimal.Decimal { return r.UnitRate },
	)
}

// SelectOverlapping returns the cheapest row whose band intersects
// [min, max]. rank orders candidates; nil ranks by UnitRate. An empty
// region matches rows of every region.
func (t *TariffTable) SelectOverlapping(region string, min, max decimal.Decimal, duration int, carbon bool, rank func(types.TariffRow) decimal.Decimal) (types.TariffRow, bool) {
	if rank == nil {
		rank = func(r types.TariffRow) decimal.Decimal { return r.UnitRate }
	}
	return t.selectBy(region, duration, carbon,
		func(r types.TariffRow) bool { return r.Overlaps(min, max) },
		rank,
	)
}

// SelectRanked is Select with a caller-supplied rank
func (t *TariffTable) SelectRanked(region string, consumption decimal.Decimal, duration int, carbon bool, rank func(types.TariffRow) decimal.Decimal) (types.TariffRow, bool) {
	if strings.TrimSpace(region) == "" {
		return types.TariffRow{}, false
	}
	return t.selectBy(region, duration, carbon,
		func(r types.TariffRow) bool { return r.InBand(consumption) },
		rank,
	)
}

func (t *TariffTable) selectBy(region string, duration int, carbon bool, match func(types.TariffRow) bool, rank func(types.TariffRow) decimal.Decimal) (types.TariffRow, bool) {
	if t == nil {
		return types.TariffRow{}, false
	}

	region = strings.ToUpper(strings.TrimSpace(region))
	candidates := t.index[tariffKey{region: region, duration: duration, carbon: carbon}]
	if region == "" {
		candidates = t.allPositions()
	}

	var (
		best     types.TariffRow
		bestRank decimal.Decimal
		found    bool
	)
	for _, pos := range candidates {
		r := t.rows[pos]
		if r.ContractDurationMonths != duration || r.CarbonOffset != carbon || !match(r) {
			continue
		}
		score := rank(r)
		// strict less-than keeps the earliest row on ties
		if !found || score.LessThan(bestRank) {
			best, bestRank, found = r, score, true
		}
	}
	return best, found
}

func (t *TariffTable) allPositions() []int {
	out := make([]int, len(t.rows))
	for i := range out {
		out[i] = i
	}
	return out
}
