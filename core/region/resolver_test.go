package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

func entries(pairs ...string) []types.RegionLookupEntry {
	out := make([]types.RegionLookupEntry, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.RegionLookupEntry{PostcodePrefix: pairs[i], RegionCode: pairs[i+1]})
	}
	return out
}

func TestResolveSinglePrefix(t *testing.T) {
	table := NewTable(entries("SW1A", "LN"))

	code, err := Resolve("SW1A 1AA", table)
	require.NoError(t, err)
	assert.Equal(t, "LN", code)
}

func TestResolveNotFound(t *testing.T) {
	table := NewTable(entries("SW1A", "LN", "AB10 1AA", "SC"))

	_, err := Resolve("ZZ9 9ZZ", table)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeRegionNotFound))
}

func TestResolveLongestPrefixWins(t *testing.T) {
	// "NE1" would match the first entry at length 3, but the second entry
	// matches at length 6 and must win.
	table := NewTable(entries(
		"NE12 7AA", "NO",
		"NE1 4ST", "NE",
	))

	code, err := Resolve("ne1 4st", table)
	require.NoError(t, err)
	assert.Equal(t, "NE", code)
}

func TestResolveTieBreaksOnTableOrder(t *testing.T) {
	table := NewTable(entries(
		"LS1 1AA", "NE",
		"LS1 1AB", "NW",
	))

	for i := 0; i < 5; i++ {
		code, err := Resolve("LS1 1ZZ", table)
		require.NoError(t, err)
		assert.Equal(t, "NE", code, "first entry in table order must win on every call")
	}
}

func TestResolveNormalization(t *testing.T) {
	table := NewTable(entries(" g2 1aa ", "SC"))

	tests := []struct {
		name     string
		postcode string
	}{
		{"lower case", "g2 1aa"},
		{"no space", "G21AA"},
		{"extra whitespace", "  G2\t1AA  "},
		{"outward only", "G2 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Resolve(tt.postcode, table)
			require.NoError(t, err)
			assert.Equal(t, "SC", code)
		})
	}
}

func TestResolveShortPostcodes(t *testing.T) {
	table := NewTable(entries("B1 1AA", "WM"))

	tests := []struct {
		name     string
		postcode string
		found    bool
	}{
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"one character", "B", true},
		{"two characters", "B1", true},
		{"three characters", "B11", true},
		{"short and unknown", "E1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := table.Lookup(tt.postcode)
			assert.Equal(t, tt.found, ok)
		})
	}
}

func TestLookupMatchesLinearScan(t *testing.T) {
	raw := entries(
		"AB101AA", "SC",
		"AB1", "SO",
		"AB10", "NO",
		"CF101", "WS",
		"CF1", "WN",
		"EC1A1BB", "NT",
	)
	table := NewTable(raw)

	postcodes := []string{"AB10 1AA", "AB1 2CD", "AB10 9XX", "CF10 1AB", "CF1 1ZZ", "EC1A 1BB", "EC1 1AA", "QQ1 1QQ", "AB", "C", "E1"}
	for _, pc := range postcodes {
		got, gotOK := table.Lookup(pc)
		want, wantOK := linearResolve(pc, table.Entries())
		assert.Equal(t, wantOK, gotOK, pc)
		assert.Equal(t, want, got, pc)
	}
}

func TestNewTableDropsEntriesWithoutRegion(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		found bool
	}{
		{"empty code", "", false},
		{"blank code", "  ", false},
		{"trimmed code", " LN ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewTable(entries("SW1A", tt.code))

			code, err := Resolve("SW1A 1AA", table)
			if !tt.found {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.TypeRegionNotFound))
				assert.Equal(t, 0, table.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "LN", code)
		})
	}
}

func TestNewTableSkipsCodelessEntryForLaterMatch(t *testing.T) {
	table := NewTable(entries("SW1A 1AA", "", "SW1A 2BB", "LN"))

	code, ok := table.Lookup("SW1A 1AA")
	assert.True(t, ok)
	assert.Equal(t, "LN", code)
}

func TestNilTable(t *testing.T) {
	var table *Table
	_, ok := table.Lookup("SW1A 1AA")
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())
}

// linearResolve is the direct table-order scan the prefix index must agree with.
func linearResolve(postcode string, table []types.RegionLookupEntry) (string, bool) {
	pc := Normalize(postcode)
	if pc == "" {
		return "", false
	}
	for _, length := range CandidateLengths {
		candidate := pc
		if len(candidate) > length {
			candidate = candidate[:length]
		}
		for _, e := range table {
			if len(e.PostcodePrefix) >= len(candidate) && e.PostcodePrefix[:len(candidate)] == candidate {
				return e.RegionCode, true
			}
		}
	}
	return "", false
}
