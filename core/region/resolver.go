// Package region resolves free-text postcodes to pricing regions (LDZ).
// Resolution is longest-prefix: candidate prefixes of 7 down to 3 characters
// are tried in order, and the first table entry (in table order) whose
// reference postcode starts with the candidate wins. A postcode shorter than
// a candidate length is tried whole, so a bare outward code like "E1" still
// resolves.
package region

import (
	"strings"
	"unicode"

	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

// CandidateLengths is the fixed order in which prefixes are tried
var CandidateLengths = []int{7, 6, 5, 4, 3}

// maxCandidate bounds the prefix index; longer entry prefixes never match more
const maxCandidate = 7

// Table is an immutable region reference table.
// It is safe for concurrent use.
type Table struct {
	entries []types.RegionLookupEntry

	// first maps every entry prefix of length 1..7 to the position of the
	// first entry in table order that starts with it
	first map[string]int
}

// NewTable normalizes the entries and builds the prefix index. Entries
// without a prefix or a region code are dropped.
// The caller's slice is copied and never retained.
func NewTable(entries []types.RegionLookupEntry) *Table {
	t := &Table{
		entries: make([]types.RegionLookupEntry, 0, len(entries)),
		first:   make(map[string]int, len(entries)*2),
	}

	for _, e := range entries {
		prefix := Normalize(e.PostcodePrefix)
		code := strings.TrimSpace(e.RegionCode)
		if prefix == "" || code == "" {
			continue
		}
		pos := len(t.entries)
		t.entries = append(t.entries, types.RegionLookupEntry{
			PostcodePrefix: prefix,
			RegionCode:     code,
		})

		limit := len(prefix)
		if limit > maxCandidate {
			limit = maxCandidate
		}
		for n := 1; n <= limit; n++ {
			key := prefix[:n]
			if _, seen := t.first[key]; !seen {
				t.first[key] = pos
			}
		}
	}

	return t
}

// Len returns the number of entries
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the normalized entries in table order
func (t *Table) Entries() []types.RegionLookupEntry {
	if t == nil {
		return nil
	}
	out := make([]types.RegionLookupEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup returns the region for postcode and whether one was found
func (t *Table) Lookup(postcode string) (string, bool) {
	if t == nil {
		return "", false
	}

	// an empty candidate would match every entry
	pc := Normalize(postcode)
	if pc == "" {
		return "", false
	}

	for _, length := range CandidateLengths {
		candidate := pc
		if len(candidate) > length {
			candidate = candidate[:length]
		}
		if pos, ok := t.first[candidate]; ok {
			return t.entries[pos].RegionCode, true
		}
	}
	return "", false
}

// Resolve returns the region code for postcode, or a REGION_NOT_FOUND error
func Resolve(postcode string, table *Table) (string, error) {
	code, ok := table.Lookup(postcode)
	if !ok {
		return "", errors.RegionNotFound(postcode)
	}
	return code, nil
}

// Normalize strips all whitespace and uppercases a postcode
func Normalize(postcode string) string {
	var b strings.Builder
	b.Grow(len(postcode))
	for _, r := range postcode {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
