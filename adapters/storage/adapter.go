// Package storage archives priced quotes so they can be fetched, listed and
// compared against a requote later.
// Backends: file (one JSON document per quote) and memory.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"energy-quote/core/pricing"
	"energy-quote/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendNone   Backend = "none"
)

// Store is the quote archive interface
type Store interface {
	// Save stores a quote, assigning ID and CreatedAt when unset
	Save(ctx context.Context, quote *StoredQuote) error

	// Get retrieves a quote by ID
	Get(ctx context.Context, id string) (*StoredQuote, error)

	// List lists quotes newest first
	List(ctx context.Context, filter *ListFilter) ([]*StoredQuote, error)

	// Delete removes a quote
	Delete(ctx context.Context, id string) error

	// GetLatest gets the newest quote for a customer
	GetLatest(ctx context.Context, customer string) (*StoredQuote, error)

	// Compare compares the per-duration totals of two quotes
	Compare(ctx context.Context, oldID, newID string) (*CompareResult, error)

	// Close closes the store
	Close() error
}

// StoredQuote is an archived quote sheet
type StoredQuote struct {
	ID         string                  `json:"id"`
	Customer   string                  `json:"customer"`
	SnapshotID string                  `json:"snapshot_id"`
	CreatedAt  time.Time               `json:"created_at"`
	Sites      int                     `json:"sites"`
	Totals     []pricing.DurationTotal `json:"totals"`
	Metadata   map[string]string       `json:"metadata,omitempty"`

	// Sheet is the full priced sheet; List leaves it nil
	Sheet *pricing.QuoteSheet `json:"sheet,omitempty"`
}

// NewStoredQuote wraps a priced sheet for archiving
func NewStoredQuote(sheet *pricing.QuoteSheet) *StoredQuote {
	sites := make(map[string]struct{})
	for _, l := range sheet.Lines {
		sites[l.Site+"\x00"+l.Postcode] = struct{}{}
	}
	return &StoredQuote{
		Customer:   sheet.Customer,
		SnapshotID: sheet.SnapshotID,
		Sites:      len(sites),
		Totals:     sheet.Totals,
		Sheet:      sheet,
	}
}

// summary drops the sheet
func (q *StoredQuote) summary() *StoredQuote {
	out := *q
	out.Sheet = nil
	return &out
}

// ListFilter filters quote listing
type ListFilter struct {
	Customer string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

func (f *ListFilter) match(q *StoredQuote) bool {
	if f == nil {
		return true
	}
	if f.Customer != "" && !strings.EqualFold(f.Customer, q.Customer) {
		return false
	}
	if !f.Since.IsZero() && q.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && q.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

func (f *ListFilter) page(quotes []*StoredQuote) []*StoredQuote {
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].CreatedAt.After(quotes[j].CreatedAt)
	})
	if f == nil {
		return quotes
	}
	if f.Offset > 0 {
		if f.Offset >= len(quotes) {
			return nil
		}
		quotes = quotes[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(quotes) {
		quotes = quotes[:f.Limit]
	}
	return quotes
}

// DurationDelta compares one duration's total between two quotes
type DurationDelta struct {
	DurationMonths int             `json:"duration_months"`
	OldTotal       decimal.Decimal `json:"old_total"`
	NewTotal       decimal.Decimal `json:"new_total"`
	Delta          decimal.Decimal `json:"delta"`
	DeltaPercent   decimal.Decimal `json:"delta_percent"`

	// Present is false when only one quote priced this duration
	Present bool `json:"present"`
}

// CompareResult is a comparison between two quotes
type CompareResult struct {
	OldID         string          `json:"old_id"`
	NewID         string          `json:"new_id"`
	OldSnapshotID string          `json:"old_snapshot_id"`
	NewSnapshotID string          `json:"new_snapshot_id"`
	Durations     []DurationDelta `json:"durations"`
}

// compare lines up the totals of two quotes by duration
func compare(oldQ, newQ *StoredQuote) *CompareResult {
	res := &CompareResult{
		OldID:         oldQ.ID,
		NewID:         newQ.ID,
		OldSnapshotID: oldQ.SnapshotID,
		NewSnapshotID: newQ.SnapshotID,
	}

	oldTotals := make(map[int]decimal.Decimal, len(oldQ.Totals))
	for _, t := range oldQ.Totals {
		oldTotals[t.DurationMonths] = t.TotalAnnualCost
	}
	seen := make(map[int]bool)
	for _, t := range newQ.Totals {
		seen[t.DurationMonths] = true
		oldTotal, ok := oldTotals[t.DurationMonths]
		res.Durations = append(res.Durations, delta(t.DurationMonths, oldTotal, t.TotalAnnualCost, ok))
	}
	for _, t := range oldQ.Totals {
		if !seen[t.DurationMonths] {
			res.Durations = append(res.Durations, delta(t.DurationMonths, t.TotalAnnualCost, decimal.Zero, false))
		}
	}
	return res
}

func delta(months int, oldTotal, newTotal decimal.Decimal, present bool) DurationDelta {
	d := DurationDelta{
		DurationMonths: months,
		OldTotal:       oldTotal,
		NewTotal:       newTotal,
		Delta:          newTotal.Sub(oldTotal),
		Present:        present,
	}
	if oldTotal.IsPositive() {
		d.DeltaPercent = d.Delta.Div(oldTotal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return d
}

func prepare(q *StoredQuote) error {
	if q == nil {
		return errors.Input("nothing to archive")
	}
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	return nil
}

// checkID rejects anything but a UUID so IDs never reach the filesystem raw
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Newf(errors.TypeNotFound, "quote not found: %s", id)
	}
	return nil
}

// FileStore is a file-based storage backend
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a file store
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, errors.Config("failed to create archive directory", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (s *FileStore) Save(ctx context.Context, quote *StoredQuote) error {
	if err := prepare(quote); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customerDir := filepath.Join(s.basePath, customerKey(quote.Customer))
	if err := os.MkdirAll(customerDir, 0755); err != nil {
		return fmt.Errorf("failed to create customer directory: %w", err)
	}

	data, err := json.MarshalIndent(quote, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	path := filepath.Join(customerDir, quote.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write quote: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Get(ctx context.Context, id string) (*StoredQuote, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return readQuote(path)
}

func (s *FileStore) List(ctx context.Context, filter *ListFilter) ([]*StoredQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var quotes []*StoredQuote
	err := filepath.WalkDir(s.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		q, err := readQuote(path)
		if err != nil {
			return nil
		}
		if filter.match(q) {
			quotes = append(quotes, q.summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filter.page(quotes), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.find(id)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (s *FileStore) GetLatest(ctx context.Context, customer string) (*StoredQuote, error) {
	quotes, err := s.List(ctx, &ListFilter{Customer: customer, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, errors.Newf(errors.TypeNotFound, "no quotes for customer: %s", customer)
	}
	return s.Get(ctx, quotes[0].ID)
}

func (s *FileStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldQuote, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newQuote, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldQuote, newQuote), nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) find(id string) (string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to read archive: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(s.basePath, entry.Name(), id+".json")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Newf(errors.TypeNotFound, "quote not found: %s", id)
}

func readQuote(path string) (*StoredQuote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote: %w", err)
	}
	var q StoredQuote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	return &q, nil
}

// customerKey turns a customer name into a directory name
func customerKey(customer string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(customer)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	key := strings.TrimSuffix(b.String(), "-")
	if key == "" {
		return "_unnamed"
	}
	return key
}

// MemoryStore is an in-memory storage backend
type MemoryStore struct {
	quotes map[string]*StoredQuote
	mu     sync.RWMutex
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quotes: make(map[string]*StoredQuote),
	}
}

func (s *MemoryStore) Save(ctx context.Context, quote *StoredQuote) error {
	if err := prepare(quote); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes[quote.ID] = quote
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quote, ok := s.quotes[id]
	if !ok {
		return nil, errors.Newf(errors.TypeNotFound, "quote not found: %s", id)
	}
	return quote, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var quotes []*StoredQuote
	for _, q := range s.quotes {
		if filter.match(q) {
			quotes = append(quotes, q.summary())
		}
	}
	return filter.page(quotes), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[id]; !ok {
		return errors.Newf(errors.TypeNotFound, "quote not found: %s", id)
	}
	delete(s.quotes, id)
	return nil
}

func (s *MemoryStore) GetLatest(ctx context.Context, customer string) (*StoredQuote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *StoredQuote
	for _, q := range s.quotes {
		if !strings.EqualFold(q.Customer, customer) {
			continue
		}
		if latest == nil || q.CreatedAt.After(latest.CreatedAt) {
			latest = q
		}
	}
	if latest == nil {
		return nil, errors.Newf(errors.TypeNotFound, "no quotes for customer: %s", customer)
	}
	return latest, nil
}

func (s *MemoryStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	oldQuote, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newQuote, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	return compare(oldQuote, newQuote), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// StoreFactory creates stores by backend type. BackendNone returns a nil
// Store, which callers treat as archiving disabled.
func StoreFactory(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendFile:
		if path == "" {
			path = filepath.Join(".energy-quote", "quotes")
		}
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendNone, "":
		return nil, nil
	default:
		return nil, errors.Newf(errors.TypeConfig, "unsupported archive backend: %s", backend)
	}
}

// Ensure interfaces are implemented
var _ io.Closer = (*FileStore)(nil)
var _ io.Closer = (*MemoryStore)(nil)
var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
