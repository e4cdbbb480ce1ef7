// Package api - API types for quote pricing
// These types define the contract of the HTTP endpoints. Pricing inputs
// reuse the core types so the wire format and the engine never drift.
package api

import (
	"time"

	"energy-quote/adapters/storage"
	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
	"energy-quote/core/types"
)

// ErrorDetail is one error in an error response
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
	Rows    []string `json:"rows,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Status    string        `json:"status"`
	Errors    []ErrorDetail `json:"errors"`
}

// RegionResponse is the result of GET /regions/{postcode}
type RegionResponse struct {
	Postcode   string `json:"postcode"`
	Normalized string `json:"normalized"`
	RegionCode string `json:"region_code"`
	SnapshotID string `json:"snapshot_id"`
}

// QuoteLineResponse is the result of POST /quote/line
type QuoteLineResponse struct {
	RequestID  string                `json:"request_id,omitempty"`
	SnapshotID string                `json:"snapshot_id"`
	Result     types.QuoteLineResult `json:"result"`
}

// MultiRateLineResponse is the result of POST /quote/line/multirate
type MultiRateLineResponse struct {
	RequestID  string                    `json:"request_id,omitempty"`
	SnapshotID string                    `json:"snapshot_id"`
	Result     types.MultiRateLineResult `json:"result"`
}

// QuoteResponse is the JSON result of POST /quote
type QuoteResponse struct {
	RequestID string              `json:"request_id,omitempty"`
	QuoteID   string              `json:"quote_id,omitempty"`
	Quote     *pricing.QuoteSheet `json:"quote"`
}

// PriceBookRequest is the body of POST /pricebook. A missing config uses
// the default bands; missing params use the default parameters.
type PriceBookRequest struct {
	Config *pricebook.Config `json:"config,omitempty"`
	Params *pricebook.Params `json:"params,omitempty"`
}

// SnapshotResponse describes the active rate snapshot
type SnapshotResponse struct {
	Snapshot pricing.SnapshotInfo `json:"snapshot"`

	// PreviousID is set after an upload replaced a snapshot
	PreviousID string `json:"previous_id,omitempty"`
}

// QuoteListResponse is the result of GET /quotes
type QuoteListResponse struct {
	Quotes []*storage.StoredQuote `json:"quotes"`
	Count  int                    `json:"count"`
}
