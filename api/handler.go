// Package api - HTTP handlers for quote pricing
// Handlers decode requests, take the current snapshot once and delegate to
// the pricing engine. They contain no pricing logic.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"energy-quote/adapters/loader"
	"energy-quote/adapters/storage"
	"energy-quote/core/output"
	"energy-quote/core/pricebook"
	"energy-quote/core/pricing"
	"energy-quote/core/region"
	"energy-quote/core/types"
	"energy-quote/internal/errors"
	"energy-quote/internal/logging"
)

// Settings are the request-independent pricing options
type Settings struct {
	Caps        types.UpliftCaps
	Durations   []int
	NoMatch     pricing.NoMatchPolicy
	Concurrency int
	Currency    types.Currency
	CompanyName string

	// SalesView adds base rates and margin to rendered workbooks
	SalesView bool

	// MaxUploadBytes bounds multipart uploads
	MaxUploadBytes int64
}

// Handler handles quote requests
type Handler struct {
	store      *pricing.Store
	archive    storage.Store
	settings   Settings
	formatters output.FormatterRegistry
	log        *zap.Logger
}

// NewHandler creates a handler. archive may be nil to disable archiving.
func NewHandler(store *pricing.Store, archive storage.Store, settings Settings) *Handler {
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = 32 << 20
	}
	if settings.Currency == "" {
		settings.Currency = types.CurrencyGBP
	}
	return &Handler{
		store:      store,
		archive:    archive,
		settings:   settings,
		formatters: output.Default(),
		log:        logging.Named("api"),
	}
}

func (h *Handler) snapshot() (*pricing.Snapshot, error) {
	snap := h.store.Current()
	if snap == nil {
		return nil, errors.New(errors.TypeConfig, "no rate snapshot loaded")
	}
	return snap, nil
}

// HandleRegion handles GET /regions/{postcode}
func (h *Handler) HandleRegion(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	postcode := chi.URLParam(r, "postcode")
	code, err := region.Resolve(postcode, snap.Regions)
	if err != nil {
		h.writeError(w, r, err, http.StatusNotFound)
		return
	}

	h.writeJSON(w, RegionResponse{
		Postcode:   postcode,
		Normalized: region.Normalize(postcode),
		RegionCode: code,
		SnapshotID: snap.ID,
	}, http.StatusOK)
}

// HandleQuoteLine handles POST /quote/line
func (h *Handler) HandleQuoteLine(w http.ResponseWriter, r *http.Request) {
	var in types.QuoteLineInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := snap.Pricer(h.settings.Caps).PriceLine(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Debug("priced line",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		logging.Postcode(in.Postcode),
		logging.Region(res.RegionCode),
		zap.Bool("matched", res.Matched),
	)

	h.writeJSON(w, QuoteLineResponse{
		RequestID:  middleware.GetReqID(r.Context()),
		SnapshotID: snap.ID,
		Result:     res,
	}, http.StatusOK)
}

// HandleMultiRateLine handles POST /quote/line/multirate
func (h *Handler) HandleMultiRateLine(w http.ResponseWriter, r *http.Request) {
	var in types.MultiRateLineInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Profile == (types.ProfileSplit{}) {
		in.Profile = types.DefaultProfileSplit()
	}

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := snap.Pricer(h.settings.Caps).PriceMultiRateLine(in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeJSON(w, MultiRateLineResponse{
		RequestID:  middleware.GetReqID(r.Context()),
		SnapshotID: snap.ID,
		Result:     res,
	}, http.StatusOK)
}

// HandleQuote handles POST /quote. The body is a JSON QuoteRequest or a
// multipart form with a "sites" grid; ?format= picks the rendering.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	format, err := output.ParseFormat(queryOr(r, "format", string(output.FormatJSON)))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var (
		req     pricing.QuoteRequest
		skipped []loader.SkippedSite
	)
	if isMultipart(r) {
		req, skipped, err = h.readSiteUpload(w, r)
	} else {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.applyDefaults(&req)

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sheet, err := snap.PriceQuote(r.Context(), h.settings.Caps, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, sk := range skipped {
		sheet.Warnings = append(sheet.Warnings, sk.Warning())
	}

	quoteID := h.archiveQuote(r, sheet)
	h.log.Info("priced quote",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("customer", sheet.Customer),
		logging.Snapshot(snap.ID),
		zap.Int("lines", len(sheet.Lines)),
		zap.Int("warnings", len(sheet.Warnings)),
	)

	if format == output.FormatJSON {
		h.writeJSON(w, QuoteResponse{
			RequestID: middleware.GetReqID(r.Context()),
			QuoteID:   quoteID,
			Quote:     sheet,
		}, http.StatusOK)
		return
	}
	if quoteID != "" {
		w.Header().Set("X-Quote-ID", quoteID)
	}
	h.render(w, r, format, h.quoteDocument(sheet), "quote")
}

// HandlePriceBook handles POST /pricebook
func (h *Handler) HandlePriceBook(w http.ResponseWriter, r *http.Request) {
	format, err := output.ParseFormat(queryOr(r, "format", string(output.FormatJSON)))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req PriceBookRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	cfg := pricebook.DefaultConfig("")
	if req.Config != nil {
		cfg = *req.Config
	}
	params := pricebook.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	book, err := pricebook.Generate(snap.Tariffs, cfg, params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc := output.BookDocument(book)
	doc.Currency = h.settings.Currency
	doc.CompanyName = h.settings.CompanyName
	h.render(w, r, format, doc, "pricebook")
}

// HandleTariffUpload handles POST /tariffs. The uploaded flat file replaces
// the tariff table; the region table is kept.
func (h *Handler) HandleTariffUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, errors.Wrap(errors.TypeInput, "multipart field \"file\" is required", err))
		return
	}
	defer file.Close()

	base, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	next, err := loader.ReplaceTariffs(base, file, header.Filename)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prev := h.store.Swap(next)

	h.log.Info("tariff table replaced",
		zap.String("file", header.Filename),
		logging.Snapshot(next.ID),
		zap.String("previous", prev.ID),
		zap.Int("rows", next.Tariffs.Len()),
	)
	h.writeJSON(w, SnapshotResponse{Snapshot: next.Info(), PreviousID: prev.ID}, http.StatusOK)
}

// HandleSnapshot handles GET /snapshot
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, SnapshotResponse{Snapshot: snap.Info()}, http.StatusOK)
}

// HandleListQuotes handles GET /quotes
func (h *Handler) HandleListQuotes(w http.ResponseWriter, r *http.Request) {
	archive, ok := h.requireArchive(w, r)
	if !ok {
		return
	}

	filter := &storage.ListFilter{
		Customer: r.URL.Query().Get("customer"),
		Limit:    cast.ToInt(queryOr(r, "limit", "50")),
		Offset:   cast.ToInt(r.URL.Query().Get("offset")),
	}
	quotes, err := archive.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if quotes == nil {
		quotes = []*storage.StoredQuote{}
	}
	h.writeJSON(w, QuoteListResponse{Quotes: quotes, Count: len(quotes)}, http.StatusOK)
}

// HandleGetQuote handles GET /quotes/{id}; ?format= re-renders the sheet
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	archive, ok := h.requireArchive(w, r)
	if !ok {
		return
	}

	q, err := archive.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || q.Sheet == nil {
		h.writeJSON(w, q, http.StatusOK)
		return
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, f, h.quoteDocument(q.Sheet), "quote-"+q.ID)
}

// HandleDeleteQuote handles DELETE /quotes/{id}
func (h *Handler) HandleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	archive, ok := h.requireArchive(w, r)
	if !ok {
		return
	}
	if err := archive.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCompareQuotes handles GET /quotes/{id}/compare/{other}
func (h *Handler) HandleCompareQuotes(w http.ResponseWriter, r *http.Request) {
	archive, ok := h.requireArchive(w, r)
	if !ok {
		return
	}
	res, err := archive.Compare(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "other"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, res, http.StatusOK)
}

func (h *Handler) requireArchive(w http.ResponseWriter, r *http.Request) (storage.Store, bool) {
	if h.archive == nil {
		h.writeError(w, r, errors.New(errors.TypeNotFound, "quote archive is disabled"), http.StatusServiceUnavailable)
		return nil, false
	}
	return h.archive, true
}

// archiveQuote stores the sheet and returns its ID. Archive failures are
// logged; the caller still gets the priced quote.
func (h *Handler) archiveQuote(r *http.Request, sheet *pricing.QuoteSheet) string {
	if h.archive == nil {
		return ""
	}
	q := storage.NewStoredQuote(sheet)
	q.Metadata = map[string]string{"request_id": middleware.GetReqID(r.Context())}
	if err := h.archive.Save(r.Context(), q); err != nil {
		h.log.Error("failed to archive quote", zap.Error(err))
		return ""
	}
	return q.ID
}

func (h *Handler) applyDefaults(req *pricing.QuoteRequest) {
	if len(req.Durations) == 0 {
		req.Durations = h.settings.Durations
	}
	if req.NoMatch == "" {
		req.NoMatch = h.settings.NoMatch
	}
	req.Concurrency = h.settings.Concurrency
}

// readSiteUpload builds a QuoteRequest from a multipart form: a "sites"
// grid plus customer, carbon_offset, durations and no_match fields
func (h *Handler) readSiteUpload(w http.ResponseWriter, r *http.Request) (pricing.QuoteRequest, []loader.SkippedSite, error) {
	var req pricing.QuoteRequest

	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.settings.MaxUploadBytes); err != nil {
		return req, nil, errors.Wrap(errors.TypeInput, "invalid multipart form", err)
	}

	req.Customer = r.FormValue("customer")
	req.NoMatch = pricing.NoMatchPolicy(r.FormValue("no_match"))
	if v := r.FormValue("carbon_offset"); v != "" {
		carbon, err := cast.ToBoolE(v)
		if err != nil {
			return req, nil, errors.Wrap(errors.TypeInput, "invalid carbon_offset", err)
		}
		req.CarbonOffset = carbon
	}
	if v := r.FormValue("durations"); v != "" {
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return req, nil, errors.Wrapf(errors.TypeInput, err, "invalid duration %q", part)
			}
			req.Durations = append(req.Durations, n)
		}
	}
	durations := req.Durations
	if len(durations) == 0 {
		durations = h.settings.Durations
	}

	file, header, err := r.FormFile("sites")
	if err != nil {
		return req, nil, errors.Wrap(errors.TypeInput, "multipart field \"sites\" is required", err)
	}
	defer file.Close()

	sites, skipped, err := readSites(file, header, durations)
	if err != nil {
		return req, nil, err
	}
	req.Sites = sites
	return req, skipped, nil
}

func readSites(file multipart.File, header *multipart.FileHeader, durations []int) ([]pricing.Site, []loader.SkippedSite, error) {
	format, err := loader.FormatFor(header.Filename)
	if err != nil {
		return nil, nil, err
	}
	return loader.ReadSites(file, format, durations)
}

func (h *Handler) quoteDocument(sheet *pricing.QuoteSheet) *output.Document {
	doc := output.QuoteDocument(sheet)
	doc.Currency = h.settings.Currency
	doc.CompanyName = h.settings.CompanyName
	doc.SalesView = h.settings.SalesView
	return doc
}

// render writes doc in format, buffering so a render error still yields a
// clean error response
func (h *Handler) render(w http.ResponseWriter, r *http.Request, format output.Format, doc *output.Document, name string) {
	f, ok := h.formatters.GetFormatter(format)
	if !ok {
		h.fail(w, r, errors.Newf(errors.TypeInput, "no formatter for %q", format))
		return
	}

	var buf bytes.Buffer
	if err := f.Render(&buf, doc); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	if format == output.FormatXLSX || format == output.FormatPDF {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+string(format)))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, &buf); err != nil {
		h.log.Warn("failed to write response", zap.Error(err))
	}
}

// fail maps the error type to a status and writes the error response
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, err, statusFor(err))
}

func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.TypeInput:
		return http.StatusBadRequest
	case errors.TypeParsing, errors.TypeRegionNotFound, errors.TypeNoTariffMatch:
		return http.StatusUnprocessableEntity
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	requestID := middleware.GetReqID(r.Context())
	detail := ErrorDetail{Code: string(errors.TypeOf(err)), Message: err.Error()}

	if e, ok := errors.From(err); ok {
		detail.Message = e.Message
		if e.Cause != nil {
			detail.Message += ": " + e.Cause.Error()
		}
		if fields, ok := e.Context["fields"].([]string); ok {
			detail.Fields = fields
		}
		if rows, ok := e.Context["rows"].([]string); ok {
			detail.Rows = rows
		}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("request_id", requestID), zap.Error(err))
	}

	h.writeJSON(w, ErrorResponse{
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Status:    "error",
		Errors:    []ErrorDetail{detail},
	}, status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(errors.TypeInput, "invalid JSON body", err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func queryOr(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
