// Package api - Thin HTTP layer over the quote engine
// The API is ONLY responsible for: input ingestion, engine orchestration, output serialization.
// The API NEVER performs pricing logic.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"energy-quote/adapters/storage"
	"energy-quote/core/pricing"
	"energy-quote/internal/config"
	"energy-quote/internal/logging"
)

// Server is the API server
type Server struct {
	handler *Handler
	router  chi.Router
	version string
	started time.Time
}

// NewServer creates a server over the snapshot store. archive may be nil.
func NewServer(version string, store *pricing.Store, archive storage.Store, settings Settings) *Server {
	s := &Server{
		handler: NewHandler(store, archive, settings),
		router:  chi.NewRouter(),
		version: version,
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

// SettingsFromConfig derives handler settings from the application config
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Caps:           cfg.UpliftCaps(),
		Durations:      cfg.Pricing.Durations,
		NoMatch:        cfg.NoMatch(),
		Concurrency:    cfg.Pricing.Concurrency,
		Currency:       cfg.Pricing.Currency,
		CompanyName:    cfg.Output.CompanyName,
		SalesView:      cfg.Output.SalesView,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	r := s.router
	h := s.handler

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logging.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Supporting endpoints
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	// Core endpoints
	r.Get("/regions/{postcode}", h.HandleRegion)
	r.Route("/quote", func(r chi.Router) {
		r.Post("/", h.HandleQuote)
		r.Post("/line", h.HandleQuoteLine)
		r.Post("/line/multirate", h.HandleMultiRateLine)
	})
	r.Post("/pricebook", h.HandlePriceBook)

	// Rate snapshot
	r.Get("/snapshot", h.HandleSnapshot)
	r.Post("/tariffs", h.HandleTariffUpload)

	// Quote archive
	r.Route("/quotes", func(r chi.Router) {
		r.Get("/", h.HandleListQuotes)
		r.Get("/{id}", h.HandleGetQuote)
		r.Delete("/{id}", h.HandleDeleteQuote)
		r.Get("/{id}/compare/{other}", h.HandleCompareQuotes)
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	body := map[string]interface{}{
		"version": s.version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	if snap := s.handler.store.Current(); snap != nil {
		body["snapshot_id"] = snap.ID
	} else {
		status, code = "no snapshot", http.StatusServiceUnavailable
	}
	body["status"] = status
	s.handler.writeJSON(w, body, code)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.handler.writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "energy-quote",
		"api_version": "v1",
	}, http.StatusOK)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("listening", zap.String("addr", addr), zap.String("version", s.version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logging.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs one structured line per request
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
