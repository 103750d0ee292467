// Package server exposes the dashboard charts over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"

	"edudash/internal/config"
	"edudash/internal/dashboard"
	"edudash/internal/logger"
	"edudash/pkg/metadata"
)

const shutdownTimeout = 10 * time.Second

// ErrInvalidYear is returned for a year query parameter that is not a number.
var ErrInvalidYear = errors.New("year must be a number")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// YearsResponse lists the selectable years and themes.
type YearsResponse struct {
	Years    []int    `json:"years"`
	Selected int      `json:"selected"`
	Themes   []string `json:"themes"`
	Theme    string   `json:"theme"`
}

// Server serves a dashboard.
type Server struct {
	cfg     *config.Config
	dash    *dashboard.Dashboard
	log     *logger.Logger
	handler http.Handler
}

// New creates a server with CORS applied to every route.
func New(cfg *config.Config, dash *dashboard.Dashboard, log *logger.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		dash: dash,
		log:  log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/years", s.handleYears)
	mux.HandleFunc("GET /api/charts", s.handleCharts)
	mux.HandleFunc("GET /api/charts/{name}", s.handleChart)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
	})

	s.handler = c.Handler(mux)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on cfg.Server.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Slog().Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, YearsResponse{
		Years:    s.cfg.Dashboard.AvailableYears,
		Selected: s.dash.Year(),
		Themes:   s.cfg.Dashboard.Themes,
		Theme:    s.dash.Theme(),
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	writeTagged(w, r, snap.Fingerprint.ETag(), snap)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	name := r.PathValue("name")

	c, found := snap.Chart(name)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown chart %q", name))
		return
	}

	stamp, err := metadata.Sign(c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeTagged(w, r, stamp.ETag(), c)
}

// snapshot applies the year and theme query parameters and returns the
// resulting snapshot, writing an error response when it cannot.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*dashboard.Snapshot, bool) {
	query := r.URL.Query()

	year := s.dash.Year()
	if raw := query.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", ErrInvalidYear, raw))
			return nil, false
		}

		year = parsed
	}

	if theme := query.Get("theme"); theme != "" {
		if err := s.dash.SelectTheme(theme); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return nil, false
		}
	}

	snap, err := s.dash.SelectYear(r.Context(), year)

	switch {
	case errors.Is(err, dashboard.ErrUnknownYear):
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	case err != nil:
		s.log.Error("dashboard load failed", "year", year, "error", err)
		writeError(w, http.StatusBadGateway, err)

		return nil, false
	}

	return snap, true
}

// writeTagged writes v with an ETag, or 304 when the client already has it.
func writeTagged(w http.ResponseWriter, r *http.Request, etag string, v any) {
	if etag != "" {
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
