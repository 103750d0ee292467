package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edudash/internal/config"
	"edudash/internal/logger"
	"edudash/internal/models"
)

// Source loads the two documents a dashboard is built from.
type Source interface {
	Metrics(ctx context.Context, year int) (models.MetricsDocument, error)
	Metadata(ctx context.Context) (models.MetadataDocument, error)
}

// DocumentSource reads documents over HTTP or from local files, falling
// back to backup metrics locations in order.
type DocumentSource struct {
	cfg     *config.Config
	scraper *Scraper
	log     *logger.Logger
}

// NewDocumentSource creates a source with a scraper built from cfg.Retry.
func NewDocumentSource(cfg *config.Config, log *logger.Logger) *DocumentSource {
	return NewDocumentSourceWithDeps(cfg, NewScraperWithConfig(&cfg.Retry), log)
}

// NewDocumentSourceWithDeps creates a source with an injected scraper.
func NewDocumentSourceWithDeps(cfg *config.Config, scraper *Scraper, log *logger.Logger) *DocumentSource {
	return &DocumentSource{
		cfg:     cfg,
		scraper: scraper,
		log:     log,
	}
}

// Metrics loads the metrics document for year.
func (s *DocumentSource) Metrics(ctx context.Context, year int) (models.MetricsDocument, error) {
	lm := NewLocationManager(s.cfg.GetMetricsURLs(year))

	var lastErr error

	for lm.HasMore() {
		loc, err := lm.Next()
		if err != nil {
			return nil, err
		}

		start := time.Now()

		doc, err := s.fetchMetrics(ctx, loc)
		if err == nil {
			lm.RecordAttempt(loc, nil, time.Since(start))
			s.log.Debug("metrics loaded", "location", loc, "year", year)

			return doc, nil
		}

		lm.RecordAttempt(loc, err, time.Since(start))
		s.log.Warn("metrics location failed", "location", loc, "error", err)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		return nil, ErrNoLocations
	}

	s.log.Error("all metrics locations failed", "year", year, "attempts", len(lm.Attempts()))

	return nil, fmt.Errorf("%w: year %d: %w", ErrAllLocationsFailed, year, lastErr)
}

func (s *DocumentSource) fetchMetrics(ctx context.Context, loc string) (models.MetricsDocument, error) {
	data, err := s.scraper.Fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	doc, err := models.ParseMetricsDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics document: %w", err)
	}

	return doc, nil
}

// Metadata loads the chart metadata document.
func (s *DocumentSource) Metadata(ctx context.Context) (models.MetadataDocument, error) {
	data, err := s.scraper.Fetch(ctx, s.cfg.Dashboard.MetadataURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}

	doc, err := models.ParseMetadataDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata document: %w", err)
	}

	return doc, nil
}

// ErrUnsupportedSource is returned for an unknown source kind.
var ErrUnsupportedSource = errors.New("unsupported source kind")

// NewSource builds the source named by cfg.Source.Kind. The returned close
// function releases database resources and is never nil.
func NewSource(ctx context.Context, cfg *config.Config, log *logger.Logger) (Source, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceHTTP, config.SourceFile, "":
		return NewDocumentSource(cfg, log), func() {}, nil
	case config.SourcePostgres:
		src, err := OpenPostgresSource(ctx, cfg.Source.DatabaseURL, cfg.Source.Table)
		if err != nil {
			return nil, func() {}, err
		}

		return src, src.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("%w: %q", ErrUnsupportedSource, cfg.Source.Kind)
	}
}
