// Package dashboard loads a year's documents and builds every configured chart.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"edudash/internal/chart"
	"edudash/internal/config"
	"edudash/internal/fetcher"
	"edudash/internal/logger"
	"edudash/internal/models"
	"edudash/internal/normalizer"
	"edudash/internal/validator"
	"edudash/pkg/metadata"
)

// Dashboard errors.
var (
	ErrUnknownYear  = errors.New("year is not available")
	ErrUnknownTheme = errors.New("theme is not available")
	ErrNotLoaded    = errors.New("dashboard has not been loaded")
)

// Build stages reported in chart errors.
const (
	StageNormalize = "normalize"
	StageBuild     = "build"
)

// Chart is one built dataset.
type Chart struct {
	Name   string             `json:"name"`
	Config models.ChartConfig `json:"config"`
	Empty  bool               `json:"empty,omitempty"`
}

// Snapshot is the dashboard state after a load.
type Snapshot struct {
	Year        int                       `json:"year"`
	Theme       string                    `json:"theme"`
	Charts      []Chart                   `json:"charts"`
	Warnings    []chart.ValidationWarning `json:"warnings,omitempty"`
	Errors      []*chart.Error            `json:"errors,omitempty"`
	Fingerprint *metadata.Stamp           `json:"fingerprint,omitempty"`
	LoadedAt    time.Time                 `json:"loadedAt"`
}

// Chart returns the named chart.
func (s *Snapshot) Chart(name string) (Chart, bool) {
	for _, c := range s.Charts {
		if c.Name == name {
			return c, true
		}
	}

	return Chart{}, false
}

// fingerprint is the content a snapshot's stamp is computed over.
type fingerprint struct {
	Year   int     `json:"year"`
	Theme  string  `json:"theme"`
	Charts []Chart `json:"charts"`
}

func sign(snap *Snapshot) (*metadata.Stamp, error) {
	stamp, err := metadata.Sign(fingerprint{Year: snap.Year, Theme: snap.Theme, Charts: snap.Charts})
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint charts: %w", err)
	}

	return stamp, nil
}

// Verify checks that a snapshot, typically read back from a build output,
// still matches its fingerprint.
func Verify(snap *Snapshot) (bool, error) {
	return metadata.Verify(fingerprint{Year: snap.Year, Theme: snap.Theme, Charts: snap.Charts}, snap.Fingerprint)
}

// Dashboard holds the selected year and theme and the last built snapshot.
// It is safe for concurrent use.
type Dashboard struct {
	cfg       *config.Config
	source    fetcher.Source
	builder   *chart.Builder
	processor *normalizer.Processor
	validator *validator.MetadataValidator
	log       *logger.Logger

	loadMu sync.Mutex

	mu       sync.RWMutex
	year     int
	theme    string
	snapshot *Snapshot
}

// NewDashboard creates a dashboard at the configured default year and theme.
func NewDashboard(cfg *config.Config, source fetcher.Source, builder *chart.Builder, log *logger.Logger) *Dashboard {
	return &Dashboard{
		cfg:       cfg,
		source:    source,
		builder:   builder,
		processor: normalizer.NewProcessor(),
		validator: validator.NewMetadataValidator(cfg),
		log:       log,
		year:      cfg.Dashboard.DefaultYear,
		theme:     cfg.Dashboard.DefaultTheme,
	}
}

// Year returns the selected year.
func (d *Dashboard) Year() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.year
}

// Theme returns the selected theme.
func (d *Dashboard) Theme() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.theme
}

// Snapshot returns the last built snapshot.
func (d *Dashboard) Snapshot() (*Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.snapshot == nil {
		return nil, ErrNotLoaded
	}

	return d.snapshot, nil
}

// SelectYear switches to year and rebuilds the snapshot. Selecting the
// already loaded year returns the current snapshot. The selection only
// changes once the year's snapshot has been built.
func (d *Dashboard) SelectYear(ctx context.Context, year int) (*Snapshot, error) {
	if !d.cfg.HasYear(year) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownYear, year)
	}

	if snap := d.current(year); snap != nil {
		return snap, nil
	}

	return d.load(ctx, year)
}

// current returns the snapshot if it was built for year.
func (d *Dashboard) current(year int) *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.snapshot != nil && d.snapshot.Year == year && d.year == year {
		return d.snapshot
	}

	return nil
}

// SelectTheme switches the theme. Charts do not depend on the theme, so the
// current snapshot is copied and re-signed rather than rebuilt.
func (d *Dashboard) SelectTheme(theme string) error {
	if !d.cfg.HasTheme(theme) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.theme == theme {
		return nil
	}

	d.theme = theme
	if d.snapshot == nil {
		return nil
	}

	snap := *d.snapshot
	snap.Theme = theme

	stamp, err := sign(&snap)
	if err != nil {
		return err
	}

	snap.Fingerprint = stamp
	d.snapshot = &snap

	return nil
}

// Load fetches the documents for the selected year and builds every enabled
// dataset. A failing dataset is recorded in the snapshot and does not stop
// the others. Only failing to obtain either document is an error.
func (d *Dashboard) Load(ctx context.Context) (*Snapshot, error) {
	return d.load(ctx, d.Year())
}

// load builds the snapshot for year and makes it current. On error the
// selected year and the current snapshot are left as they were.
func (d *Dashboard) load(ctx context.Context, year int) (*Snapshot, error) {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	theme := d.Theme()
	log := d.log.With("year", year)
	start := time.Now()

	metaDoc, err := d.source.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	d.logValidation(log, d.validator.Validate(metaDoc))

	metrics, err := d.source.Metrics(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics for %d: %w", year, err)
	}

	snap := &Snapshot{Year: year, Theme: theme}

	for _, ds := range d.cfg.GetEnabledDatasets() {
		c, warnings, chartErr := d.buildDataset(ds, metrics, metaDoc)
		snap.Charts = append(snap.Charts, c)

		for _, w := range warnings {
			log.Warn("missing value", "warning", w.String())
		}

		snap.Warnings = append(snap.Warnings, warnings...)

		if chartErr != nil {
			log.Error("chart failed", "dataset", chartErr.Dataset, "stage", chartErr.Stage, "error", chartErr.Err)
			snap.Errors = append(snap.Errors, chartErr)
		}
	}

	d.mu.Lock()
	// a theme selected while loading wins
	snap.Theme = d.theme

	stamp, err := sign(snap)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}

	snap.Fingerprint = stamp
	snap.LoadedAt = stamp.GeneratedAt

	d.year = year
	d.snapshot = snap
	d.mu.Unlock()

	log.Info("dashboard loaded",
		"charts", len(snap.Charts),
		"warnings", len(snap.Warnings),
		"errors", len(snap.Errors),
		"duration", time.Since(start))

	return snap, nil
}

func (d *Dashboard) buildDataset(
	ds config.DatasetConfig,
	metrics models.MetricsDocument,
	metaDoc models.MetadataDocument,
) (Chart, []chart.ValidationWarning, *chart.Error) {
	empty := Chart{Name: ds.Name, Empty: true}
	meta := metaDoc[ds.MetaKey()]

	raw, ok := metrics.Lookup(ds.MetricsPath())
	if !ok {
		d.log.Debug("dataset absent from metrics", "dataset", ds.Name, "path", ds.MetricsPath())
	}

	if err := validator.CheckShape(raw, meta); err != nil {
		return empty, nil, chart.NewError(ds.Name, StageNormalize, err)
	}

	records, err := d.processor.Process(raw, meta)
	if err != nil {
		return empty, nil, chart.NewError(ds.Name, StageNormalize, err)
	}

	res, err := d.builder.Build(records, meta)

	for i := range res.Warnings {
		res.Warnings[i].Dataset = ds.Name
	}

	if err != nil {
		return empty, res.Warnings, chart.NewError(ds.Name, StageBuild, err)
	}

	return Chart{Name: ds.Name, Config: res.Config, Empty: res.Empty}, res.Warnings, nil
}

func (d *Dashboard) logValidation(log *logger.Logger, result *validator.ValidationResult) {
	if result.IsValid && len(result.Warnings) == 0 {
		log.Debug("metadata valid", "result", result.String())
		return
	}

	for _, e := range result.Errors {
		log.Warn("metadata invalid", "error", e.Error())
	}

	for _, w := range result.Warnings {
		log.Warn("metadata warning", "warning", w)
	}

	log.Info("metadata checked", "result", result.String())
}
