package chart

import (
	"fmt"

	"edudash/internal/models"
)

// Result is the outcome of one chart build.
type Result struct {
	Config   models.ChartConfig  `json:"config"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
	Family   models.ChartFamily  `json:"-"`
	Empty    bool                `json:"empty,omitempty"`
}

// Builder builds chart configurations. It holds no mutable state and is
// safe for concurrent use.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts Options) *Builder {
	if opts.Strictness == "" {
		opts.Strictness = StrictnessLenient
	}

	return &Builder{opts: opts}
}

// Options returns the builder options.
func (b *Builder) Options() Options {
	return b.opts
}

// Build maps records and metadata into a chart configuration. Missing
// metadata or records give an empty config and no error. In strict mode a
// field mismatch returns the full result together with ErrFieldMismatch.
func (b *Builder) Build(data []models.DataRecord, meta *models.ChartMetadata) (*Result, error) {
	if meta == nil || len(data) == 0 {
		return &Result{Empty: true}, nil
	}

	family := meta.Family()
	res := &Result{
		Config: buildConfig(data, meta, family),
		Family: family,
	}

	if !b.opts.ShouldCollectWarnings() {
		return res, nil
	}

	res.Warnings = CollectWarnings(data, meta, family)
	if len(res.Warnings) > 0 && b.opts.ShouldFail() {
		return res, fmt.Errorf("%w: %d missing values", ErrFieldMismatch, len(res.Warnings))
	}

	return res, nil
}

// BuildChart is the lenient build: it never fails and reports nothing.
func BuildChart(data []models.DataRecord, meta *models.ChartMetadata) models.ChartConfig {
	if meta == nil || len(data) == 0 {
		return models.ChartConfig{}
	}

	return buildConfig(data, meta, meta.Family())
}

func buildConfig(data []models.DataRecord, meta *models.ChartMetadata, family models.ChartFamily) models.ChartConfig {
	cfg := models.ChartConfig{
		Series: buildSeries(data, meta, family),
		Chart: &models.ChartOption{
			Type:    meta.ChartType,
			Height:  meta.Height,
			Width:   meta.Width,
			Stacked: models.BoolValue(meta.Stacked),
			Toolbar: models.Toolbar{Show: false},
		},
		DataLabels: &models.DataLabels{
			Enabled: models.BoolValue(meta.DataLabelEnabled),
		},
		PlotOptions: &models.PlotOptions{
			Bar: models.BarOptions{Horizontal: models.BoolValue(meta.IsPlotBarHorizontal)},
		},
	}

	if family == models.FamilyAxis {
		cfg.XAxis = &models.XAxis{Categories: project(data, meta.XAxisKey)}
	} else {
		cfg.Labels = project(data, meta.LabelKey)
	}

	if meta.DataLabelFormatter != "" {
		cfg.DataLabels.Formatter = &models.LabelFormatter{Suffix: meta.DataLabelFormatter}
	}

	if meta.LegendPosition != "" {
		cfg.Legend = &models.Legend{
			Position:        meta.LegendPosition,
			HorizontalAlign: meta.LegendAlign,
		}
	}

	if len(meta.Series) > 0 {
		cfg.Colors = make([]string, 0, len(meta.Series))
		for _, s := range meta.Series {
			cfg.Colors = append(cfg.Colors, s.Color)
		}
	}

	return cfg
}

func buildSeries(data []models.DataRecord, meta *models.ChartMetadata, family models.ChartFamily) *models.SeriesSet {
	switch {
	case meta.IsArrObjSeries:
		series := make([]models.Series, 0, len(meta.Series))
		for _, s := range meta.Series {
			series = append(series, models.Series{
				Name:  s.Name,
				Group: s.Group,
				Data:  project(data, s.Key),
			})
		}

		return models.NestedSeries(series...)
	case family == models.FamilyAxis:
		return models.NestedSeries(models.Series{Data: project(data, meta.SeriesKey)})
	default:
		return models.FlatSeries(project(data, meta.SeriesKey))
	}
}

// project returns the value at key for every record, nil where absent.
func project(data []models.DataRecord, key string) []any {
	values := make([]any, len(data))
	for i, rec := range data {
		values[i] = rec[key]
	}

	return values
}
