// Package validator checks chart metadata documents before charts are built.
package validator

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"edudash/internal/config"
	"edudash/internal/models"
)

// Validation errors.
var (
	ErrMetadataMissing   = errors.New("no metadata for dataset")
	ErrChartTypeRequired = errors.New("chartType is required")
	ErrXAxisKeyRequired  = errors.New("xAxisKey is required for axis charts")
	ErrLabelKeyRequired  = errors.New("labelKey is required for pie and donut charts")
	ErrSeriesKeyRequired = errors.New("seriesKey is required unless isArrObjSeries is set")
	ErrSeriesRequired    = errors.New("series is required when isArrObjSeries is set")
	ErrSeriesKeyEmpty    = errors.New("series descriptor has empty key")
	ErrDataFldsRequired  = errors.New("dataFlds is required for object-shaped metrics")
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Dataset string
	Field   string
	Err     error
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Dataset, e.Field, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Dataset, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Checked  int
	IsValid  bool
}

// MetadataValidator validates a metadata document against the configured datasets.
type MetadataValidator struct {
	cfg *config.Config
}

// NewMetadataValidator creates a new validator.
func NewMetadataValidator(cfg *config.Config) *MetadataValidator {
	return &MetadataValidator{cfg: cfg}
}

// Validate checks every enabled dataset's metadata.
func (v *MetadataValidator) Validate(doc models.MetadataDocument) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	for _, ds := range v.cfg.GetEnabledDatasets() {
		result.Checked++

		meta, ok := doc[ds.MetaKey()]
		if !ok || meta == nil {
			result.add(ds.Name, "", ErrMetadataMissing)
			continue
		}

		v.validateChart(ds.Name, meta, result)
	}

	return result
}

// ValidateChart checks a single dataset's metadata.
func (v *MetadataValidator) ValidateChart(name string, meta *models.ChartMetadata) *ValidationResult {
	result := &ValidationResult{IsValid: true, Checked: 1}
	if meta == nil {
		result.add(name, "", ErrMetadataMissing)
		return result
	}

	v.validateChart(name, meta, result)

	return result
}

// CheckShape verifies that object-shaped metrics come with dataFlds.
func CheckShape(raw any, meta *models.ChartMetadata) error {
	if _, isObject := raw.(map[string]any); !isObject {
		return nil
	}

	if meta == nil || len(meta.DataFlds) == 0 {
		return ErrDataFldsRequired
	}

	return nil
}

func (v *MetadataValidator) validateChart(name string, meta *models.ChartMetadata, result *ValidationResult) {
	if meta.ChartType == "" {
		result.add(name, "chartType", ErrChartTypeRequired)
	} else if !slices.Contains(models.KnownChartTypes, meta.ChartType) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: chart type %q is not a known type, rendering as an axis chart", name, meta.ChartType))
	}

	if meta.Family() == models.FamilyAxis {
		if meta.XAxisKey == "" {
			result.add(name, "xAxisKey", ErrXAxisKeyRequired)
		}

		if meta.LabelKey != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: labelKey %q is ignored for %s charts", name, meta.LabelKey, meta.ChartType))
		}
	} else {
		if meta.LabelKey == "" {
			result.add(name, "labelKey", ErrLabelKeyRequired)
		}

		if meta.XAxisKey != "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: xAxisKey %q is ignored for %s charts", name, meta.XAxisKey, meta.ChartType))
		}
	}

	if meta.IsArrObjSeries {
		if len(meta.Series) == 0 {
			result.add(name, "series", ErrSeriesRequired)
		}

		for i, s := range meta.Series {
			if s.Key == "" {
				result.add(name, fmt.Sprintf("series[%d]", i), ErrSeriesKeyEmpty)
			}
		}
	} else if meta.SeriesKey == "" {
		result.add(name, "seriesKey", ErrSeriesKeyRequired)
	}

	for i, s := range meta.Series {
		if s.Color == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: series[%d] has no color, the widget palette is used", name, i))
		}
	}
}

func (r *ValidationResult) add(dataset, field string, err error) {
	r.IsValid = false
	r.Errors = append(r.Errors, ValidationError{Dataset: dataset, Field: field, Err: err})
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}

	return fmt.Sprintf(
		"%s | Checked: %d | Errors: %d | Warnings: %d",
		status,
		r.Checked,
		len(r.Errors),
		len(r.Warnings),
	)
}

// WriteReport writes errors and warnings in readable format.
func (r *ValidationResult) WriteReport(w io.Writer) {
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Validation Errors:")

		for _, err := range r.Errors {
			fmt.Fprintf(w, "  %s\n", err.Error())
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Validation Warnings:")

		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
}
