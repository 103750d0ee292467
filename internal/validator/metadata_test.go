package validator

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"edudash/internal/config"
	"edudash/internal/models"
)

// Helper to create a config with two datasets.
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Dashboard.Datasets = []config.DatasetConfig{
		{Name: "courseProgress"},
		{Name: "passStats"},
	}

	return cfg
}

func validDocument() models.MetadataDocument {
	return models.MetadataDocument{
		"courseProgress": {
			ChartType:      models.ChartTypeBar,
			XAxisKey:       "course",
			IsArrObjSeries: true,
			Series: []models.FieldDescriptor{
				{Key: "completed", Name: "Completed", Color: "#00E396"},
			},
		},
		"passStats": {
			ChartType: models.ChartTypeDonut,
			SeriesKey: "value",
			LabelKey:  "label",
			DataFlds:  []models.FieldDescriptor{{Key: "passed", Label: "Passed"}},
		},
	}
}

func TestMetadataValidator_Valid(t *testing.T) {
	v := NewMetadataValidator(createTestConfig(t))

	result := v.Validate(validDocument())
	if !result.IsValid {
		t.Fatalf("Validate = %s, errors %v", result, result.Errors)
	}

	if result.Checked != 2 {
		t.Errorf("Checked = %d, want 2", result.Checked)
	}

	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
}

func TestMetadataValidator_Errors(t *testing.T) {
	v := NewMetadataValidator(createTestConfig(t))

	tests := []struct {
		name    string
		dataset string
		meta    *models.ChartMetadata
		wantErr error
	}{
		{"No chart type", "x", &models.ChartMetadata{XAxisKey: "a", SeriesKey: "b"}, ErrChartTypeRequired},
		{"Axis without xAxisKey", "x", &models.ChartMetadata{ChartType: models.ChartTypeLine, SeriesKey: "b"}, ErrXAxisKeyRequired},
		{"Pie without labelKey", "x", &models.ChartMetadata{ChartType: models.ChartTypePie, SeriesKey: "b"}, ErrLabelKeyRequired},
		{"No seriesKey", "x", &models.ChartMetadata{ChartType: models.ChartTypeBar, XAxisKey: "a"}, ErrSeriesKeyRequired},
		{"Multi-series without series", "x", &models.ChartMetadata{ChartType: models.ChartTypeBar, XAxisKey: "a", IsArrObjSeries: true}, ErrSeriesRequired},
		{"Series with empty key", "x", &models.ChartMetadata{
			ChartType: models.ChartTypeBar, XAxisKey: "a", IsArrObjSeries: true,
			Series: []models.FieldDescriptor{{Name: "n", Color: "#fff"}},
		}, ErrSeriesKeyEmpty},
		{"Nil metadata", "x", nil, ErrMetadataMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateChart(tt.dataset, tt.meta)
			if result.IsValid {
				t.Fatal("ValidateChart expected errors but result is valid")
			}

			found := false
			for _, err := range result.Errors {
				if errors.Is(err, tt.wantErr) {
					found = true
				}
			}

			if !found {
				t.Errorf("errors = %v, want %v", result.Errors, tt.wantErr)
			}
		})
	}
}

func TestMetadataValidator_MissingDataset(t *testing.T) {
	doc := validDocument()
	delete(doc, "passStats")

	result := NewMetadataValidator(createTestConfig(t)).Validate(doc)
	if result.IsValid {
		t.Fatal("Validate expected invalid result")
	}

	if !strings.Contains(result.Errors[0].Error(), "passStats: no metadata") {
		t.Errorf("error = %v", result.Errors[0])
	}
}

func TestMetadataValidator_Warnings(t *testing.T) {
	meta := &models.ChartMetadata{
		ChartType: "polarArea",
		XAxisKey:  "a",
		LabelKey:  "b",
		SeriesKey: "c",
		Series:    []models.FieldDescriptor{{Key: "c"}},
	}

	result := NewMetadataValidator(createTestConfig(t)).ValidateChart("odd", meta)
	if !result.IsValid {
		t.Fatalf("ValidateChart errors = %v, want none", result.Errors)
	}

	if len(result.Warnings) != 3 {
		t.Errorf("Warnings = %v, want 3", result.Warnings)
	}

	var buf bytes.Buffer
	result.WriteReport(&buf)

	if !strings.Contains(buf.String(), "Validation Warnings:") {
		t.Errorf("report = %s", buf.String())
	}
}

func TestMetadataValidator_ChartTypeCase(t *testing.T) {
	meta := &models.ChartMetadata{ChartType: "Pie", XAxisKey: "label", SeriesKey: "value"}

	result := NewMetadataValidator(createTestConfig(t)).ValidateChart("passStats", meta)
	if !result.IsValid {
		t.Fatalf("ValidateChart errors = %v, want none for an axis-rendered chart", result.Errors)
	}

	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], `"Pie" is not a known type`) {
		t.Errorf("Warnings = %v, want unknown type warning", result.Warnings)
	}
}

func TestCheckShape(t *testing.T) {
	if err := CheckShape([]any{}, nil); err != nil {
		t.Errorf("array shape err = %v, want nil", err)
	}

	if err := CheckShape(map[string]any{"a": 1.0}, &models.ChartMetadata{}); !errors.Is(err, ErrDataFldsRequired) {
		t.Errorf("object shape err = %v, want ErrDataFldsRequired", err)
	}

	meta := &models.ChartMetadata{DataFlds: []models.FieldDescriptor{{Key: "a"}}}
	if err := CheckShape(map[string]any{"a": 1.0}, meta); err != nil {
		t.Errorf("object shape with dataFlds err = %v, want nil", err)
	}
}

func TestValidationResult_String(t *testing.T) {
	r := &ValidationResult{IsValid: true, Checked: 5}
	if got := r.String(); got != "VALID | Checked: 5 | Errors: 0 | Warnings: 0" {
		t.Errorf("String = %q", got)
	}
}
