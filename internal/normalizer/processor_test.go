package normalizer

import (
	"errors"
	"testing"

	"edudash/internal/models"
)

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_Process_Array(t *testing.T) {
	p := NewProcessor()

	raw := []any{
		map[string]any{"course": "Math", "progress": 72.0},
		"not an object",
		map[string]any{"course": "Science", "progress": 64.0},
	}

	records, err := p.Process(raw, nil)
	if err != nil {
		t.Fatalf("Process returned unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("len = %d, want 3", len(records))
	}

	if records[0]["course"] != "Math" {
		t.Errorf("records[0].course = %v, want Math", records[0]["course"])
	}

	if len(records[1]) != 0 {
		t.Errorf("records[1] = %v, want empty record", records[1])
	}
}

func TestProcessor_Process_Object(t *testing.T) {
	p := NewProcessor()

	meta := &models.ChartMetadata{
		ChartType: models.ChartTypeDonut,
		SeriesKey: "value",
		LabelKey:  "label",
		DataFlds: []models.FieldDescriptor{
			{Key: "passed", Label: "Passed"},
			{Key: "failed", Label: "Failed"},
		},
	}

	records, err := p.Process(map[string]any{"passed": 900.0, "failed": 100.0}, meta)
	if err != nil {
		t.Fatalf("Process returned unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}

	if records[1]["label"] != "Failed" || records[1]["value"] != 100.0 {
		t.Errorf("records[1] = %v, want Failed/100", records[1])
	}
}

func TestProcessor_Process_Errors(t *testing.T) {
	p := NewProcessor()

	if _, err := p.Process(map[string]any{"a": 1.0}, nil); !errors.Is(err, ErrMissingDescriptor) {
		t.Errorf("object without descriptor: err = %v, want ErrMissingDescriptor", err)
	}

	if _, err := p.Process(42.0, nil); !errors.Is(err, ErrUnsupportedShape) {
		t.Errorf("scalar: err = %v, want ErrUnsupportedShape", err)
	}

	records, err := p.Process(nil, nil)
	if err != nil || records != nil {
		t.Errorf("nil input: records = %v, err = %v, want nil, nil", records, err)
	}
}
