package normalizer

import (
	"edudash/internal/models"
)

// Transformer turns object-shaped metrics into ordered field arrays.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform produces one entry per descriptor in meta.DataFlds, in the same
// order. Keys missing from obj yield a nil value.
func (t *Transformer) Transform(obj map[string]any, meta *models.ChartMetadata) ([]models.FieldValue, error) {
	if meta == nil || len(meta.DataFlds) == 0 {
		return nil, ErrMissingDescriptor
	}

	fields := make([]models.FieldValue, 0, len(meta.DataFlds))
	for _, fld := range meta.DataFlds {
		fields = append(fields, models.FieldValue{
			Key:   fld.Key,
			Label: fld.Label,
			Value: obj[fld.Key],
		})
	}

	return fields, nil
}

// ObjectToFieldArray converts obj into {key, label, value} entries following
// meta.DataFlds.
func ObjectToFieldArray(obj map[string]any, meta *models.ChartMetadata) ([]models.FieldValue, error) {
	return NewTransformer().Transform(obj, meta)
}

// Records converts normalized entries into records the chart builder accepts.
func Records(fields []models.FieldValue) []models.DataRecord {
	records := make([]models.DataRecord, 0, len(fields))
	for _, f := range fields {
		records = append(records, f.Record())
	}

	return records
}
