// Package normalizer turns raw dataset values into records for the chart builder.
package normalizer

import (
	"fmt"

	"edudash/internal/models"
)

// Processor resolves a raw dataset value into records.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Process accepts an array of objects as-is and normalizes a flat object
// through meta.DataFlds. A nil raw value yields no records.
func (p *Processor) Process(raw any, meta *models.ChartMetadata) ([]models.DataRecord, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return models.RecordsFrom(v), nil
	case []models.DataRecord:
		return v, nil
	case map[string]any:
		if err := p.validator.Validate(meta); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		fields, err := p.transformer.Transform(v, meta)
		if err != nil {
			return nil, fmt.Errorf("transformation failed: %w", err)
		}

		return Records(fields), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedShape, raw)
	}
}
