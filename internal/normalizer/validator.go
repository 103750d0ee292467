package normalizer

import (
	"errors"
	"fmt"

	"edudash/internal/models"
)

// Normalization errors.
var (
	ErrMissingDescriptor = errors.New("missing descriptor: metadata or dataFlds absent")
	ErrEmptyFieldKey     = errors.New("field descriptor has empty key")
	ErrUnsupportedShape  = errors.New("unsupported dataset shape: expected array or object")
)

// Validator checks that a descriptor can drive normalization.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks meta.DataFlds before an object is normalized.
func (v *Validator) Validate(meta *models.ChartMetadata) error {
	if meta == nil || len(meta.DataFlds) == 0 {
		return ErrMissingDescriptor
	}

	for i, fld := range meta.DataFlds {
		if fld.Key == "" {
			return fmt.Errorf("%w at index %d", ErrEmptyFieldKey, i)
		}
	}

	return nil
}
