package chart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Chart build errors.
var (
	ErrFieldMismatch     = errors.New("records do not carry every referenced key")
	ErrInvalidStrictness = errors.New("strictness must be one of: lenient, warn, strict")
)

// ValidationWarning reports a record that lacks a key the metadata references.
type ValidationWarning struct {
	Dataset string `json:"dataset,omitempty"`
	Role    string `json:"role"` // "series", "xaxis", "labels", "multi-series"
	Key     string `json:"key"`
	Record  int    `json:"record"`
}

func (w ValidationWarning) String() string {
	if w.Dataset != "" {
		return fmt.Sprintf("%s: record %d has no %s key %q", w.Dataset, w.Record, w.Role, w.Key)
	}

	return fmt.Sprintf("record %d has no %s key %q", w.Record, w.Role, w.Key)
}

// Error represents a failure while building one dataset's chart.
type Error struct {
	Dataset string
	Stage   string // "normalize", "build"
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chart %q (%s): %v", e.Dataset, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON reports the error as dataset, stage and message.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Dataset string `json:"dataset"`
		Stage   string `json:"stage"`
		Message string `json:"error"`
	}{e.Dataset, e.Stage, e.Err.Error()})
}

// NewError creates a new Error.
func NewError(dataset, stage string, err error) *Error {
	return &Error{
		Dataset: dataset,
		Stage:   stage,
		Err:     err,
	}
}
