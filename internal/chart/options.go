// Package chart maps dataset records and chart metadata into widget configurations.
package chart

import (
	"fmt"
	"strings"
)

// Strictness selects how records that lack a referenced key are treated.
type Strictness string

const (
	// StrictnessLenient fills missing values with nil and reports nothing.
	StrictnessLenient Strictness = "lenient"
	// StrictnessWarn fills missing values with nil and returns warnings.
	StrictnessWarn Strictness = "warn"
	// StrictnessStrict returns warnings and an ErrFieldMismatch error.
	StrictnessStrict Strictness = "strict"
)

// ParseStrictness parses a strictness name. An empty name is lenient.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessLenient:
		return StrictnessLenient, nil
	case StrictnessWarn:
		return StrictnessWarn, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrictness, s)
	}
}

// Options configures a Builder.
type Options struct {
	Strictness Strictness
}

// DefaultOptions returns lenient options.
func DefaultOptions() Options {
	return Options{Strictness: StrictnessLenient}
}

// ShouldCollectWarnings returns whether field mismatches are reported.
func (o Options) ShouldCollectWarnings() bool {
	return o.Strictness == StrictnessWarn || o.Strictness == StrictnessStrict
}

// ShouldFail returns whether field mismatches turn into an error.
func (o Options) ShouldFail() bool {
	return o.Strictness == StrictnessStrict
}
