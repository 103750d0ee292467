package fetcher

import (
	"errors"
	"fmt"
	"time"
)

// Location errors.
var (
	ErrNoLocations        = errors.New("no locations available")
	ErrAllLocationsFailed = errors.New("all locations failed")
)

// AttemptResult records the result of one fetch attempt.
type AttemptResult struct {
	Timestamp time.Time
	Location  string
	Error     string
	Duration  time.Duration
	Success   bool
}

// LocationManager walks a primary location and its backups in order and
// keeps a log of every attempt.
type LocationManager struct {
	locations []string
	attempts  []AttemptResult
	current   int
}

// NewLocationManager creates a manager over the given locations.
func NewLocationManager(locations []string) *LocationManager {
	return &LocationManager{locations: locations}
}

// Next returns the next location to try.
func (lm *LocationManager) Next() (string, error) {
	if len(lm.locations) == 0 {
		return "", ErrNoLocations
	}

	if lm.current >= len(lm.locations) {
		return "", fmt.Errorf("%w: %d tried", ErrAllLocationsFailed, len(lm.locations))
	}

	loc := lm.locations[lm.current]
	lm.current++

	return loc, nil
}

// HasMore returns true if there are untried locations.
func (lm *LocationManager) HasMore() bool {
	return lm.current < len(lm.locations)
}

// RecordAttempt records the result of a fetch attempt.
func (lm *LocationManager) RecordAttempt(location string, err error, duration time.Duration) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	lm.attempts = append(lm.attempts, AttemptResult{
		Timestamp: time.Now(),
		Location:  location,
		Error:     errMsg,
		Duration:  duration,
		Success:   err == nil,
	})
}

// Attempts returns the attempt log.
func (lm *LocationManager) Attempts() []AttemptResult {
	return lm.attempts
}
