// Package metadata stamps built dashboards with a content fingerprint.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is written into every stamp.
const Version = "1"

// Fingerprint verification errors.
var (
	ErrNoHashFound  = errors.New("no hash found in stamp")
	ErrHashMismatch = errors.New("hash mismatch")
)

// Stamp records when and from what content a dashboard snapshot was built.
type Stamp struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Version     string    `json:"version"`
	Hash        string    `json:"hash"`
}

// CalculateHash computes the SHA-256 of the canonical JSON encoding of v.
// Map keys are sorted by encoding/json, so equal content hashes equally.
func CalculateHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode content: %w", err)
	}

	hash := sha256.Sum256(data)

	return hex.EncodeToString(hash[:]), nil
}

// Sign returns a fresh stamp for v.
func Sign(v any) (*Stamp, error) {
	hash, err := CalculateHash(v)
	if err != nil {
		return nil, err
	}

	return &Stamp{
		GeneratedAt: time.Now().UTC(),
		Version:     Version,
		Hash:        hash,
	}, nil
}

// ETag returns the stamp hash as a strong HTTP entity tag.
func (s *Stamp) ETag() string {
	if s == nil || s.Hash == "" {
		return ""
	}

	return `"` + s.Hash[:min(len(s.Hash), 32)] + `"`
}

// Verify checks that v still matches the stamp.
func Verify(v any, stamp *Stamp) (bool, error) {
	if stamp == nil || stamp.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated, err := CalculateHash(v)
	if err != nil {
		return false, err
	}

	if calculated != stamp.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, stamp.Hash, calculated)
	}

	return true, nil
}
