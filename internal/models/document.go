package models

import (
	"encoding/json"
	"strings"
)

// MetricsDocument is one year's metrics keyed by dataset name. Values are
// either arrays of records or flat objects.
type MetricsDocument map[string]any

// MetadataDocument maps dataset names to their chart metadata.
type MetadataDocument map[string]*ChartMetadata

// Lookup resolves a dotted path such as "districtRanking.districts".
func (d MetricsDocument) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = map[string]any(d)

	for part := range strings.SplitSeq(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// ParseMetricsDocument decodes a metrics document.
func ParseMetricsDocument(data []byte) (MetricsDocument, error) {
	var doc MetricsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ParseMetadataDocument decodes a metadata document.
func ParseMetadataDocument(data []byte) (MetadataDocument, error) {
	var doc MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// RecordsFrom converts a decoded JSON array into records. Non-object
// elements become empty records so positions are preserved.
func RecordsFrom(items []any) []DataRecord {
	records := make([]DataRecord, 0, len(items))

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			records = append(records, DataRecord{})
			continue
		}

		records = append(records, DataRecord(obj))
	}

	return records
}
