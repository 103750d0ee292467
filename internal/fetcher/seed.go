package fetcher

import (
	"context"
	"encoding/json"
	"fmt"

	"edudash/internal/logger"
)

// SeedResult reports what Seed stored.
type SeedResult struct {
	Metadata bool
	Years    []int
	Failed   map[int]error
}

// Seed copies the metadata document and the metrics document of every year
// from src into dst. A year that cannot be read is recorded and skipped;
// failing to read or store the metadata aborts.
func Seed(ctx context.Context, src Source, dst *PostgresSource, years []int, log *logger.Logger) (*SeedResult, error) {
	if err := dst.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result := &SeedResult{Failed: make(map[int]error)}

	meta, err := src.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	if err := store(ctx, dst, KindMetadata, 0, meta); err != nil {
		return nil, err
	}

	result.Metadata = true

	for _, year := range years {
		doc, err := src.Metrics(ctx, year)
		if err != nil {
			log.Warn("skipping year", "year", year, "error", err)
			result.Failed[year] = err

			continue
		}

		if err := store(ctx, dst, KindMetrics, year, doc); err != nil {
			return result, err
		}

		log.Info("seeded metrics", "year", year)
		result.Years = append(result.Years, year)
	}

	return result, nil
}

func store(ctx context.Context, dst *PostgresSource, kind string, year int, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", kind, err)
	}

	return dst.Store(ctx, kind, year, raw)
}
