package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"edudash/internal/models"
)

// Document store errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidDocument  = errors.New("document is not valid JSON")
)

// Document kinds stored in the documents table.
const (
	KindMetrics  = "metrics"
	KindMetadata = "metadata"
)

// dbtx is the part of pgxpool.Pool the source needs.
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSource reads documents from a table shaped
// (kind text, year int, doc jsonb). Metadata rows use year 0.
type PostgresSource struct {
	db    dbtx
	pool  *pgxpool.Pool
	table string
	query string
}

// OpenPostgresSource connects a pool and verifies it with a ping.
func OpenPostgresSource(ctx context.Context, databaseURL, table string) (*PostgresSource, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolCfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	src := newPostgresSource(pool, table)
	src.pool = pool

	return src, nil
}

func newPostgresSource(db dbtx, table string) *PostgresSource {
	if table == "" {
		table = "dashboard_documents"
	}

	table = pgx.Identifier{table}.Sanitize()

	return &PostgresSource{
		db:    db,
		table: table,
		query: "SELECT doc FROM " + table + " WHERE kind = $1 AND year = $2",
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
	kind text NOT NULL,
	year integer NOT NULL,
	doc jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, year)
)`)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	return nil
}

// Store inserts or replaces a document. Metadata is stored with year 0.
func (s *PostgresSource) Store(ctx context.Context, kind string, year int, doc []byte) error {
	if !json.Valid(doc) {
		return fmt.Errorf("%w: %s year %d", ErrInvalidDocument, kind, year)
	}

	_, err := s.db.Exec(ctx, `INSERT INTO `+s.table+` (kind, year, doc) VALUES ($1, $2, $3)
ON CONFLICT (kind, year) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, kind, year, doc)
	if err != nil {
		return fmt.Errorf("failed to store %s document for %d: %w", kind, year, err)
	}

	return nil
}

// Close releases the pool.
func (s *PostgresSource) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Metrics loads the metrics document for year.
func (s *PostgresSource) Metrics(ctx context.Context, year int) (models.MetricsDocument, error) {
	raw, err := s.load(ctx, KindMetrics, year)
	if err != nil {
		return nil, err
	}

	return models.ParseMetricsDocument(raw)
}

// Metadata loads the metadata document.
func (s *PostgresSource) Metadata(ctx context.Context) (models.MetadataDocument, error) {
	raw, err := s.load(ctx, KindMetadata, 0)
	if err != nil {
		return nil, err
	}

	return models.ParseMetadataDocument(raw)
}

func (s *PostgresSource) load(ctx context.Context, kind string, year int) ([]byte, error) {
	var raw []byte

	err := s.db.QueryRow(ctx, s.query, kind, year).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s year %d", ErrDocumentNotFound, kind, year)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query %s document: %w", kind, err)
	}

	return raw, nil
}
