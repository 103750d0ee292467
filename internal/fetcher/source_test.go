package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"edudash/internal/config"
	"edudash/internal/logger"
	"edudash/internal/models"
)

func TestDocumentSource_MetricsFallsBackToBackup(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer primary.Close()

	backup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dashboard_2024.json" {
			t.Errorf("path = %s, want /dashboard_2024.json", r.URL.Path)
		}

		w.Write([]byte(`{"courseProgress":[{"course":"Math","progress":70}]}`))
	}))
	defer backup.Close()

	cfg := config.Default()
	cfg.Dashboard.MetricsURL = primary.URL + "/dashboard_{year}.json"
	cfg.Dashboard.BackupMetricsURLs = []string{backup.URL + "/dashboard_{year}.json"}

	src := NewDocumentSourceWithDeps(cfg, NewScraperWithConfig(fastRetry()), logger.Discard())

	doc, err := src.Metrics(context.Background(), 2024)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}

	if _, ok := doc.Lookup("courseProgress"); !ok {
		t.Error("courseProgress missing from metrics document")
	}
}

func TestDocumentSource_AllLocationsFail(t *testing.T) {
	cfg := config.Default()
	cfg.Dashboard.MetricsURL = filepath.Join(t.TempDir(), "dashboard_{year}.json")

	src := NewDocumentSource(cfg, logger.Discard())

	_, err := src.Metrics(context.Background(), 2025)
	if !errors.Is(err, ErrAllLocationsFailed) {
		t.Errorf("err = %v, want ErrAllLocationsFailed", err)
	}
}

func TestDocumentSource_Metadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")

	content := `{"passStats": {"chartType": "donut", "seriesKey": "value", "labelKey": "label",
		"dataFlds": [{"key": "passed", "label": "Passed"}]}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Dashboard.MetadataURL = path

	doc, err := NewDocumentSource(cfg, logger.Discard()).Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}

	meta := doc["passStats"]
	if meta == nil || meta.ChartType != models.ChartTypeDonut || len(meta.DataFlds) != 1 {
		t.Errorf("passStats = %+v", meta)
	}
}

func TestDocumentSource_MetadataInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	cfg := config.Default()
	cfg.Dashboard.MetadataURL = path

	if _, err := NewDocumentSource(cfg, logger.Discard()).Metadata(context.Background()); err == nil {
		t.Error("Metadata with invalid JSON succeeded, want error")
	}
}

func TestLocationManager(t *testing.T) {
	lm := NewLocationManager([]string{"a", "b"})

	first, _ := lm.Next()
	lm.RecordAttempt(first, errors.New("boom"), time.Millisecond)

	second, _ := lm.Next()
	lm.RecordAttempt(second, nil, time.Millisecond)

	if first != "a" || second != "b" {
		t.Errorf("order = %s, %s", first, second)
	}

	if _, err := lm.Next(); !errors.Is(err, ErrAllLocationsFailed) {
		t.Errorf("err = %v, want ErrAllLocationsFailed", err)
	}

	attempts := lm.Attempts()
	if len(attempts) != 2 || attempts[0].Success || !attempts[1].Success {
		t.Errorf("attempts = %+v", attempts)
	}

	if _, err := NewLocationManager(nil).Next(); !errors.Is(err, ErrNoLocations) {
		t.Errorf("err = %v, want ErrNoLocations", err)
	}
}

type fakeRow struct {
	doc string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	raw := dest[0].(*[]byte)
	*raw = []byte(r.doc)

	return nil
}

type fakeQuerier struct {
	rows  map[string]fakeRow
	query string
	execs []string
	args  [][]any
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	q.args = append(q.args, args)

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.query = sql

	row, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}

	return row
}

func TestPostgresSource(t *testing.T) {
	q := &fakeQuerier{rows: map[string]fakeRow{
		KindMetrics: {doc: `{"passStats":{"passed":10,"failed":2}}`},
	}}

	src := newPostgresSource(q, "")

	doc, err := src.Metrics(context.Background(), 2024)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}

	if _, ok := doc.Lookup("passStats.passed"); !ok {
		t.Error("passStats.passed missing")
	}

	if q.query != `SELECT doc FROM "dashboard_documents" WHERE kind = $1 AND year = $2` {
		t.Errorf("query = %s", q.query)
	}

	if _, err := src.Metadata(context.Background()); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Metadata err = %v, want ErrDocumentNotFound", err)
	}
}

func TestPostgresSource_Store(t *testing.T) {
	q := &fakeQuerier{}
	src := newPostgresSource(q, "docs")
	ctx := context.Background()

	if err := src.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if err := src.Store(ctx, KindMetrics, 2025, []byte(`{"passStats":{}}`)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if err := src.Store(ctx, KindMetadata, 0, []byte(`{broken`)); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Store(invalid) err = %v, want ErrInvalidDocument", err)
	}

	if len(q.execs) != 2 {
		t.Fatalf("execs = %d, want 2", len(q.execs))
	}

	if !strings.HasPrefix(q.execs[0], `CREATE TABLE IF NOT EXISTS "docs"`) {
		t.Errorf("schema statement = %s", q.execs[0])
	}

	if !strings.HasPrefix(q.execs[1], `INSERT INTO "docs"`) || q.args[1][0] != KindMetrics || q.args[1][1] != 2025 {
		t.Errorf("store statement = %s %v", q.execs[1], q.args[1])
	}
}

func TestSeed(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"metadata.json":       `{"passStats":{"chartType":"pie","seriesKey":"value","labelKey":"label"}}`,
		"dashboard_2024.json": `{"passStats":{"passed":10,"failed":2}}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Dashboard.MetricsURL = filepath.Join(dir, "dashboard_{year}.json")
	cfg.Dashboard.MetadataURL = filepath.Join(dir, "metadata.json")

	q := &fakeQuerier{}

	result, err := Seed(context.Background(), NewDocumentSource(cfg, logger.Discard()), newPostgresSource(q, ""), []int{2024, 2025}, logger.Discard())
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if !result.Metadata || len(result.Years) != 1 || result.Years[0] != 2024 {
		t.Errorf("result = %+v", result)
	}

	if _, ok := result.Failed[2025]; !ok {
		t.Error("missing 2025 document not reported")
	}

	// schema, metadata, 2024 metrics
	if len(q.execs) != 3 {
		t.Errorf("execs = %d, want 3", len(q.execs))
	}
}
