// Package config provides configuration management for the dashboard service.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YearPlaceholder is replaced by the selected year in metrics URLs.
const YearPlaceholder = "{year}"

// Configuration validation errors.
var (
	ErrMissingMetricsURL        = errors.New("dashboard.metrics_url is required")
	ErrMissingMetadataURL       = errors.New("dashboard.metadata_url is required")
	ErrNoYears                  = errors.New("dashboard.available_years must list at least one year")
	ErrDefaultYearUnavailable   = errors.New("dashboard.default_year must be one of available_years")
	ErrNoThemes                 = errors.New("dashboard.themes must list at least one theme")
	ErrDefaultThemeUnavailable  = errors.New("dashboard.default_theme must be one of themes")
	ErrNoDatasets               = errors.New("at least one dataset is required")
	ErrNoEnabledDatasets        = errors.New("at least one dataset must be enabled")
	ErrDatasetMissingName       = errors.New("dataset name is required")
	ErrDuplicateDataset         = errors.New("dataset name is duplicated")
	ErrInvalidSourceKind        = errors.New("source.kind must be one of: http, file, postgres")
	ErrMissingDatabaseURL       = errors.New("source.database_url is required for postgres")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidStrictness        = errors.New("charts.strictness must be one of: lenient, warn, strict")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Source kinds.
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config represents the complete dashboard configuration.
type Config struct {
	Dashboard DashboardConfig `yaml:"dashboard"`
	Source    SourceConfig    `yaml:"source"`
	Retry     RetryPolicy     `yaml:"retry"`
	Charts    ChartsConfig    `yaml:"charts"`
	Server    ServerConfig    `yaml:"server"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DashboardConfig describes where documents live and which datasets to chart.
type DashboardConfig struct {
	MetricsURL        string          `yaml:"metrics_url"`
	BackupMetricsURLs []string        `yaml:"backup_metrics_urls"`
	MetadataURL       string          `yaml:"metadata_url"`
	AvailableYears    []int           `yaml:"available_years"`
	DefaultYear       int             `yaml:"default_year"`
	Themes            []string        `yaml:"themes"`
	DefaultTheme      string          `yaml:"default_theme"`
	Datasets          []DatasetConfig `yaml:"datasets"`
}

// DatasetConfig names one chart on the dashboard.
type DatasetConfig struct {
	Name string `yaml:"name"`
	// Path is the dotted path into the metrics document; defaults to Name.
	Path string `yaml:"path"`
	// Meta is the key in the metadata document; defaults to Name.
	Meta    string `yaml:"meta"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled returns true unless the dataset is explicitly disabled.
func (d *DatasetConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// MetricsPath returns the dotted path of the dataset in the metrics document.
func (d *DatasetConfig) MetricsPath() string {
	if d.Path != "" {
		return d.Path
	}

	return d.Name
}

// MetaKey returns the dataset's key in the metadata document.
func (d *DatasetConfig) MetaKey() string {
	if d.Meta != "" {
		return d.Meta
	}

	return d.Name
}

// SourceConfig selects the backend the documents are loaded from.
type SourceConfig struct {
	Kind        string `yaml:"kind"`
	DatabaseURL string `yaml:"database_url"`
	Table       string `yaml:"table"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
	BufferSizeKb      int     `yaml:"buffer_size_kb"`
}

// ChartsConfig controls chart building.
type ChartsConfig struct {
	Strictness string `yaml:"strictness"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// OutputConfig defines where built charts are written.
type OutputConfig struct {
	Path        string `yaml:"path"`
	XLSXPath    string `yaml:"xlsx_path"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			MetricsURL:     "assets/config/dashboard_{year}.json",
			MetadataURL:    "assets/config/metadata.json",
			AvailableYears: []int{2023, 2024, 2025},
			DefaultYear:    2025,
			Themes:         []string{"light", "dark"},
			DefaultTheme:   "light",
			Datasets: []DatasetConfig{
				{Name: "courseProgress"},
				{Name: "districtRanking", Path: "districtRanking.districts"},
				{Name: "gradeBreakdown"},
				{Name: "passStats"},
				{Name: "assessmentCompletion"},
			},
		},
		Source: SourceConfig{Kind: SourceFile, Table: "dashboard_documents"},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
			BufferSizeKb:      1024,
		},
		Charts:  ChartsConfig{Strictness: "warn"},
		Server:  ServerConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
		Output:  OutputConfig{PrettyPrint: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig loads configuration from YAML file on top of Default.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from EDUDASH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EDUDASH_DATABASE_URL"); v != "" {
		c.Source.DatabaseURL = v
	}

	if v := os.Getenv("EDUDASH_SOURCE"); v != "" {
		c.Source.Kind = v
	}

	if v := os.Getenv("EDUDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("EDUDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	d := &c.Dashboard

	if c.Source.Kind != SourcePostgres {
		if d.MetricsURL == "" {
			return ErrMissingMetricsURL
		}

		if d.MetadataURL == "" {
			return ErrMissingMetadataURL
		}
	}

	if len(d.AvailableYears) == 0 {
		return ErrNoYears
	}

	if !slices.Contains(d.AvailableYears, d.DefaultYear) {
		return fmt.Errorf("%w: %d", ErrDefaultYearUnavailable, d.DefaultYear)
	}

	if len(d.Themes) == 0 {
		return ErrNoThemes
	}

	if !slices.Contains(d.Themes, d.DefaultTheme) {
		return fmt.Errorf("%w: %q", ErrDefaultThemeUnavailable, d.DefaultTheme)
	}

	if len(d.Datasets) == 0 {
		return ErrNoDatasets
	}

	seen := make(map[string]bool, len(d.Datasets))
	enabledCount := 0

	for i, ds := range d.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("%w: dataset[%d]", ErrDatasetMissingName, i)
		}

		if seen[ds.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateDataset, ds.Name)
		}

		seen[ds.Name] = true

		if ds.IsEnabled() {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledDatasets
	}

	switch c.Source.Kind {
	case SourceHTTP, SourceFile:
	case SourcePostgres:
		if c.Source.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSourceKind, c.Source.Kind)
	}

	// Validate retry policy
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	validStrictness := map[string]bool{"": true, "lenient": true, "warn": true, "strict": true}
	if !validStrictness[strings.ToLower(c.Charts.Strictness)] {
		return ErrInvalidStrictness
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetEnabledDatasets returns only enabled datasets.
func (c *Config) GetEnabledDatasets() []DatasetConfig {
	var enabled []DatasetConfig

	for _, ds := range c.Dashboard.Datasets {
		if ds.IsEnabled() {
			enabled = append(enabled, ds)
		}
	}

	return enabled
}

// HasYear reports whether year is selectable.
func (c *Config) HasYear(year int) bool {
	return slices.Contains(c.Dashboard.AvailableYears, year)
}

// HasTheme reports whether theme is selectable.
func (c *Config) HasTheme(theme string) bool {
	return slices.Contains(c.Dashboard.Themes, theme)
}

// GetMetricsURLs returns the primary and backup metrics locations for year.
func (c *Config) GetMetricsURLs(year int) []string {
	y := strconv.Itoa(year)

	urls := []string{strings.ReplaceAll(c.Dashboard.MetricsURL, YearPlaceholder, y)}
	for _, u := range c.Dashboard.BackupMetricsURLs {
		urls = append(urls, strings.ReplaceAll(u, YearPlaceholder, y))
	}

	return urls
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Source: %s, Datasets: %d, Years: %v, Strictness: %s}",
		c.Source.Kind,
		len(c.Dashboard.Datasets),
		c.Dashboard.AvailableYears,
		c.Charts.Strictness,
	)
}
