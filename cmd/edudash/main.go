// Package main provides the edudash command: build, preview, export and serve
// the education dashboard charts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"edudash/internal/chart"
	"edudash/internal/config"
	"edudash/internal/dashboard"
	"edudash/internal/export"
	"edudash/internal/fetcher"
	"edudash/internal/formatter"
	"edudash/internal/logger"
	"edudash/internal/normalizer"
	"edudash/internal/server"
	"edudash/internal/validator"
)

var (
	configPath string
	envFile    string
	year       int
	theme      string
	strictness string
	logLevel   string
	outputPath string
	xlsxPath   string
	pretty     bool
	chartName  string
	seedFrom   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edudash",
		Short: "Build chart configurations for the education dashboard",
		Long: `edudash loads a year's metrics document and the chart metadata,
normalizes every dataset and builds one chart configuration per dataset.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	pf.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	pf.IntVarP(&year, "year", "y", 0, "Dashboard year (default: dashboard.default_year)")
	pf.StringVarP(&theme, "theme", "t", "", "Dashboard theme (default: dashboard.default_theme)")
	pf.StringVar(&strictness, "strictness", "", "Missing value policy: lenient, warn, strict")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build every chart and write the snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE:  runBuild,
	}
	buildCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: output.path or stdout)")
	buildCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output (default: output.pretty_print)")

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Print every chart as a markdown table",
		Args:  cobra.NoArgs,
		RunE:  runPreview,
	}
	previewCmd.Flags().StringVar(&chartName, "chart", "", "Only preview the named chart")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the charts to an Excel workbook",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Workbook path (default: output.xlsx_path or dashboard_<year>.xlsx)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the chart metadata document",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the charts over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	yearsCmd := &cobra.Command{
		Use:   "years",
		Short: "List the available years and themes",
		Args:  cobra.NoArgs,
		RunE:  runYears,
	}

	normalizeCmd := &cobra.Command{
		Use:   "normalize [dataset]",
		Short: "Print a dataset's normalized records as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runNormalize,
	}

	verifyCmd := &cobra.Command{
		Use:   "verify [snapshot.json]",
		Short: "Check a built snapshot against its fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Copy the metadata and every year's metrics into PostgreSQL",
		Args:  cobra.NoArgs,
		RunE:  runSeed,
	}
	seedCmd.Flags().StringVar(&seedFrom, "from", config.SourceFile, "Source kind to read from: file or http")

	rootCmd.AddCommand(buildCmd, previewCmd, exportCmd, validateCmd, serveCmd, yearsCmd, normalizeCmd, verifyCmd, seedCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	src   fetcher.Source
	dash  *dashboard.Dashboard
	close func()
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	cfg.ApplyEnv()

	if strictness != "" {
		cfg.Charts.Strictness = strictness
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Logging.Level)

	policy, err := chart.ParseStrictness(cfg.Charts.Strictness)
	if err != nil {
		return nil, err
	}

	src, closeSource, err := fetcher.NewSource(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s source: %w", cfg.Source.Kind, err)
	}

	dash := dashboard.NewDashboard(cfg, src, chart.NewBuilder(chart.Options{Strictness: policy}), log)

	if theme != "" {
		if err := dash.SelectTheme(theme); err != nil {
			closeSource()
			return nil, err
		}
	}

	log.Debug("configuration loaded", "config", cfg.String())

	return &app{cfg: cfg, log: log, src: src, dash: dash, close: closeSource}, nil
}

// load builds the snapshot for the --year flag or the default year.
func (a *app) load(ctx context.Context) (*dashboard.Snapshot, error) {
	if year != 0 {
		return a.dash.SelectYear(ctx, year)
	}

	return a.dash.Load(ctx)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.load(ctx)
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = a.cfg.Output.Path
	}

	indent := a.cfg.Output.PrettyPrint
	if cmd.Flags().Changed("pretty") {
		indent = pretty
	}

	if path == "" {
		return export.EncodeJSON(cmd.OutOrStdout(), snap, indent)
	}

	if err := export.WriteJSON(path, snap, indent); err != nil {
		return err
	}

	a.log.Info("snapshot written", "path", path, "charts", len(snap.Charts), "errors", len(snap.Errors))

	return nil
}

func runPreview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.load(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# Dashboard %d (%s)\n\n", snap.Year, snap.Theme)

	for _, c := range snap.Charts {
		if chartName != "" && c.Name != chartName {
			continue
		}

		fmt.Fprintln(out, formatter.FormatChart(c.Name, c.Config))
	}

	for _, w := range snap.Warnings {
		fmt.Fprintf(out, "> warning: %s\n", w.String())
	}

	for _, e := range snap.Errors {
		fmt.Fprintf(out, "> error: %s\n", e.Error())
	}

	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	snap, err := a.load(ctx)
	if err != nil {
		return err
	}

	path := xlsxPath
	if path == "" {
		path = a.cfg.Output.XLSXPath
	}

	if path == "" {
		path = fmt.Sprintf("dashboard_%d.xlsx", snap.Year)
	}

	if err := export.WriteWorkbook(path, snap.Charts); err != nil {
		return err
	}

	a.log.Info("workbook written", "path", path, "sheets", len(snap.Charts))

	return nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := a.src.Metadata(ctx)
	if err != nil {
		return err
	}

	result := validator.NewMetadataValidator(a.cfg).Validate(doc)

	out := cmd.OutOrStdout()
	result.WriteReport(out)
	fmt.Fprintln(out, result.String())

	if !result.IsValid {
		return fmt.Errorf("metadata has %d errors", len(result.Errors))
	}

	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// requests load on demand if this fails
	if _, err := a.load(ctx); err != nil {
		a.log.Warn("initial load failed", "error", err)
	}

	return server.New(a.cfg, a.dash, a.log).Run(ctx)
}

func runYears(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, y := range cfg.Dashboard.AvailableYears {
		marker := " "
		if y == cfg.Dashboard.DefaultYear {
			marker = "*"
		}

		fmt.Fprintf(out, "%s %d\n", marker, y)
	}

	fmt.Fprintf(out, "themes: %s\n", strings.Join(cfg.Dashboard.Themes, ", "))

	return nil
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var ds *config.DatasetConfig

	for i := range a.cfg.Dashboard.Datasets {
		if a.cfg.Dashboard.Datasets[i].Name == args[0] {
			ds = &a.cfg.Dashboard.Datasets[i]
		}
	}

	if ds == nil {
		return fmt.Errorf("unknown dataset %q", args[0])
	}

	metaDoc, err := a.src.Metadata(ctx)
	if err != nil {
		return err
	}

	selected := a.cfg.Dashboard.DefaultYear
	if year != 0 {
		selected = year
	}

	metrics, err := a.src.Metrics(ctx, selected)
	if err != nil {
		return err
	}

	raw, ok := metrics.Lookup(ds.MetricsPath())
	if !ok {
		return fmt.Errorf("dataset %q not found at %q", ds.Name, ds.MetricsPath())
	}

	records, err := normalizer.NewProcessor().Process(raw, metaDoc[ds.MetaKey()])
	if err != nil {
		return err
	}

	return export.EncodeJSON(cmd.OutOrStdout(), records, true)
}

func runVerify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}

	var snap dashboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%s is not a snapshot: %w", args[0], err)
	}

	if _, err := dashboard.Verify(&snap); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: fingerprint OK (%d charts, year %d, generated %s)\n",
		args[0], len(snap.Charts), snap.Year, snap.Fingerprint.GeneratedAt.Format(time.RFC3339))

	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Source.DatabaseURL == "" {
		return errors.New("seed needs source.database_url or EDUDASH_DATABASE_URL")
	}

	log := logger.NewLogger(cfg.Logging.Level)

	readCfg := *cfg
	readCfg.Source.Kind = seedFrom

	src, closeSrc, err := fetcher.NewSource(ctx, &readCfg, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	dst, err := fetcher.OpenPostgresSource(ctx, cfg.Source.DatabaseURL, cfg.Source.Table)
	if err != nil {
		return err
	}
	defer dst.Close()

	result, err := fetcher.Seed(ctx, src, dst, cfg.Dashboard.AvailableYears, log)
	if err != nil {
		return err
	}

	log.Info("seed complete", "years", result.Years, "failed", len(result.Failed))

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d years could not be seeded", len(result.Failed))
	}

	return nil
}
