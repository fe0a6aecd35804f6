package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/funnelx/internal/common"
	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/caching"
	"github.com/dtnitsch/funnelx/pkg/db"
	"github.com/dtnitsch/funnelx/pkg/embeddables"
	"github.com/dtnitsch/funnelx/pkg/exclusion"
	"github.com/dtnitsch/funnelx/pkg/format"
	"github.com/dtnitsch/funnelx/pkg/normalizer"
	"github.com/dtnitsch/funnelx/pkg/output"
	"github.com/dtnitsch/funnelx/pkg/progression"
	"github.com/dtnitsch/funnelx/pkg/summary"
)

// Defaults shared by flags and tests.
const (
	DefaultOutputDir  = "funnelx-output"
	DefaultMaxRecords = 10000
)

// Flags are the options of the extract command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "funnel", Value: models.FunnelAll, Usage: "Funnel key, comma separated keys, or 'all'"},
		&cli.IntFlag{Name: "limit", Value: DefaultMaxRecords, Usage: "Maximum entries to fetch per funnel"},
		&cli.StringFlag{Name: "date-from", Usage: "Only entries updated after this ISO-8601 time (e.g. 2025-08-01T00:00:00Z)"},
		&cli.StringFlag{Name: "date-to", Usage: "Only entries updated before this ISO-8601 time"},
		&cli.BoolFlag{Name: "checkout-only", Usage: "Only export entries that reached the checkout page"},
		&cli.StringFlag{Name: "api-key", EnvVars: []string{"EMBEDDABLES_API_KEY"}, Usage: "Embeddables API key"},
		&cli.StringFlag{Name: "project-id", EnvVars: []string{"EMBEDDABLES_PROJECT_ID"}, Usage: "Embeddables project ID"},
		&cli.StringFlag{Name: "base-url", Value: embeddables.DefaultBaseURL, EnvVars: []string{"EMBEDDABLES_BASE_URL"}, Usage: "API root"},
		&cli.StringFlag{Name: "output-dir", Value: DefaultOutputDir, EnvVars: []string{"OUTPUT_DIR"}, Usage: "Directory for CSV files, summaries and the run ledger"},
		&cli.StringFlag{Name: "exclusions", EnvVars: []string{"TEST_EXCLUSIONS_FILE"}, Usage: "File of test entry ids to drop, one per line"},
		&cli.StringFlag{Name: "funnels-file", EnvVars: []string{"FUNNELS_FILE"}, Usage: "YAML file adding or replacing funnel definitions"},
		&cli.IntFlag{Name: "workers", Value: 1, Usage: "Funnels extracted concurrently"},
		&cli.DurationFlag{Name: "request-delay", Value: embeddables.DefaultRequestDelay, Usage: "Pause between API calls"},
		&cli.DurationFlag{Name: "cache-ttl", Usage: "Reuse raw API batches younger than this (0 disables)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
		&cli.BoolFlag{Name: "verbose", Usage: "Log debug details"},
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// configFromFlags collects and validates the extract options.
func configFromFlags(c *cli.Context) (*models.ExtractConfig, error) {
	cfg := &models.ExtractConfig{
		APIKey:         c.String("api-key"),
		ProjectID:      c.String("project-id"),
		BaseURL:        c.String("base-url"),
		OutputDir:      c.String("output-dir"),
		ExclusionsFile: c.String("exclusions"),
		FunnelsFile:    c.String("funnels-file"),
		Funnel:         c.String("funnel"),
		MaxRecords:     c.Int("limit"),
		Window:         models.TimeWindow{From: c.String("date-from"), To: c.String("date-to")},
		CheckoutOnly:   c.Bool("checkout-only"),
		WorkerCount:    c.Int("workers"),
		RequestDelay:   c.Duration("request-delay"),
		CacheTTL:       c.Duration("cache-ttl"),
	}

	if cfg.APIKey == "" || cfg.ProjectID == "" {
		return nil, fmt.Errorf("%w: set --api-key/--project-id or EMBEDDABLES_API_KEY/EMBEDDABLES_PROJECT_ID (a .env file is read)", embeddables.ErrMissingCredentials)
	}
	if cfg.MaxRecords <= 0 {
		return nil, fmt.Errorf("--limit must be positive, got %d", cfg.MaxRecords)
	}
	for name, v := range map[string]string{"date-from": cfg.Window.From, "date-to": cfg.Window.To} {
		if v == "" {
			continue
		}
		if _, ok := format.ParseTime(v); !ok {
			return nil, fmt.Errorf("--%s %q is not an ISO-8601 timestamp", name, v)
		}
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.RequestDelay == 0 {
		// zero on the command line means no delay; the client reads zero as default
		cfg.RequestDelay = -1
	}
	return cfg, nil
}

// loadRegistry merges the defaults, environment overrides and the optional
// funnels file.
func loadRegistry(funnelsFile string) (*Registry, error) {
	defs := DefaultsFromEnv(os.Getenv)
	if funnelsFile != "" {
		extra, err := LoadFunnelsFile(funnelsFile)
		if err != nil {
			return nil, err
		}
		defs = append(defs, extra...)
	}
	return NewRegistry(defs...)
}

func loadExclusions(logger *slog.Logger, path string) exclusion.Set {
	set, err := exclusion.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("Test exclusion file not found, no test filtering will be applied", "path", path)
	case err != nil:
		logger.Error("Failed to load test exclusion file", "path", path, "error", err)
	default:
		logger.Info("Loaded test entry exclusions", "count", set.Len(), "path", path)
	}
	return set
}

func ExtractAction(c *cli.Context) error {
	logger := newLogger(c)

	cfg, err := configFromFlags(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	registry, err := loadRegistry(cfg.FunnelsFile)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	selected := common.SplitList(cfg.Funnel)
	if _, err := registry.Select(selected); err != nil {
		return cli.Exit(err.Error(), 2)
	}

	var cache *caching.Cache
	if cfg.CacheTTL > 0 {
		cache, err = caching.NewCache(filepath.Join(cfg.OutputDir, ".cache"), cfg.CacheTTL)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to initialize cache: %v", err), 2)
		}
		if removed, err := cache.Prune(); err != nil {
			logger.Warn("Failed to prune cache", "error", err)
		} else if removed > 0 {
			logger.Info("Pruned expired cache entries", "count", removed)
		}
	}

	client, err := embeddables.NewClient(embeddables.Config{
		APIKey:       cfg.APIKey,
		ProjectID:    cfg.ProjectID,
		BaseURL:      cfg.BaseURL,
		RequestDelay: cfg.RequestDelay,
		Cache:        cache,
		Logger:       logger,
	})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	writer := &output.Writer{Dir: cfg.OutputDir}
	if err := summary.GenerateColumnsReference(cfg.OutputDir); err != nil {
		logger.Warn("Failed to write column reference", "error", err)
	}

	ledger, err := db.Open(cfg.OutputDir)
	if err != nil {
		logger.Warn("Run ledger unavailable, continuing without it", "error", err)
		ledger = nil
	} else {
		defer ledger.Close()
	}

	orch := &Orchestrator{
		Fetcher:    client,
		Normalizer: normalizer.New(progression.Default(), logger),
		Registry:   registry,
		Writer:     writer,
		Exclusions: loadExclusions(logger, cfg.ExclusionsFile),
		Ledger:     ledger,
		Workers:    cfg.WorkerCount,
		Logger:     logger,
		Out:        c.App.Writer,
	}

	result, err := orch.Execute(c.Context, RunOptions{
		Funnels:      selected,
		MaxRecords:   cfg.MaxRecords,
		Window:       cfg.Window,
		CheckoutOnly: cfg.CheckoutOnly,
	})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if failed := result.Failed(); len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d funnel(s) failed: %s (run %s)", len(failed), strings.Join(failed, ", "), result.RunID), 1)
	}
	return nil
}

// FunnelsAction lists the configured funnels.
func FunnelsAction(c *cli.Context) error {
	registry, err := loadRegistry(c.String("funnels-file"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%-18s %-34s %-18s %s\n", "Key", "Embeddable ID", "Name", "Form Source")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, f := range registry.All() {
		fmt.Fprintf(w, "%-18s %-34s %-18s %s\n", f.Key, f.EmbeddableID, f.Name, f.FormSource)
	}
	fmt.Fprintf(w, "\nOverride ids with %s or --funnels-file\n", strings.Join(sortedEnvNames(), ", "))
	return nil
}

// PagesAction prints the page-progression catalog.
func PagesAction(c *cli.Context) error {
	printPages(c.App.Writer, progression.Default())
	return nil
}

func printPages(w io.Writer, catalog *progression.Catalog) {
	fmt.Fprintf(w, "%-5s %-16s %-30s %s\n", "Index", "ID", "Key", "Required Fields")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, p := range catalog.Pages() {
		fmt.Fprintf(w, "%-5d %-16s %-30s %s\n", p.Index, p.ID, p.Key, strings.Join(p.RequiredFields, ", "))
	}
	fmt.Fprintf(w, "\nTerminal page: %s\n", catalog.Terminal().Key)
}
