package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/funnelx/internal/db"
	"github.com/dtnitsch/funnelx/internal/extract"
	"github.com/dtnitsch/funnelx/pkg/help"
)

var version = "dev"

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("funnelx failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	dbFlags := []cli.Flag{
		&cli.StringFlag{Name: "output-dir", Value: extract.DefaultOutputDir, EnvVars: []string{"OUTPUT_DIR"}, Usage: "Directory holding the run ledger"},
	}

	return &cli.App{
		Name:    "funnelx",
		Usage:   "Export Embeddables funnel entries to normalized CSV files",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Fetch, normalize and partition entries for one or more funnels",
				Flags:  extract.Flags(),
				Action: extract.ExtractAction,
			},
			{
				Name:  "funnels",
				Usage: "List configured funnels",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "funnels-file", EnvVars: []string{"FUNNELS_FILE"}, Usage: "YAML file adding or replacing funnel definitions"},
				},
				Action: extract.FunnelsAction,
			},
			{
				Name:   "pages",
				Usage:  "Print the page progression catalog",
				Action: extract.PagesAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a YAML quick start guide",
				Action: func(c *cli.Context) error {
					fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return nil
				},
			},
			{
				Name:  "db",
				Usage: "Inspect the run ledger",
				Subcommands: []*cli.Command{
					{
						Name:  "runs",
						Usage: "List recent runs",
						Flags: append([]cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Number of runs to show"},
						}, dbFlags...),
						Action: db.RunsAction,
					},
					{
						Name:      "run",
						Usage:     "Show per-funnel results of a run (latest if omitted)",
						ArgsUsage: "[run-id]",
						Flags:     dbFlags,
						Action:    db.RunAction,
					},
				},
			},
		},
	}
}
