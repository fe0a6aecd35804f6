package db

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/funnelx/pkg/db"
)

func RunsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("output-dir"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-20s %-10s %-8s %-22s %s\n",
		"Run ID", "Started", "Status", "Limit", "Window", "Funnels")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		fmt.Fprintf(w, "%-36s %-20s %-10s %-8d %-22s %s\n",
			r.RunID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.MaxRecords,
			window(r),
			r.FunnelSelection,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'funnelx db run <run-id>' to see details\n")
	return nil
}

// RunAction shows the funnels of one run, the latest when no id is given
func RunAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("output-dir"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runID, err := runIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	funnels, err := database.GetFunnelRuns(runID)
	if err != nil {
		return err
	}

	printRun(c.App.Writer, run, funnels)
	return nil
}

func printRun(w io.Writer, run *dbpkg.Run, funnels []dbpkg.FunnelRun) {
	fmt.Fprintf(w, "Run %s\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Started:       %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt.Valid {
		fmt.Fprintf(w, "Finished:      %s\n", run.FinishedAt.Time.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Status:        %s\n", run.Status)
	fmt.Fprintf(w, "Funnels:       %s\n", run.FunnelSelection)
	fmt.Fprintf(w, "Limit:         %d per funnel\n", run.MaxRecords)
	fmt.Fprintf(w, "Window:        %s\n", window(*run))
	fmt.Fprintf(w, "Checkout only: %t\n", run.CheckoutOnly)

	fmt.Fprintf(w, "\nFunnels (%d):\n", len(funnels))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, f := range funnels {
		fmt.Fprintf(w, "%2d. %s (%s)\n", i+1, f.FunnelKey, f.EmbeddableID)
		fmt.Fprintf(w, "    Fetched: %d | Excluded: %d | Complete: %d | Partial: %d | API calls: %d | Stop: %s\n",
			f.Fetched, f.Excluded, f.Complete, f.Partial, f.APICalls, f.StopReason)
		if f.Error != "" {
			fmt.Fprintf(w, "    Error: %s\n", f.Error)
		}
		for _, p := range []struct{ name, path string }{
			{"all", f.AllPath}, {"complete", f.CompletePath}, {"partial", f.PartialPath}, {"summary", f.SummaryPath},
		} {
			if p.path != "" {
				fmt.Fprintf(w, "    %-9s %s\n", p.name+":", p.path)
			}
		}
	}
}

func window(r dbpkg.Run) string {
	if r.DateFrom == "" && r.DateTo == "" {
		return "-"
	}
	from, to := r.DateFrom, r.DateTo
	if from == "" {
		from = "beginning"
	}
	if to == "" {
		to = "now"
	}
	return from + ".." + to
}

// runIDOrLatest returns the run id from args, or the latest run if not provided
func runIDOrLatest(c *cli.Context, database *dbpkg.DB) (string, error) {
	if c.NArg() > 0 {
		return c.Args().First(), nil
	}
	runID, err := database.LatestRunID()
	if errors.Is(err, dbpkg.ErrRunNotFound) {
		return "", fmt.Errorf("no runs found. Run 'funnelx extract' first")
	}
	return runID, err
}
