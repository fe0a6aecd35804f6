package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/db"
	"github.com/dtnitsch/funnelx/pkg/dropoff"
	"github.com/dtnitsch/funnelx/pkg/embeddables"
	"github.com/dtnitsch/funnelx/pkg/exclusion"
	"github.com/dtnitsch/funnelx/pkg/normalizer"
	"github.com/dtnitsch/funnelx/pkg/output"
	"github.com/dtnitsch/funnelx/pkg/summary"
)

// Fetcher pages through the entries of one embeddable.
type Fetcher interface {
	FetchAll(ctx context.Context, req embeddables.FetchRequest) embeddables.FetchResult
}

// Orchestrator drives funnels from fetch to written files.
type Orchestrator struct {
	Fetcher    Fetcher
	Normalizer *normalizer.Normalizer
	Registry   *Registry
	Writer     *output.Writer
	Exclusions exclusion.Set
	Ledger     *db.DB // optional
	Workers    int    // funnels processed at once; <= 1 is sequential
	Logger     *slog.Logger
	Out        io.Writer // progress lines; nil discards
	Now        func() time.Time

	outMu sync.Mutex
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func (o *Orchestrator) printf(format string, args ...interface{}) {
	if o.Out == nil {
		return
	}
	o.outMu.Lock()
	defer o.outMu.Unlock()
	fmt.Fprintf(o.Out, format, args...)
}

func (o *Orchestrator) printDropoff(buckets []dropoff.Bucket, n int) {
	var sb strings.Builder
	dropoff.Print(&sb, buckets, n)
	o.printf("%s", sb.String())
}

// Run extracts the single funnel named by opts.FunnelKey.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*FunnelReport, error) {
	f, err := o.Registry.Get(opts.FunnelKey)
	if err != nil {
		return nil, err
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = o.now()
	}
	report := o.safeRunFunnel(ctx, f, opts)
	return &report, report.Err
}

// RunAll extracts every selected funnel. A failing funnel is logged and
// recorded in its report; it never stops the others. The only error is an
// invalid selection.
func (o *Orchestrator) RunAll(ctx context.Context, opts RunOptions) ([]FunnelReport, error) {
	funnels, err := o.Registry.Select(opts.Funnels)
	if err != nil {
		return nil, err
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = o.now()
	}

	workers := o.Workers
	if workers < 1 {
		workers = 1
	}

	reports := make([]FunnelReport, len(funnels))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, f := range funnels {
		g.Go(func() error {
			reports[i] = o.safeRunFunnel(ctx, f, opts)
			return nil
		})
	}
	_ = g.Wait()

	for i := range reports {
		if reports[i].Failed() {
			o.logger().Error("Funnel extraction failed", "funnel", reports[i].Funnel.Key, "error", reports[i].errorString())
		}
	}
	return reports, nil
}

// Execute runs the selected funnels as one recorded run: it opens a ledger
// row, runs every funnel, updates the run index and closes the ledger row.
func (o *Orchestrator) Execute(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.RunID == "" {
		opts.RunID = db.NewRunID()
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = o.now()
	}
	selection := strings.Join(opts.Funnels, ",")
	if selection == "" {
		selection = models.FunnelAll
	}

	if o.Ledger != nil {
		run := &db.Run{
			RunID:           opts.RunID,
			StartedAt:       opts.Stamp,
			FunnelSelection: selection,
			CheckoutOnly:    opts.CheckoutOnly,
			MaxRecords:      opts.MaxRecords,
			DateFrom:        opts.Window.From,
			DateTo:          opts.Window.To,
		}
		if err := o.Ledger.CreateRun(run); err != nil {
			o.logger().Warn("Failed to record run start", "run_id", opts.RunID, "error", err)
		}
	}

	o.printf("Starting extraction %s (funnels: %s, limit %d per funnel)\n", opts.RunID, selection, opts.MaxRecords)
	if !opts.Window.IsZero() {
		o.printf("Date range: %s to %s\n", orDefault(opts.Window.From, "beginning"), orDefault(opts.Window.To, "now"))
	}

	reports, err := o.RunAll(ctx, opts)
	if err != nil {
		o.finishRun(opts.RunID, db.StatusFailed)
		return nil, err
	}

	result := &RunResult{RunID: opts.RunID, Reports: reports}
	result.Status = runStatus(reports)

	var perFunnel []map[string]int
	info := summary.RunInfo{RunID: opts.RunID, Started: opts.Stamp}
	for i := range reports {
		r := &reports[i]
		info.Funnels = append(info.Funnels, r.Funnel.Key)
		info.Complete += r.Counts.Complete
		info.Partial += r.Counts.Partial
		if r.Failed() {
			info.Failed = append(info.Failed, r.Funnel.Key)
		}
		if r.pageCounts != nil {
			perFunnel = append(perFunnel, r.pageCounts)
		}
	}
	if len(perFunnel) > 1 && o.Normalizer != nil {
		result.Dropoff = dropoff.Distribution(dropoff.Reduce(perFunnel), o.Normalizer.Catalog())
	}

	if err := summary.UpdateIndex(o.Writer.Dir, info); err != nil {
		o.logger().Warn("Failed to update run index", "error", err)
	}
	o.finishRun(opts.RunID, result.Status)

	o.printf("\nExtraction complete: %d complete, %d partial", info.Complete, info.Partial)
	if len(info.Failed) > 0 {
		o.printf(", failed funnels: %s", strings.Join(info.Failed, ", "))
	}
	o.printf("\nFiles saved to: %s\n", o.Writer.Dir)
	if len(result.Dropoff) > 0 {
		o.printf("\nCombined drop-off across funnels:\n")
		o.printDropoff(result.Dropoff, 10)
	}
	return result, nil
}

func (o *Orchestrator) finishRun(runID, status string) {
	if o.Ledger == nil {
		return
	}
	if err := o.Ledger.FinishRun(runID, status, o.now()); err != nil {
		o.logger().Warn("Failed to record run end", "run_id", runID, "error", err)
	}
}

func runStatus(reports []FunnelReport) string {
	failed := 0
	for i := range reports {
		if reports[i].Failed() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return db.StatusSucceeded
	case failed == len(reports):
		return db.StatusFailed
	default:
		return db.StatusPartial
	}
}

// runFunnel never returns an error; failures land in the report.
// safeRunFunnel turns a panic inside one funnel into that funnel's error.
func (o *Orchestrator) safeRunFunnel(ctx context.Context, f models.FunnelDefinition, opts RunOptions) (report FunnelReport) {
	defer func() {
		if r := recover(); r != nil {
			o.logger().Error("Funnel extraction panicked", "funnel", f.Key, "panic", r)
			report = FunnelReport{
				Funnel:   f,
				Started:  o.now(),
				Finished: o.now(),
				Err:      fmt.Errorf("funnel %s panicked: %v", f.Key, r),
			}
		}
	}()
	return o.runFunnel(ctx, f, opts)
}

func (o *Orchestrator) runFunnel(ctx context.Context, f models.FunnelDefinition, opts RunOptions) FunnelReport {
	logger := o.logger().With("funnel", f.Key)
	report := FunnelReport{Funnel: f, Started: o.now()}

	o.printf("\n[%s] Extracting %s funnel (embeddable %s)\n", f.Key, f.Name, f.EmbeddableID)
	if opts.CheckoutOnly {
		o.printf("[%s] Filtering for checkout completions only\n", f.Key)
	}

	res := o.Fetcher.FetchAll(ctx, embeddables.FetchRequest{
		EmbeddableID: f.EmbeddableID,
		MaxRecords:   opts.MaxRecords,
		Window:       opts.Window,
	})
	report.APICalls = res.Calls
	report.Stop = res.Stop
	report.FetchErr = res.Err
	report.Counts.Fetched = len(res.Entries)
	o.printf("[%s] Fetched %d entries across %d API calls (%s)\n", f.Key, len(res.Entries), res.Calls, res.Stop)
	if res.Err != nil {
		logger.Warn("Pagination ended early, writing partial results", "fetched", len(res.Entries), "error", res.Err)
	}

	all, complete, partial := o.partition(&report, res.Entries, opts.CheckoutOnly)
	if report.Counts.Excluded > 0 {
		o.printf("[%s] Filtered %d test entries\n", f.Key, report.Counts.Excluded)
	}
	if report.Counts.Duplicates > 0 {
		logger.Warn("Dropped duplicate entries", "count", report.Counts.Duplicates)
	}

	report.Files, report.Err = o.writePartitions(f.Key, opts, all, complete, partial)
	if report.Err != nil {
		logger.Error("Failed to write output", "error", report.Err)
	}

	report.pageCounts = dropoff.Map(all)
	report.Dropoff = dropoff.Distribution(report.pageCounts, o.Normalizer.Catalog())
	if !opts.CheckoutOnly && len(all) > 0 {
		o.printf("\n[%s] Funnel drop-off analysis:\n", f.Key)
		o.printDropoff(report.Dropoff, 0)
	}

	report.Finished = o.now()
	path, err := summary.Write(o.Writer.Dir, opts.Stamp, report.Summary(opts.RunID, opts))
	if err != nil {
		logger.Warn("Failed to write summary", "error", err)
	} else {
		report.SummaryPath = path
	}

	if o.Ledger != nil && opts.RunID != "" {
		if err := o.Ledger.InsertFunnelRun(report.LedgerRow(opts.RunID)); err != nil {
			logger.Warn("Failed to record funnel run", "error", err)
		}
	}
	return report
}

func (o *Orchestrator) writePartitions(key string, opts RunOptions, all, complete, partial []models.NormalizedRow) ([]output.FileStats, error) {
	targets := []struct {
		p    output.Partition
		rows []models.NormalizedRow
	}{
		{output.PartitionAll, all},
		{output.PartitionComplete, complete},
		{output.PartitionPartial, partial},
	}
	if opts.CheckoutOnly {
		targets = targets[1:2]
	}

	var files []output.FileStats
	for _, t := range targets {
		stats, err := o.Writer.WritePartition(key, opts.Stamp, t.p, t.rows)
		if err != nil {
			return files, fmt.Errorf("failed to write %s partition: %w", t.p, err)
		}
		files = append(files, *stats)
		o.printf("[%s] Exported %d %s entries to %s\n", key, stats.Rows, t.p, stats.Path)
	}
	return files, nil
}

// partition filters and normalizes entries. all holds every surviving row
// (only complete rows when checkoutOnly), split into complete and partial by
// whether the furthest page is the terminal page.
func (o *Orchestrator) partition(report *FunnelReport, entries []models.RawEntry, checkoutOnly bool) (all, complete, partial []models.NormalizedRow) {
	catalog := o.Normalizer.Catalog()
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		if o.Exclusions.Contains(e.EntryID) {
			report.Counts.Excluded++
			continue
		}
		if seen[e.EntryID] {
			report.Counts.Duplicates++
			continue
		}
		seen[e.EntryID] = true

		row := o.Normalizer.Normalize(e, report.Funnel.FormSource)
		report.Counts.Normalized++

		isComplete := catalog.IsComplete(row.Furthest)
		if checkoutOnly && !isComplete {
			continue
		}
		all = append(all, row)
		if isComplete {
			complete = append(complete, row)
		} else {
			partial = append(partial, row)
		}
	}

	report.Counts.Complete = len(complete)
	report.Counts.Partial = len(partial)
	return all, complete, partial
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
