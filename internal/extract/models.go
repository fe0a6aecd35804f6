package extract

import (
	"time"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/db"
	"github.com/dtnitsch/funnelx/pkg/dropoff"
	"github.com/dtnitsch/funnelx/pkg/embeddables"
	"github.com/dtnitsch/funnelx/pkg/output"
	"github.com/dtnitsch/funnelx/pkg/summary"
)

// RunOptions select what a run extracts.
type RunOptions struct {
	RunID        string
	FunnelKey    string   // Run only
	Funnels      []string // RunAll and Execute; empty or "all" selects every funnel
	MaxRecords   int
	Window       models.TimeWindow
	CheckoutOnly bool
	Stamp        time.Time // file name timestamp; zero uses the current time
}

// FunnelReport is the outcome of one funnel.
type FunnelReport struct {
	Funnel   models.FunnelDefinition
	Started  time.Time
	Finished time.Time

	Counts   summary.Counts
	APICalls int
	Stop     embeddables.StopReason
	FetchErr error // pagination ended early; output holds what was fetched
	Err      error // the funnel produced no output

	Files       []output.FileStats
	SummaryPath string
	Dropoff     []dropoff.Bucket
	pageCounts  map[string]int
}

// Failed reports whether the funnel hit any error.
func (r *FunnelReport) Failed() bool {
	return r.Err != nil || r.FetchErr != nil
}

func (r *FunnelReport) errorString() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.FetchErr != nil:
		return r.FetchErr.Error()
	default:
		return ""
	}
}

func (r *FunnelReport) file(p output.Partition) output.FileStats {
	for _, f := range r.Files {
		if f.Partition == p {
			return f
		}
	}
	return output.FileStats{}
}

// Summary converts the report for the summary YAML.
func (r *FunnelReport) Summary(runID string, opts RunOptions) *summary.FunnelSummary {
	return &summary.FunnelSummary{
		RunID:        runID,
		FunnelKey:    r.Funnel.Key,
		FunnelName:   r.Funnel.Name,
		EmbeddableID: r.Funnel.EmbeddableID,
		Started:      r.Started,
		Finished:     r.Finished,
		CheckoutOnly: opts.CheckoutOnly,
		Window:       opts.Window,
		Counts:       r.Counts,
		APICalls:     r.APICalls,
		StopReason:   string(r.Stop),
		Error:        r.errorString(),
		Files:        r.Files,
		Dropoff:      r.Dropoff,
	}
}

// LedgerRow converts the report for the run ledger.
func (r *FunnelReport) LedgerRow(runID string) db.FunnelRun {
	all := r.file(output.PartitionAll)
	complete := r.file(output.PartitionComplete)
	partial := r.file(output.PartitionPartial)
	return db.FunnelRun{
		RunID:        runID,
		FunnelKey:    r.Funnel.Key,
		EmbeddableID: r.Funnel.EmbeddableID,
		Fetched:      r.Counts.Fetched,
		Excluded:     r.Counts.Excluded,
		Duplicates:   r.Counts.Duplicates,
		Complete:     r.Counts.Complete,
		Partial:      r.Counts.Partial,
		APICalls:     r.APICalls,
		StopReason:   string(r.Stop),
		Error:        r.errorString(),
		AllPath:      all.Path,
		AllHash:      all.Hash,
		CompletePath: complete.Path,
		CompleteHash: complete.Hash,
		PartialPath:  partial.Path,
		PartialHash:  partial.Hash,
		SummaryPath:  r.SummaryPath,
	}
}

// RunResult is the outcome of Execute.
type RunResult struct {
	RunID   string
	Status  string
	Reports []FunnelReport
	Dropoff []dropoff.Bucket // across all funnels
}

// Failed lists the keys of funnels that hit an error.
func (r *RunResult) Failed() []string {
	var keys []string
	for i := range r.Reports {
		if r.Reports[i].Failed() {
			keys = append(keys, r.Reports[i].Funnel.Key)
		}
	}
	return keys
}
