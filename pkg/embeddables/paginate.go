package embeddables

import (
	"context"
	"time"

	"github.com/dtnitsch/funnelx/models"
	"github.com/dtnitsch/funnelx/pkg/format"
)

// StopReason records why pagination ended.
type StopReason string

const (
	StopExhausted     StopReason = "exhausted"      // short or empty batch
	StopNoNewEntries  StopReason = "no_new_entries" // batch repeated ids only
	StopCursorStalled StopReason = "cursor_stalled" // oldest timestamp did not move
	StopLimitReached  StopReason = "limit_reached"
	StopAborted       StopReason = "aborted" // request failed, Err is set
)

// FetchRequest selects the entries to fetch.
type FetchRequest struct {
	EmbeddableID string // empty keeps every entry in the project
	MaxRecords   int    // <= 0 means no limit
	BatchSize    int    // <= 0 or above MaxBatchSize uses MaxBatchSize
	Window       models.TimeWindow
}

// FetchResult is the outcome of FetchAll. Entries holds everything gathered
// before pagination stopped, even when Err is set.
type FetchResult struct {
	Entries []models.RawEntry
	Calls   int
	Stop    StopReason
	Err     error
}

// FetchAll pages backwards through the entries endpoint using the oldest
// created_at of each batch as the next cursor. Entries are deduplicated by
// id across batches. A failed request ends pagination and is reported in
// FetchResult.Err; whatever was accumulated is still returned.
func (c *Client) FetchAll(ctx context.Context, req FetchRequest) FetchResult {
	batchSize := MaxBatchSize
	if req.BatchSize > 0 && req.BatchSize < batchSize {
		batchSize = req.BatchSize
	}
	// With an embeddable filter most raw entries may be dropped, so the
	// batch stays full and MaxRecords only truncates.
	if req.EmbeddableID == "" && req.MaxRecords > 0 && req.MaxRecords < batchSize {
		batchSize = req.MaxRecords
	}

	params := BatchParams{
		Limit:         batchSize,
		UpdatedAfter:  req.Window.From,
		UpdatedBefore: req.Window.To,
	}

	var res FetchResult
	seen := make(map[string]bool)
	cursor := ""
	skippedNoID := 0

	for {
		if res.Calls > 0 {
			if err := c.wait(ctx); err != nil {
				res.Stop, res.Err = StopAborted, err
				break
			}
		}

		batch, err := c.FetchBatch(ctx, params)
		res.Calls++
		if err != nil {
			c.logger.Error("Entries request failed, keeping partial results", "call", res.Calls, "collected", len(res.Entries), "error", err)
			res.Stop, res.Err = StopAborted, err
			break
		}

		newCount := 0
		for _, e := range batch {
			if e.EntryID == "" {
				skippedNoID++
				continue
			}
			if seen[e.EntryID] {
				continue
			}
			seen[e.EntryID] = true
			newCount++
			if req.EmbeddableID != "" && e.EmbeddableID != req.EmbeddableID {
				continue
			}
			res.Entries = append(res.Entries, e)
		}

		c.logger.Info("Batch received", "call", res.Calls, "batch_size", len(batch), "new", newCount, "total", len(res.Entries), "cursor", cursor)

		if req.MaxRecords > 0 && len(res.Entries) >= req.MaxRecords {
			res.Entries = res.Entries[:req.MaxRecords]
			res.Stop = StopLimitReached
			break
		}
		if len(batch) < batchSize {
			res.Stop = StopExhausted
			break
		}
		if newCount == 0 {
			res.Stop = StopNoNewEntries
			break
		}

		next := oldestCreatedAt(batch)
		if next == "" || next == cursor {
			res.Stop = StopCursorStalled
			break
		}
		cursor = next
		params.UpdatedBefore = cursor
	}

	if skippedNoID > 0 {
		c.logger.Warn("Skipped entries without entry_id", "count", skippedNoID)
	}
	return res
}

// oldestCreatedAt returns the earliest created_at in batch, falling back to
// the last element when no timestamp parses.
func oldestCreatedAt(batch []models.RawEntry) string {
	oldest := ""
	var oldestT time.Time
	for _, e := range batch {
		t, ok := format.ParseTime(e.CreatedAt)
		if !ok {
			continue
		}
		if oldest == "" || t.Before(oldestT) {
			oldest, oldestT = e.CreatedAt, t
		}
	}
	if oldest == "" && len(batch) > 0 {
		return batch[len(batch)-1].CreatedAt
	}
	return oldest
}
