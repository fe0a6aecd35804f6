package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusPartial   = "partial" // at least one funnel failed
	StatusFailed    = "failed"  // every funnel failed
)

// ErrRunNotFound is returned when a run id has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// Run represents one extract invocation
type Run struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	FunnelSelection string
	CheckoutOnly    bool
	MaxRecords      int
	DateFrom        string
	DateTo          string
	Status          string
}

// FunnelRun holds the outcome of one funnel within a run
type FunnelRun struct {
	RunID        string
	FunnelKey    string
	EmbeddableID string
	Fetched      int
	Excluded     int
	Duplicates   int
	Complete     int
	Partial      int
	APICalls     int
	StopReason   string
	Error        string
	AllPath      string
	AllHash      string
	CompletePath string
	CompleteHash string
	PartialPath  string
	PartialHash  string
	SummaryPath  string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// CreateRun inserts r with status running. An empty RunID is filled in.
func (db *DB) CreateRun(r *Run) error {
	if r.RunID == "" {
		r.RunID = NewRunID()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.StartedAt = r.StartedAt.UTC().Truncate(time.Second)
	r.Status = StatusRunning

	_, err := db.Exec(`
		INSERT INTO runs (run_id, started_at, funnel_selection, checkout_only, max_records, date_from, date_to, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.StartedAt, r.FunnelSelection, r.CheckoutOnly, r.MaxRecords, r.DateFrom, r.DateTo, r.Status)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the final status of a run.
func (db *DB) FinishRun(runID, status string, finishedAt time.Time) error {
	res, err := db.Exec(`UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?`,
		status, finishedAt.UTC().Truncate(time.Second), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// InsertFunnelRun stores or replaces the outcome of one funnel.
func (db *DB) InsertFunnelRun(fr FunnelRun) error {
	_, err := db.Exec(`
		INSERT INTO funnel_runs (
			run_id, funnel_key, embeddable_id, fetched, test_excluded, duplicates, complete, partial,
			api_calls, stop_reason, error, all_path, all_hash, complete_path, complete_hash,
			partial_path, partial_hash, summary_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, funnel_key) DO UPDATE SET
			embeddable_id = excluded.embeddable_id,
			fetched = excluded.fetched,
			test_excluded = excluded.test_excluded,
			duplicates = excluded.duplicates,
			complete = excluded.complete,
			partial = excluded.partial,
			api_calls = excluded.api_calls,
			stop_reason = excluded.stop_reason,
			error = excluded.error,
			all_path = excluded.all_path,
			all_hash = excluded.all_hash,
			complete_path = excluded.complete_path,
			complete_hash = excluded.complete_hash,
			partial_path = excluded.partial_path,
			partial_hash = excluded.partial_hash,
			summary_path = excluded.summary_path
	`, fr.RunID, fr.FunnelKey, fr.EmbeddableID, fr.Fetched, fr.Excluded, fr.Duplicates, fr.Complete, fr.Partial,
		fr.APICalls, fr.StopReason, fr.Error, fr.AllPath, fr.AllHash, fr.CompletePath, fr.CompleteHash,
		fr.PartialPath, fr.PartialHash, fr.SummaryPath)
	if err != nil {
		return fmt.Errorf("failed to insert funnel run %s: %w", fr.FunnelKey, err)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, funnel_selection, checkout_only, max_records,
	COALESCE(date_from, ''), COALESCE(date_to, ''), status`

func scanRun(row interface{ Scan(...interface{}) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.RunID, &r.StartedAt, &r.FinishedAt, &r.FunnelSelection, &r.CheckoutOnly,
		&r.MaxRecords, &r.DateFrom, &r.DateTo, &r.Status)
	return r, err
}

// ListRuns returns runs newest first; limit <= 0 returns all.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads one run.
func (db *DB) GetRun(runID string) (*Run, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

// LatestRunID returns the id of the most recent run.
func (db *DB) LatestRunID() (string, error) {
	runs, err := db.ListRuns(1)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrRunNotFound
	}
	return runs[0].RunID, nil
}

// GetFunnelRuns returns the funnels of a run ordered by funnel key.
func (db *DB) GetFunnelRuns(runID string) ([]FunnelRun, error) {
	rows, err := db.Query(`
		SELECT run_id, funnel_key, COALESCE(embeddable_id, ''), fetched, test_excluded, duplicates,
		       complete, partial, api_calls, COALESCE(stop_reason, ''), COALESCE(error, ''),
		       COALESCE(all_path, ''), COALESCE(all_hash, ''), COALESCE(complete_path, ''),
		       COALESCE(complete_hash, ''), COALESCE(partial_path, ''), COALESCE(partial_hash, ''),
		       COALESCE(summary_path, '')
		FROM funnel_runs
		WHERE run_id = ?
		ORDER BY funnel_key
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get funnel runs: %w", err)
	}
	defer rows.Close()

	var out []FunnelRun
	for rows.Next() {
		var fr FunnelRun
		if err := rows.Scan(&fr.RunID, &fr.FunnelKey, &fr.EmbeddableID, &fr.Fetched, &fr.Excluded,
			&fr.Duplicates, &fr.Complete, &fr.Partial, &fr.APICalls, &fr.StopReason, &fr.Error,
			&fr.AllPath, &fr.AllHash, &fr.CompletePath, &fr.CompleteHash, &fr.PartialPath,
			&fr.PartialHash, &fr.SummaryPath); err != nil {
			return nil, fmt.Errorf("failed to scan funnel run: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
