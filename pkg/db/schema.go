package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per extract invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,              -- uuid
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    funnel_selection TEXT NOT NULL,       -- "all" or comma separated keys
    checkout_only BOOLEAN DEFAULT 0,
    max_records INTEGER DEFAULT 0,
    date_from TEXT,
    date_to TEXT,
    status TEXT NOT NULL                  -- running, succeeded, partial, failed
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

-- Funnel runs: per-funnel counts and output files of a run
CREATE TABLE IF NOT EXISTS funnel_runs (
    funnel_run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    funnel_key TEXT NOT NULL,
    embeddable_id TEXT,
    fetched INTEGER DEFAULT 0,
    test_excluded INTEGER DEFAULT 0,
    duplicates INTEGER DEFAULT 0,
    complete INTEGER DEFAULT 0,
    partial INTEGER DEFAULT 0,
    api_calls INTEGER DEFAULT 0,
    stop_reason TEXT,
    error TEXT,
    all_path TEXT,
    all_hash TEXT,
    complete_path TEXT,
    complete_hash TEXT,
    partial_path TEXT,
    partial_hash TEXT,
    summary_path TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE,
    UNIQUE(run_id, funnel_key)
);

CREATE INDEX IF NOT EXISTS idx_funnel_runs_run ON funnel_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_funnel_runs_funnel ON funnel_runs(funnel_key);
`
