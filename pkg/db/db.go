package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBName is the ledger file created inside the output directory.
const DefaultDBName = "funnelx.db"

// DB is the run ledger.
type DB struct {
	*sql.DB
}

// Open opens or creates the run ledger inside dir.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return openLedger(filepath.Join(dir, DefaultDBName))
}

// openLedger opens dsn on a single connection and applies the schema. Every
// statement in the schema is idempotent, and the pragmas are per connection,
// so it runs on each open.
func openLedger(dsn string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// funnel workers share one connection; :memory: stays a single database
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{DB: sqlDB}, nil
}
