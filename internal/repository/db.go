package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	// Writers for different campaigns may contend; wait rather than fail.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

// Monetary columns are TEXT: decimal amounts round-trip exactly through
// their string form, where REAL would not.
func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id TEXT PRIMARY KEY,
			founder_id TEXT NOT NULL,
			name TEXT NOT NULL,
			goal TEXT NOT NULL,
			raised TEXT NOT NULL DEFAULT '0',
			investor_count INTEGER NOT NULL DEFAULT 0,
			transaction_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_founder ON campaigns(founder_id)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			campaign_id TEXT NOT NULL,
			investor_id TEXT NOT NULL,
			amount TEXT NOT NULL,
			rail TEXT NOT NULL,
			status TEXT NOT NULL,
			rail_reference TEXT,
			created_at DATETIME NOT NULL,
			completed_at DATETIME,
			failed_at DATETIME,
			FOREIGN KEY (campaign_id) REFERENCES campaigns(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_campaign ON transactions(campaign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_investor ON transactions(investor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}

// timeLayout is fixed-width (nanoseconds zero-padded, times stored in UTC) so
// stored timestamps compare lexicographically; ORDER BY and cutoff queries
// rely on that. RFC3339Nano trims trailing zeros and would not sort.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx, so repo writes can join a
// caller-managed transaction when a status flip and an aggregate delta must
// commit together.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
