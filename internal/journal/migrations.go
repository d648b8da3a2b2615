package journal

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the journal tables.
// Each statement uses IF NOT EXISTS so Migrate can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		policy      TEXT NOT NULL,
		tasks       INTEGER NOT NULL,
		config      TEXT NOT NULL DEFAULT '',
		reason      TEXT NOT NULL DEFAULT '',
		started_at  TEXT NOT NULL,
		finished_at TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL REFERENCES runs(id),
		at        TEXT NOT NULL,
		kind      TEXT NOT NULL,
		slot      INTEGER NOT NULL,
		task_id   INTEGER NOT NULL,
		state     TEXT NOT NULL,
		priority  INTEGER NOT NULL,
		exec_time INTEGER NOT NULL,
		tick      INTEGER NOT NULL,
		detail    TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
