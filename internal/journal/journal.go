// Package journal keeps an append-only sqlite record of finished fetches.
// It is an audit trail for operators; nothing is ever loaded back into the task registry.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS fetches (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	provider    TEXT    NOT NULL,
	requester   TEXT    NOT NULL DEFAULT '',
	state       TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	kind        TEXT    NOT NULL DEFAULT '',
	title       TEXT    NOT NULL DEFAULT '',
	size_bytes  INTEGER NOT NULL DEFAULT 0,
	local_path  TEXT    NOT NULL DEFAULT '',
	items       INTEGER NOT NULL DEFAULT 0,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS fetches_finished ON fetches(finished_at);
`

// Entry is one finished fetch.
type Entry struct {
	TaskID     string    `json:"task_id"`
	URL        string    `json:"url"`
	Provider   string    `json:"provider"`
	Requester  string    `json:"requester,omitempty"`
	State      string    `json:"state"`
	Error      string    `json:"error,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Title      string    `json:"title,omitempty"`
	SizeBytes  uint64    `json:"size_bytes"`
	LocalPath  string    `json:"local_path,omitempty"`
	Items      int       `json:"items,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer; sqlite serialises anyway and this avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `INSERT INTO fetches
		(task_id, url, provider, requester, state, error, kind, title, size_bytes, local_path, items, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TaskID, e.URL, e.Provider, e.Requester, e.State, e.Error, e.Kind, e.Title,
		int64(e.SizeBytes), e.LocalPath, e.Items, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("journal record: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT task_id, url, provider, requester, state, error, kind, title,
		size_bytes, local_path, items, started_at, finished_at
		FROM fetches ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var size, started, finished int64
		if err := rows.Scan(&e.TaskID, &e.URL, &e.Provider, &e.Requester, &e.State, &e.Error, &e.Kind, &e.Title,
			&size, &e.LocalPath, &e.Items, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.SizeBytes = uint64(size)
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	return out, rows.Err()
}
