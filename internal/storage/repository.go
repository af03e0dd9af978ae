package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Repository records which submissions the user has opened, so listings can
// dim already-seen entries across sessions. Failures here are best-effort
// for callers; nothing in navigation depends on the history being writable.
type Repository struct {
	db *sql.DB
}

func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS visited (
  submission_id TEXT PRIMARY KEY,
  subreddit TEXT NOT NULL,
  title TEXT NOT NULL,
  visited_at TEXT NOT NULL
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repository) CheckWritable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _write_check (id INTEGER)`); err != nil {
		return fmt.Errorf("write check: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DROP TABLE _write_check`); err != nil {
		return fmt.Errorf("write check cleanup: %w", err)
	}
	return nil
}

// MarkVisited upserts a visit, refreshing the timestamp on repeat visits.
func (r *Repository) MarkVisited(ctx context.Context, submissionID, subreddit, title string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO visited (submission_id, subreddit, title, visited_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(submission_id) DO UPDATE SET
  subreddit=excluded.subreddit,
  title=excluded.title,
  visited_at=excluded.visited_at
`, submissionID, subreddit, title, now)
	if err != nil {
		return fmt.Errorf("mark visited %s: %w", submissionID, err)
	}
	return nil
}

// VisitedIDs returns the set of seen submission IDs.
func (r *Repository) VisitedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT submission_id FROM visited`)
	if err != nil {
		return nil, fmt.Errorf("query visited: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan visited id: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Prune keeps at most limit entries, discarding the oldest visits first.
func (r *Repository) Prune(ctx context.Context, limit int) error {
	if limit < 1 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
DELETE FROM visited WHERE submission_id NOT IN (
  SELECT submission_id FROM visited ORDER BY visited_at DESC LIMIT ?
)
`, limit)
	if err != nil {
		return fmt.Errorf("prune visited: %w", err)
	}
	return nil
}
