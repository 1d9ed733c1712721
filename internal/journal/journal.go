// Package journal keeps an optional SQLite index of exported artifacts so
// operators can query what was extracted without scanning the output
// directory. Journal failures are never stream-fatal.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	seq         INTEGER NOT NULL,
	label       TEXT    NOT NULL,
	confidence  REAL    NOT NULL,
	path        TEXT    NOT NULL,
	inference_ms INTEGER NOT NULL,
	created_at  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_seq ON artifacts(seq);
CREATE INDEX IF NOT EXISTS idx_artifacts_label ON artifacts(label);
`

// Artifact is one journal row.
type Artifact struct {
	Seq         uint64
	Label       string
	Confidence  float64
	Path        string
	InferenceMS int64
	CreatedAt   time.Time
}

// Journal records exported artifacts in a local SQLite database.
type Journal struct {
	conn *sql.DB
}

// Open creates the database file (and parent directory) if needed and applies
// the schema.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("journal: %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &Journal{conn: conn}, nil
}

// Record inserts one artifact row.
func (j *Journal) Record(a Artifact) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := j.conn.Exec(
		`INSERT INTO artifacts (seq, label, confidence, path, inference_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Seq, a.Label, a.Confidence, a.Path, a.InferenceMS,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: record artifact: %w", err)
	}
	return nil
}

// CountBySeq returns the number of artifacts recorded for a frame sequence.
func (j *Journal) CountBySeq(seq uint64) (int, error) {
	var n int
	if err := j.conn.QueryRow(`SELECT COUNT(*) FROM artifacts WHERE seq = ?`, seq).Scan(&n); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.conn.Close()
}
