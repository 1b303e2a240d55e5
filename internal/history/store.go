// Package history persists a local log of downloads in SQLite, so past
// fetches can be listed after the process exits.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding the download log.
type Store struct {
	db *sql.DB
}

// Record is one finished (or failed) download.
type Record struct {
	ID         int64
	Spec       string
	Release    string
	Token      string
	URL        string
	LocalPath  string
	Extracted  int
	Status     string // completed or failed
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Open creates or opens the database at path and migrates the schema.
// WAL mode keeps the CLI responsive when a background task writes while
// the history command reads.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(2)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS downloads (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		spec        TEXT NOT NULL,
		release_label TEXT NOT NULL,
		token       TEXT NOT NULL,
		url         TEXT NOT NULL,
		local_path  TEXT,
		extracted   INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL,
		error       TEXT,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_finished ON downloads(finished_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Add appends a record to the log and returns its row ID.
func (s *Store) Add(rec Record) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO downloads (spec, release_label, token, url, local_path, extracted, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Spec, rec.Release, rec.Token, rec.URL, rec.LocalPath, rec.Extracted,
		rec.Status, rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("record download: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, spec, release_label, token, url, local_path, extracted, status, error, started_at, finished_at
		 FROM downloads ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var localPath, errMsg sql.NullString
		var started, finished string
		if err := rows.Scan(&rec.ID, &rec.Spec, &rec.Release, &rec.Token, &rec.URL,
			&localPath, &rec.Extracted, &rec.Status, &errMsg, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.LocalPath = localPath.String
		rec.Error = errMsg.String
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for record %d: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at for record %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
