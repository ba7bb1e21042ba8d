// Package db records publish runs in a local sqlite database.
package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type PublishRecord struct {
	ID         int64     `json:"id"`
	Repository string    `json:"repository"`
	Tag        string    `json:"tag"`
	Username   string    `json:"username"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Step       string    `json:"step"`
	Error      string    `json:"error,omitempty"`
}

// Open creates the database file and its parent directory if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating history directory")
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS publishes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repository TEXT NOT NULL,
			tag TEXT NOT NULL,
			username TEXT,
			started_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL,
			step TEXT NOT NULL,
			error TEXT
		)
	`)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "creating publishes table")
	}
	return &Store{db: conn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LogPublish(ctx context.Context, r PublishRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO publishes (repository, tag, username, started_at, duration_ms, step, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Repository, r.Tag, r.Username, r.StartedAt.UTC(), r.DurationMs, r.Step, r.Error)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]PublishRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repository, tag, username, started_at, duration_ms, step, error
		FROM publishes ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PublishRecord
	for rows.Next() {
		var r PublishRecord
		var username, errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Repository, &r.Tag, &username, &r.StartedAt, &r.DurationMs, &r.Step, &errText); err != nil {
			return nil, err
		}
		r.Username = username.String
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
