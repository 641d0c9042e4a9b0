package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/hems/core/model"
)

// SQLiteStore persists events and the buffer mode state to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := []string{
		`CREATE TABLE IF NOT EXISTS buffer_events (
        id TEXT PRIMARY KEY,
        ts INTEGER,
        applied INTEGER,
        record TEXT
    );`,
		`CREATE TABLE IF NOT EXISTS buffer_state (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        record TEXT
    );`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the event to the database.
func (s *SQLiteStore) Append(ctx context.Context, ev model.BufferEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	applied := 0
	if ev.Applied {
		applied = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buffer_events (id, ts, applied, record) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Timestamp.UnixNano(), applied, string(b))
	return err
}

// Query returns events matching q, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, q LogQuery) ([]model.BufferEvent, error) {
	var args []any
	query := `SELECT record FROM buffer_events WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.AppliedOnly {
		query += ` AND applied = 1`
	}
	query += ` ORDER BY ts DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.BufferEvent
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev model.BufferEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.finish(res), nil
}

// Load returns the persisted buffer mode, if any.
func (s *SQLiteStore) Load(ctx context.Context) (model.BufferModeState, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM buffer_state WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BufferModeState{}, false, nil
	}
	if err != nil {
		return model.BufferModeState{}, false, err
	}
	var st model.BufferModeState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return model.BufferModeState{}, false, fmt.Errorf("unmarshal state: %w", err)
	}
	return st, true, nil
}

// Save replaces the persisted buffer mode.
func (s *SQLiteStore) Save(ctx context.Context, st model.BufferModeState) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buffer_state (id, record) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		string(b))
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
