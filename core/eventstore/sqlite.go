package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// busyTimeoutMS bounds how long a statement waits on a locked database.
const busyTimeoutMS = 5000

// NewSQLiteStore opens or creates the database at path and ensures schema.
// Writes are serialised over a single connection in WAL mode.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	pragmas := []string{
		fmt.Sprintf(`PRAGMA busy_timeout = %d;`, busyTimeoutMS),
		`PRAGMA journal_mode = WAL;`,
	}
	schema := `CREATE TABLE IF NOT EXISTS events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        event_id TEXT NOT NULL,
        project_id INTEGER NOT NULL,
        received_at INTEGER NOT NULL,
        level TEXT,
        record TEXT NOT NULL
    );`
	index := `CREATE INDEX IF NOT EXISTS events_project_ts ON events (project_id, received_at);`
	for _, stmt := range append(pragmas, schema, index) {
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, project_id, received_at, level, record) VALUES (?, ?, ?, ?, ?)`,
		rec.Event.EventID, rec.ProjectID, rec.ReceivedAt.UnixNano(), string(rec.Event.Level), string(b))
	return err
}

// Query returns records matching q. Time, project and level filters run in
// SQL; tag filters are applied after decoding.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM events WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND received_at >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND received_at <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.ProjectID != 0 {
		query += ` AND project_id = ?`
		args = append(args, q.ProjectID)
	}
	if q.Level != "" {
		query += ` AND level = ?`
		args = append(args, string(q.Level))
	}
	query += ` ORDER BY received_at, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		if !q.Match(r) {
			continue
		}
		res = append(res, r)
		if q.Limit > 0 && len(res) == q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
