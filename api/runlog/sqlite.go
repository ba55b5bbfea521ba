package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id      TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	roi_kind    TEXT NOT NULL,
	roi         TEXT,
	state       TEXT NOT NULL,
	error       TEXT,
	window_from TEXT,
	window_to   TEXT,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_analysis_runs_session ON analysis_runs(session_id, started_at DESC);
`

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite is a journal in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates when missing) the journal at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("runlog: sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r Record) error {
	var finished sql.NullString
	if r.FinishedAt != nil {
		finished = sql.NullString{String: r.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, session_id, roi_kind, roi, state, error, window_from, window_to, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		r.RunID, r.SessionID, r.ROIKind, string(r.ROI), r.State, r.Error,
		r.WindowFrom, r.WindowTo, r.StartedAt.UTC().Format(timeLayout), finished,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.RunID, err)
	}
	return nil
}

// List returns the newest records first. An empty sessionID lists every
// session.
func (s *SQLite) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, session_id, roi_kind, roi, state, error, window_from, window_to, started_at, finished_at
		FROM analysis_runs`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                           Record
			started                     string
			roiText, errText            sql.NullString
			windowFrom, windowTo, ended sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.ROIKind, &roiText, &r.State, &errText, &windowFrom, &windowTo, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if roiText.Valid && roiText.String != "" {
			r.ROI = []byte(roiText.String)
		}
		r.Error = errText.String
		r.WindowFrom = windowFrom.String
		r.WindowTo = windowTo.String
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if ended.Valid {
			t, err := time.Parse(timeLayout, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close(context.Context) error { return s.db.Close() }
