package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"promptum/internal/benchmark"
)

const sqliteSchemaVersion = 1

// SQLiteStore persists reports in a SQLite database. Runs are indexed for
// listing; each result row keeps the full JSON document so reports reload
// without loss.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}

	schema := `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	provider    TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id    TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	case_name TEXT NOT NULL,
	passed    INTEGER NOT NULL,
	payload   TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

// Save implements Store. Saving a run ID that already exists replaces it.
func (s *SQLiteStore) Save(ctx context.Context, r *benchmark.Report) error {
	if r.RunID == "" {
		return fmt.Errorf("report has no run ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", r.RunID); err != nil {
		return fmt.Errorf("failed to clear existing run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, provider, started_at, finished_at) VALUES (?, ?, ?, ?)",
		r.RunID, r.Provider,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, result := range r.Results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result %q: %w", result.Case.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO results (run_id, position, case_name, passed, payload) VALUES (?, ?, ?, ?, ?)",
			r.RunID, i, result.Case.Name, boolToInt(result.Passed), string(payload),
		); err != nil {
			return fmt.Errorf("failed to insert result %q: %w", result.Case.Name, err)
		}
	}

	return tx.Commit()
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, runID string) (*benchmark.Report, error) {
	var provider, startedAt, finishedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT provider, started_at, finished_at FROM runs WHERE run_id = ?", runID,
	).Scan(&provider, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	report := &benchmark.Report{RunID: runID, Provider: provider}
	if report.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("bad started_at for run %s: %w", runID, err)
	}
	if report.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("bad finished_at for run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM results WHERE run_id = ? ORDER BY position", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var result benchmark.Result
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		report.Results = append(report.Results, result)
	}
	return report, rows.Err()
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT r.run_id, r.provider, r.started_at,
       COUNT(res.run_id), COALESCE(SUM(res.passed), 0)
FROM runs r
LEFT JOIN results res ON res.run_id = r.run_id
GROUP BY r.run_id
ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		var startedAt string
		if err := rows.Scan(&info.RunID, &info.Provider, &startedAt, &info.Total, &info.Passed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if info.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("bad started_at for run %s: %w", info.RunID, err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
