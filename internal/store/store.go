// Package store keeps the history of suite runs in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/chatcheck/internal/types"
)

// ErrNotFound is returned when a run or failure does not exist
var ErrNotFound = errors.New("not found")

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Serialize writers; SQLite allows one at a time
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scenario_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		duration_ns INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL REFERENCES scenario_results(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		passed BOOLEAN NOT NULL,
		detail TEXT
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL REFERENCES scenario_results(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		kind TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_results_run ON scenario_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_scenario ON scenario_results(scenario, status);
	CREATE INDEX IF NOT EXISTS idx_checks_result ON checks(result_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_result ON artifacts(result_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun records a finished run with all of its scenario results
func (s *Store) SaveRun(run *types.RunResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, base_url, started_at, finished_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.BaseURL, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	for i, res := range run.Scenarios {
		r, err := tx.Exec(`
			INSERT INTO scenario_results (run_id, position, scenario, status, error, started_at, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, res.Scenario, string(res.Status), res.Error, res.StartedAt.UTC(), int64(res.Duration))
		if err != nil {
			return fmt.Errorf("failed to save result %s: %w", res.Scenario, err)
		}
		resultID, err := r.LastInsertId()
		if err != nil {
			return err
		}

		for j, c := range res.Checks {
			_, err := tx.Exec(`
				INSERT INTO checks (result_id, position, name, passed, detail)
				VALUES (?, ?, ?, ?, ?)
			`, resultID, j, c.Name, c.Passed, c.Detail)
			if err != nil {
				return err
			}
		}
		for j, a := range res.Artifacts {
			_, err := tx.Exec(`
				INSERT INTO artifacts (result_id, position, name, path, kind)
				VALUES (?, ?, ?, ?, ?)
			`, resultID, j, a.Name, a.Path, string(a.Kind))
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.base_url, r.started_at, r.finished_at,
			COALESCE(SUM(sr.status = 'passed'), 0),
			COALESCE(SUM(sr.status = 'failed'), 0),
			COALESCE(SUM(sr.status = 'errored'), 0)
		FROM runs r
		LEFT JOIN scenario_results sr ON sr.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.BaseURL, &r.StartedAt, &r.FinishedAt, &r.Passed, &r.Failed, &r.Errored); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a full run by ID
func (s *Store) GetRun(id string) (*types.RunResult, error) {
	run := &types.RunResult{ID: id}
	err := s.db.QueryRow(`
		SELECT base_url, started_at, finished_at FROM runs WHERE id = ?
	`, id).Scan(&run.BaseURL, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT id, scenario, status, COALESCE(error, ''), started_at, duration_ns
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var resultID int64
		res, err := scanResult(rows, &resultID)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, resultID)
		run.Scenarios = append(run.Scenarios, res)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i, resultID := range ids {
		if err := s.loadDetails(resultID, &run.Scenarios[i]); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// LastFailure returns the most recent failed or errored result of scenario
func (s *Store) LastFailure(scenario string) (*Failure, error) {
	rows, err := s.db.Query(`
		SELECT sr.id, sr.scenario, sr.status, COALESCE(sr.error, ''), sr.started_at, sr.duration_ns,
			r.id, r.finished_at
		FROM scenario_results sr
		JOIN runs r ON r.id = sr.run_id
		WHERE sr.scenario = ? AND sr.status != 'passed'
		ORDER BY r.started_at DESC
		LIMIT 1
	`, scenario)
	if err != nil {
		return nil, err
	}

	var f Failure
	var resultID int64
	found := false
	if rows.Next() {
		found = true
		err = rows.Scan(&resultID, &f.Result.Scenario, &f.Result.Status, &f.Result.Error,
			&f.Result.StartedAt, &f.Result.Duration, &f.RunID, &f.FinishedAt)
	}
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no failure of %s: %w", scenario, ErrNotFound)
	}

	if err := s.loadDetails(resultID, &f.Result); err != nil {
		return nil, err
	}
	return &f, nil
}

// Prune deletes runs that started before cutoff and returns how many went
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff = cutoff.UTC()
	stale := `SELECT sr.id FROM scenario_results sr JOIN runs r ON r.id = sr.run_id WHERE r.started_at < ?`
	for _, table := range []string{"checks", "artifacts"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE result_id IN (`+stale+`)`, cutoff); err != nil {
			return 0, err
		}
	}
	if _, err := tx.Exec(`DELETE FROM scenario_results WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *Store) loadDetails(resultID int64, res *types.ScenarioResult) error {
	rows, err := s.db.Query(`
		SELECT name, passed, COALESCE(detail, '') FROM checks WHERE result_id = ? ORDER BY position
	`, resultID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c types.Check
		if err := rows.Scan(&c.Name, &c.Passed, &c.Detail); err != nil {
			rows.Close()
			return err
		}
		res.Checks = append(res.Checks, c)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	rows, err = s.db.Query(`
		SELECT name, path, kind FROM artifacts WHERE result_id = ? ORDER BY position
	`, resultID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a types.Artifact
		if err := rows.Scan(&a.Name, &a.Path, &a.Kind); err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, a)
	}
	return rows.Err()
}

func scanResult(rows *sql.Rows, resultID *int64) (types.ScenarioResult, error) {
	var res types.ScenarioResult
	var durationNS int64
	err := rows.Scan(resultID, &res.Scenario, &res.Status, &res.Error, &res.StartedAt, &durationNS)
	res.Duration = time.Duration(durationNS)
	return res, err
}
