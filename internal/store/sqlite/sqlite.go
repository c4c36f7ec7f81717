package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"carbon-scribe/dairy-footprint/internal/batch"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// Store keeps batch run history in a single SQLite file
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run history listing
type RunSummary struct {
	RunID   string        `json:"run_id"`
	Summary batch.Summary `json:"summary"`
}

// New opens (and migrates) the database at path
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: open %s", path)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores the run summary and every farm result in one transaction
func (s *Store) SaveRun(ctx context.Context, run *batch.RunResult) (err error) {
	if run == nil || run.RunID == "" {
		return errors.New("sqlite: run id is required")
	}

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return errors.Wrap(err, "sqlite: encode summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sm := run.Summary
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, processing_date, tier, scope, boundaries, benchmark_region,
			n_processed, n_successful, n_errors, total_co2eq, mean_intensity, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		sm.ProcessingDate.UTC().Format(time.RFC3339Nano),
		sm.Tier,
		sm.Scope,
		strings.Join(sm.BoundariesUsed, ","),
		sm.BenchmarkRegion,
		sm.NFarmsProcessed,
		sm.NFarmsSuccessful,
		sm.NFarmsWithErrors,
		sm.TotalEmissionsCO2eq,
		sm.MeanIntensity,
		string(summaryJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "sqlite: insert run %s", run.RunID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO farm_results (
			run_id, row_num, farm_id, status, total_co2eq, intensity, error_message, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, fr := range run.FarmResults {
		var total, intensity, reason any
		if fr.Success != nil {
			total = fr.Success.Total.TotalCO2eq
			intensity = fr.Success.Intensity.IntensityCO2eqPerKgFPCM
		}
		if fr.Failure != nil {
			reason = fr.Failure.Reason
		}
		payload, mErr := json.Marshal(fr)
		if mErr != nil {
			err = errors.Wrapf(mErr, "sqlite: encode farm %s", fr.FarmID)
			return err
		}
		if _, err = stmt.ExecContext(ctx, run.RunID, fr.Row, fr.FarmID, string(fr.Status), total, intensity, reason, string(payload)); err != nil {
			return errors.Wrapf(err, "sqlite: insert farm %s", fr.FarmID)
		}
	}

	return tx.Commit()
}

// GetRun loads a stored run with all farm results in row order
func (s *Store) GetRun(ctx context.Context, id string) (*batch.RunResult, error) {
	var summaryJSON string
	err := s.db.QueryRowContext(ctx, `SELECT summary_json FROM runs WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: load run %s", id)
	}

	run := &batch.RunResult{RunID: id}
	if err := json.Unmarshal([]byte(summaryJSON), &run.Summary); err != nil {
		return nil, errors.Wrap(err, "sqlite: decode summary")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT result_json FROM farm_results WHERE run_id = ? ORDER BY row_num`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite: load farms for %s", id)
	}
	defer rows.Close()

	run.FarmResults = []batch.FarmResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var fr batch.FarmResult
		if err := json.Unmarshal([]byte(payload), &fr); err != nil {
			return nil, errors.Wrap(err, "sqlite: decode farm result")
		}
		run.FarmResults = append(run.FarmResults, fr)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT id, summary_json FROM runs ORDER BY processing_date DESC, created_seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		var summaryJSON string
		if err := rows.Scan(&rs.RunID, &summaryJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(summaryJSON), &rs.Summary); err != nil {
			return nil, errors.Wrap(err, "sqlite: decode summary")
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			created_seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			processing_date TEXT NOT NULL,
			tier INTEGER NOT NULL,
			scope TEXT NOT NULL,
			boundaries TEXT NOT NULL,
			benchmark_region TEXT,
			n_processed INTEGER NOT NULL,
			n_successful INTEGER NOT NULL,
			n_errors INTEGER NOT NULL,
			total_co2eq REAL NOT NULL,
			mean_intensity REAL NOT NULL,
			summary_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS farm_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			row_num INTEGER NOT NULL,
			farm_id TEXT NOT NULL,
			status TEXT NOT NULL,
			total_co2eq REAL,
			intensity REAL,
			error_message TEXT,
			result_json TEXT NOT NULL,
			PRIMARY KEY (run_id, row_num)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_farm_results_farm ON farm_results (farm_id);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return errors.Wrap(err, "sqlite: migrate")
		}
	}

	return nil
}
