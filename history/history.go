// Package history stores the per iteration residuals and continuity errors of solver
// runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNoRun = errors.New("history: no run started")

type Store struct {
	db    *sql.DB
	runID uuid.UUID
}

// IterationRecord is one outer iteration, Residuals maps a field name to its initial residual
type IterationRecord struct {
	Iteration    int
	Residuals    map[string]float64
	ContSumLocal float64
	ContGlobal   float64
	ContCum      float64
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	title TEXT,
	started_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS iterations (
	run_id TEXT NOT NULL REFERENCES runs(id),
	iteration INTEGER NOT NULL,
	field TEXT NOT NULL,
	initial_residual REAL NOT NULL,
	cont_sum_local REAL NOT NULL,
	cont_global REAL NOT NULL,
	cont_cumulative REAL NOT NULL,
	PRIMARY KEY (run_id, iteration, field)
);
CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id);
`

func Open(ctx context.Context, path string) (s *Store, err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create tables: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) BeginRun(ctx context.Context, runID uuid.UUID, title string) (err error) {
	if _, err = s.db.ExecContext(ctx, `INSERT INTO runs (id, title, started_at) VALUES (?, ?, ?)`,
		runID.String(), title, time.Now().UTC()); err != nil {
		return fmt.Errorf("history: begin run %s: %w", runID, err)
	}
	s.runID = runID
	return
}

// Record stores one row per field of rec in a single transaction
func (s *Store) Record(ctx context.Context, rec IterationRecord) (err error) {
	if s.runID == uuid.Nil {
		return ErrNoRun
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for field, res := range rec.Residuals {
		if _, err = tx.ExecContext(ctx, `INSERT INTO iterations
			(run_id, iteration, field, initial_residual, cont_sum_local, cont_global, cont_cumulative)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.runID.String(), rec.Iteration, field, res, rec.ContSumLocal, rec.ContGlobal, rec.ContCum); err != nil {
			return fmt.Errorf("history: record iteration %d: %w", rec.Iteration, err)
		}
	}
	return tx.Commit()
}

// Iterations returns the records of a run in iteration order
func (s *Store) Iterations(ctx context.Context, runID uuid.UUID) (recs []IterationRecord, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT iteration, field, initial_residual,
		cont_sum_local, cont_global, cont_cumulative
		FROM iterations WHERE run_id = ? ORDER BY iteration, field`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("history: query run %s: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rec   IterationRecord
			field string
			res   float64
		)
		if err = rows.Scan(&rec.Iteration, &field, &res, &rec.ContSumLocal, &rec.ContGlobal, &rec.ContCum); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if n := len(recs); n == 0 || recs[n-1].Iteration != rec.Iteration {
			rec.Residuals = map[string]float64{}
			recs = append(recs, rec)
		}
		recs[len(recs)-1].Residuals[field] = res
	}
	return recs, rows.Err()
}

// Title returns the title a run was started with
func (s *Store) Title(ctx context.Context, runID uuid.UUID) (title string, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT title FROM runs WHERE id = ?`, runID.String()).Scan(&title)
	return
}

type Run struct {
	ID    uuid.UUID
	Title string
}

// Runs lists the stored runs in the order they were started
func (s *Store) Runs(ctx context.Context) (runs []Run, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM runs ORDER BY started_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  string
			run Run
		)
		if err = rows.Scan(&id, &run.Title); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("history: run id %q: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
