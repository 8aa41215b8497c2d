package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Journal records runs and their step executions in an in-memory SQLite
// database. Nothing outlives the process.
type Journal struct {
	DB *sql.DB
}

func NewJournal() (*Journal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			command TEXT,
			total_steps INTEGER,
			status TEXT DEFAULT 'running',
			message TEXT DEFAULT '',
			started_at INTEGER,
			finished_at INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS step_executions (
			run_id TEXT,
			idx INTEGER,
			action TEXT,
			target TEXT,
			value TEXT,
			description TEXT,
			status TEXT,
			message TEXT,
			PRIMARY KEY (run_id, idx)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Journal{DB: db}, nil
}

func (j *Journal) Close() error {
	return j.DB.Close()
}

func (j *Journal) BeginRun(ctx context.Context, runID, command string, totalSteps int) error {
	query := `INSERT INTO runs (id, command, total_steps, started_at) VALUES (?, ?, ?, ?)`
	_, err := j.DB.ExecContext(ctx, query, runID, command, totalSteps, time.Now().UnixMilli())
	return err
}

func (j *Journal) RecordStep(ctx context.Context, rec StepRecord) error {
	query := `INSERT INTO step_executions (run_id, idx, action, target, value, description, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.DB.ExecContext(ctx, query,
		rec.RunID, rec.Index, rec.Action, rec.Target, rec.Value, rec.Description, rec.Status, rec.Message)
	return err
}

func (j *Journal) FinishRun(ctx context.Context, runID, status, message string) error {
	query := `UPDATE runs SET status = ?, message = ?, finished_at = ? WHERE id = ?`
	res, err := j.DB.ExecContext(ctx, query, status, message, time.Now().UnixMilli(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("unknown run: %s", runID)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, command, total_steps, status, message, started_at, finished_at
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`
	rows, err := j.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Command, &r.TotalSteps, &r.Status, &r.Message, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Steps returns the recorded steps of a run in execution order.
func (j *Journal) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	query := `SELECT run_id, idx, action, target, value, description, status, message
		FROM step_executions WHERE run_id = ? ORDER BY idx`
	rows, err := j.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var s StepRecord
		if err := rows.Scan(&s.RunID, &s.Index, &s.Action, &s.Target, &s.Value, &s.Description, &s.Status, &s.Message); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
