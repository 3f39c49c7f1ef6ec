// Package learning persists completed runs so the evolution engine can
// learn from them.
//
// The store is append-only: records are inserted once at the end of a run
// and never updated.
package learning

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrDuplicateRun is returned when a run ID has already been recorded
var ErrDuplicateRun = errors.New("run already recorded")

// ErrRunNotFound is returned when no record matches a run ID
var ErrRunNotFound = errors.New("run not found")

// Store manages the SQLite database of run records
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

// openAndInitStore opens the database connection and initializes schema
func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with
func (s *Store) Path() string {
	return s.dbPath
}

const runColumns = `id, run_id, goal, task_count, workflow_name, plan_tasks, completed_tasks, failed_tasks,
	recovered_tasks, total_duration_ms, errors, failure_types, success_rate, reflection_score, insights, created_at`

// RecordRun appends a run record. Recording the same run ID twice returns ErrDuplicateRun.
func (s *Store) RecordRun(ctx context.Context, rec *RunRecord) error {
	if rec == nil {
		return fmt.Errorf("run record cannot be nil")
	}
	if rec.RunID == "" {
		return fmt.Errorf("run record requires a run id")
	}

	planTasks, err := marshalJSON(rec.Plan.Tasks)
	if err != nil {
		return fmt.Errorf("marshal plan tasks: %w", err)
	}
	errs, err := marshalJSON(rec.Execution.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	failureTypes, err := marshalJSON(rec.Execution.FailureTypes)
	if err != nil {
		return fmt.Errorf("marshal failure types: %w", err)
	}
	insights, err := marshalJSON(rec.Reflection.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO run_records
		(run_id, goal, task_count, workflow_name, plan_tasks, completed_tasks, failed_tasks,
		 recovered_tasks, total_duration_ms, errors, failure_types, success_rate, reflection_score, insights, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		rec.RunID,
		rec.Goal,
		rec.Plan.TaskCount,
		rec.Plan.WorkflowName,
		planTasks,
		rec.Execution.CompletedTasks,
		rec.Execution.FailedTasks,
		rec.Execution.RecoveredTasks,
		rec.Execution.TotalDuration.Milliseconds(),
		errs,
		failureTypes,
		rec.Reflection.SuccessRate,
		rec.Reflection.Score,
		insights,
		rec.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateRun, rec.RunID)
		}
		return fmt.Errorf("insert run record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	rec.ID = id

	return nil
}

// RecentRuns returns up to limit records, most recent first. A non-positive
// limit returns every record.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM run_records ORDER BY id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}

	return records, nil
}

// GetRun returns the record for a run ID
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM run_records WHERE run_id = ?`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query run record: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate run records: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return scanRunRecord(rows)
}

// CountRuns returns the number of recorded runs
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count run records: %w", err)
	}
	return count, nil
}

func scanRunRecord(rows *sql.Rows) (*RunRecord, error) {
	rec := &RunRecord{}
	var workflow, planTasks, errs, failureTypes, insights sql.NullString
	var durationMs int64

	err := rows.Scan(
		&rec.ID,
		&rec.RunID,
		&rec.Goal,
		&rec.Plan.TaskCount,
		&workflow,
		&planTasks,
		&rec.Execution.CompletedTasks,
		&rec.Execution.FailedTasks,
		&rec.Execution.RecoveredTasks,
		&durationMs,
		&errs,
		&failureTypes,
		&rec.Reflection.SuccessRate,
		&rec.Reflection.Score,
		&insights,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan run record: %w", err)
	}

	if workflow.Valid {
		rec.Plan.WorkflowName = workflow.String
	}
	rec.Execution.TotalDuration = time.Duration(durationMs) * time.Millisecond

	if err := unmarshalJSON(planTasks, &rec.Plan.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal plan tasks: %w", err)
	}
	if err := unmarshalJSON(errs, &rec.Execution.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := unmarshalJSON(failureTypes, &rec.Execution.FailureTypes); err != nil {
		return nil, fmt.Errorf("unmarshal failure types: %w", err)
	}
	if err := unmarshalJSON(insights, &rec.Reflection.Insights); err != nil {
		return nil, fmt.Errorf("unmarshal insights: %w", err)
	}

	return rec, nil
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSON(src sql.NullString, dst interface{}) error {
	if !src.Valid || src.String == "" || src.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(src.String), dst)
}
