package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/models"
)

// RunRepository handles report run database operations
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

const runColumns = `
	id, run_id, quarter, status, budget_path, times_path, output_path,
	employees, rows_count, unresolved, error_message, started_at, finished_at,
	created_at, updated_at`

// Create inserts a new run
func (r *RunRepository) Create(tx *sql.Tx, run *models.ReportRun) error {
	query := `
		INSERT INTO report_runs (
			run_id, quarter, status, budget_path, times_path
		) VALUES (?, ?, ?, ?, ?)
	`

	args := []interface{}{run.RunID, run.Quarter, run.Status, run.BudgetPath, run.TimesPath}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to create run", zap.String("run_id", run.RunID), zap.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// GetByRunID retrieves a run, or nil when it does not exist
func (r *RunRepository) GetByRunID(runID string) (*models.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE run_id = ?`

	run, err := scanRun(r.db.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get run", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first
func (r *RunRepository) ListRecent(limit int) ([]*models.ReportRun, error) {
	query := `SELECT ` + runColumns + ` FROM report_runs ORDER BY id DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		r.logger.Error("Failed to list runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ReportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkRunning records the start of a run
func (r *RunRepository) MarkRunning(tx *sql.Tx, runID string, startedAt time.Time) error {
	query := `UPDATE report_runs SET status = ?, started_at = ? WHERE run_id = ?`
	return r.exec(tx, "mark run running", runID, query, models.RunStatusRunning, startedAt, runID)
}

// Complete records the terminal state of a run
func (r *RunRepository) Complete(tx *sql.Tx, run *models.ReportRun) error {
	query := `
		UPDATE report_runs
		SET status = ?, quarter = ?, output_path = ?, employees = ?, rows_count = ?,
			unresolved = ?, error_message = ?, finished_at = ?
		WHERE run_id = ?
	`
	return r.exec(tx, "complete run", run.RunID, query,
		run.Status,
		run.Quarter,
		run.OutputPath,
		run.Employees,
		run.Rows,
		run.Unresolved,
		run.ErrorMessage,
		run.FinishedAt,
		run.RunID,
	)
}

func (r *RunRepository) exec(tx *sql.Tx, action, runID, query string, args ...interface{}) error {
	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.Exec(query, args...)
	} else {
		result, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to "+action, zap.String("run_id", runID), zap.Error(err))
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to %s: %w", action, ErrRunNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.ReportRun, error) {
	var run models.ReportRun
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.RunID,
		&run.Quarter,
		&run.Status,
		&run.BudgetPath,
		&run.TimesPath,
		&run.OutputPath,
		&run.Employees,
		&run.Rows,
		&run.Unresolved,
		&run.ErrorMessage,
		&startedAt,
		&finishedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	return &run, nil
}
