package runner

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/models"
)

// RunStore persists runs
type RunStore interface {
	Create(tx *sql.Tx, run *models.ReportRun) error
	MarkRunning(tx *sql.Tx, runID string, startedAt time.Time) error
	Complete(tx *sql.Tx, run *models.ReportRun) error
}

// HistoryStore persists run status changes
type HistoryStore interface {
	Create(tx *sql.Tx, history *models.RunHistory) error
}

// recorder writes run state to the history database. Database failures
// are logged and never fail the run itself.
type recorder struct {
	runs    RunStore
	history HistoryStore
	logger  *zap.Logger
}

func (r *recorder) enabled() bool {
	return r != nil && r.runs != nil
}

func (r *recorder) queued(run *models.ReportRun) {
	if !r.enabled() {
		return
	}
	if err := r.runs.Create(nil, run); err != nil {
		r.logger.Warn("Failed to record queued run", zap.String("run_id", run.RunID), zap.Error(err))
		return
	}
	r.transition(run.RunID, "", models.RunStatusQueued, 0, "")
}

func (r *recorder) running(runID string, at time.Time) {
	if !r.enabled() {
		return
	}
	if err := r.runs.MarkRunning(nil, runID, at); err != nil {
		r.logger.Warn("Failed to record running run", zap.String("run_id", runID), zap.Error(err))
		return
	}
	r.transition(runID, models.RunStatusQueued, models.RunStatusRunning, 0, "")
}

func (r *recorder) completed(run *models.ReportRun, from string, progress int) {
	if !r.enabled() {
		return
	}
	if err := r.runs.Complete(nil, run); err != nil {
		r.logger.Warn("Failed to record finished run", zap.String("run_id", run.RunID), zap.Error(err))
		return
	}
	r.transition(run.RunID, from, run.Status, progress, run.ErrorMessage)
}

func (r *recorder) transition(runID, from, to string, progress int, message string) {
	if r.history == nil {
		return
	}
	err := r.history.Create(nil, &models.RunHistory{
		RunID:          runID,
		PreviousStatus: from,
		NewStatus:      to,
		Progress:       progress,
		Message:        message,
	})
	if err != nil {
		r.logger.Warn("Failed to record run history", zap.String("run_id", runID), zap.Error(err))
	}
}
