package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/models"
)

// HistoryRepository handles run status history database operations
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(tx *sql.Tx, history *models.RunHistory) error {
	query := `
		INSERT INTO run_history (
			run_id, previous_status, new_status, progress, message
		) VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query,
			history.RunID,
			history.PreviousStatus,
			history.NewStatus,
			history.Progress,
			history.Message,
		)
	} else {
		result, err = r.db.Exec(query,
			history.RunID,
			history.PreviousStatus,
			history.NewStatus,
			history.Progress,
			history.Message,
		)
	}

	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByRunID retrieves all history records of a run in order
func (r *HistoryRepository) GetByRunID(runID string) ([]*models.RunHistory, error) {
	query := `
		SELECT id, run_id, previous_status, new_status, progress, message, timestamp
		FROM run_history
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		r.logger.Error("Failed to get history by run ID", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*models.RunHistory
	for rows.Next() {
		var record models.RunHistory
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Progress,
			&record.Message,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
