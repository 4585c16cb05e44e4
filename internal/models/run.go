package models

import "time"

// ReportRun is one generation of a quarterly bonus workbook
type ReportRun struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	Quarter      string     `json:"quarter"`
	Status       string     `json:"status"` // QUEUED, RUNNING, SUCCEEDED, FAILED, CANCELLED
	BudgetPath   string     `json:"budget_path"`
	TimesPath    string     `json:"times_path"`
	OutputPath   string     `json:"output_path"`
	Employees    int        `json:"employees"`
	Rows         int        `json:"rows"`
	Unresolved   int        `json:"unresolved"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RunHistory is one status change of a run
type RunHistory struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// Run status constants
const (
	RunStatusQueued    = "QUEUED"
	RunStatusRunning   = "RUNNING"
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
	RunStatusCancelled = "CANCELLED"
)

// IsTerminal reports whether no further status change follows
func (r *ReportRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}
