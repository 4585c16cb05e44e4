package normalize

import "time"

// TimeEntry is one recorded timesheet line
type TimeEntry struct {
	Employee     string
	ProjectCode  string
	Milestone    string // normalized work-package name
	RawMilestone string
	Date         time.Time
	Hours        float64
	Purpose      string
}

// Month returns the calendar month of the entry
func (e TimeEntry) Month() Month {
	return MonthOf(e.Date)
}

// Quarter returns the calendar quarter of the entry
func (e TimeEntry) Quarter() Quarter {
	return e.Month().Quarter()
}

// MasterRow is one row of the budget master after decoding.
// Numeric fields are NaN when the cell is empty or malformed.
type MasterRow struct {
	Line         int
	Project      string
	WorkPackage  string
	Milestone    string
	Billed       bool
	BudgetHours  float64
	ActualHours  float64
	TargetAmount float64
	BilledAmount float64
	ActualCost   float64
}

// ColumnAliases lists the accepted header names per budget-master column
type ColumnAliases struct {
	Project      []string `mapstructure:"project"`
	WorkPackage  []string `mapstructure:"work_package"`
	BilledMarker []string `mapstructure:"billed_marker"`
	BudgetHours  []string `mapstructure:"budget_hours"`
	ActualHours  []string `mapstructure:"actual_hours"`
	TargetAmount []string `mapstructure:"target_amount"`
	BilledAmount []string `mapstructure:"billed_amount"`
	ActualCost   []string `mapstructure:"actual_cost"`
}

// DefaultColumnAliases returns the header names used by the budget export
func DefaultColumnAliases() ColumnAliases {
	return ColumnAliases{
		Project:      []string{"Projekte", "Projekt", "Project"},
		WorkPackage:  []string{"Arbeitspaket", "Meilenstein", "Work Package"},
		BilledMarker: []string{"Honorarbereich", "Abrechnungsposition"},
		BudgetHours:  []string{"Sollstunden Budget", "Sollstunden", "Budget Hours"},
		ActualHours:  []string{"Iststunden", "Actual Hours"},
		TargetAmount: []string{"Honorar Soll", "Sollhonorar", "Budget"},
		BilledAmount: []string{"Honorar abgerechnet", "Abgerechnet", "Billed"},
		ActualCost:   []string{"Istkosten", "Kosten Ist", "Actual Cost"},
	}
}
