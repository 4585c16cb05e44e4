package report

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
	"github.com/garyjia/bonus-report/internal/normalize"
)

// Summary holds the cells of one summary block. Revenue and Lost are only
// set on quarter summaries.
type Summary struct {
	Hours              graph.Ref
	Bonus              graph.Ref
	InternalBonus      graph.Ref
	HoursCorrection    graph.Ref
	BonusCorrection    graph.Ref
	InternalCorrection graph.Ref
	Revenue            graph.Ref
	Lost               graph.Ref
}

// MonthSummary is the summary block of one month
type MonthSummary struct {
	Month normalize.Month
	Summary
}

// EmployeeSheet is the sheet of one employee
type EmployeeSheet struct {
	Employee string
	Sheet    string
	Role     graph.Ref
	Rows     []*Row
	Months   []MonthSummary
	Quarter  Summary
	// Transfer mirrors the month summaries in the copy-out block
	Transfer []MonthLine
}

type cumulativeKey struct {
	lookupID int
	month    normalize.Month
}

// Report is the live cell graph of one quarterly report. Edits through its
// methods recompute every dependent cell.
type Report struct {
	Quarter normalize.Quarter

	graph       *graph.Graph
	employees   []*EmployeeSheet
	byEmployee  map[string]*EmployeeSheet
	rows        []*Row
	byTransfer  map[transferKey][]*Row
	records     []*budget.BudgetRecord
	cumulative  map[cumulativeKey]graph.Ref
	totals      Totals
	monthTotals []MonthLine

	logger *zap.Logger
}

// Graph exposes the underlying cell graph
func (r *Report) Graph() *graph.Graph {
	return r.graph
}

// Sheets returns the sheet names in workbook order
func (r *Report) Sheets() []string {
	out := []string{CoverSheet, OverviewSheet}
	for _, e := range r.employees {
		out = append(out, e.Sheet)
	}
	return out
}

// Employees returns the employee sheets in workbook order
func (r *Report) Employees() []*EmployeeSheet {
	return r.employees
}

// Employee returns the sheet of one employee
func (r *Report) Employee(name string) (*EmployeeSheet, bool) {
	e, ok := r.byEmployee[name]
	return e, ok
}

// Rows returns every report row in sheet order
func (r *Report) Rows() []*Row {
	return r.rows
}

// Row finds the row of an employee on a milestone in a month
func (r *Report) Row(employee, project, milestone string, month normalize.Month) (*Row, bool) {
	key := transferKey{project: projectCode(project), milestone: milestone, month: month}
	for _, row := range r.byTransfer[key] {
		if row.Employee == employee {
			return row, true
		}
	}
	return nil, false
}

// Records returns the budget records listed on the overview sheet
func (r *Report) Records() []*budget.BudgetRecord {
	return r.records
}

// Unresolved returns the rows without a governing budget record
func (r *Report) Unresolved() []*Row {
	var out []*Row
	for _, row := range r.rows {
		if row.Record == nil {
			out = append(out, row)
		}
	}
	return out
}

// Totals returns the cover sheet total cells
func (r *Report) Totals() Totals {
	return r.totals
}

// MonthTotals returns the cover sheet's per-month totals of all employees
func (r *Report) MonthTotals() []MonthLine {
	return r.monthTotals
}

// Value returns the current value of a cell
func (r *Report) Value(ref graph.Ref) graph.Value {
	return r.graph.Value(ref)
}

// CumulativeRevenue returns the revenue of all consumers of a record in month
func (r *Report) CumulativeRevenue(lookupID int, month normalize.Month) float64 {
	ref, ok := r.cumulative[cumulativeKey{lookupID: lookupID, month: month}]
	if !ok {
		return 0
	}
	return r.graph.Value(ref).Float()
}

// CumulativeRef returns the overview cell holding a record's revenue in month
func (r *Report) CumulativeRef(lookupID int, month normalize.Month) (graph.Ref, bool) {
	ref, ok := r.cumulative[cumulativeKey{lookupID: lookupID, month: month}]
	return ref, ok
}

// Candidates lists the employees who may receive hours from row: everyone
// else who logged time on the same project, milestone and month.
func (r *Report) Candidates(row *Row) []string {
	seen := make(map[string]struct{})
	for _, other := range r.byTransfer[row.key] {
		if other.Employee != row.Employee {
			seen[other.Employee] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reallocate moves hours of row to target. An empty target clears the
// transfer.
func (r *Report) Reallocate(row *Row, target string, hours float64) error {
	if target == "" {
		if _, err := r.graph.Set(row.TargetRef(), graph.Value{}); err != nil {
			return fmt.Errorf("failed to clear transfer target: %w", err)
		}
		if _, err := r.graph.Set(row.AdjustmentRef(), graph.NumberValue(0)); err != nil {
			return fmt.Errorf("failed to clear adjustment: %w", err)
		}
		return nil
	}

	if !containsFold(r.Candidates(row), target) {
		return fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	if _, err := r.graph.Set(row.TargetRef(), graph.TextValue(target)); err != nil {
		return fmt.Errorf("failed to set transfer target: %w", err)
	}
	if _, err := r.graph.Set(row.AdjustmentRef(), graph.NumberValue(-hours)); err != nil {
		return fmt.Errorf("failed to set adjustment: %w", err)
	}

	r.logger.Debug("Hours reallocated",
		zap.String("from", row.Employee),
		zap.String("to", target),
		zap.String("milestone", row.Milestone),
		zap.String("month", row.Month.String()),
		zap.Float64("hours", hours))
	return nil
}

// SetRole changes the role of an employee for all their rows
func (r *Report) SetRole(employee string, role budget.Role) error {
	sheet, ok := r.byEmployee[employee]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, employee)
	}
	if _, err := r.graph.Set(sheet.Role, graph.TextValue(string(role))); err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// OverrideBilling replaces the billing type of one row
func (r *Report) OverrideBilling(row *Row, billing budget.BillingType) error {
	if _, err := r.graph.Set(row.BillingRef(), graph.TextValue(billing.Label())); err != nil {
		return fmt.Errorf("failed to override billing type: %w", err)
	}
	if node, ok := r.graph.Node(row.BillingRef()); ok {
		node.Flag = ""
		if billing == budget.Unknown {
			node.Flag = ManualInputMarker
		}
	}
	return nil
}

// Edit writes any editable cell, e.g. a month or quarter correction
func (r *Report) Edit(ref graph.Ref, v graph.Value) error {
	if _, err := r.graph.Set(ref, v); err != nil {
		return fmt.Errorf("failed to edit %s: %w", ref, err)
	}
	return nil
}
