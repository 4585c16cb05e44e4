package quota

import (
	"math"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/normalize"
)

// milestoneKey groups entries by project code and milestone
type milestoneKey struct {
	project   string
	milestone string
}

type employeeKey struct {
	employee string
	milestoneKey
}

// projectCode is the canonical grouping key of a project: its leading token
func projectCode(project string) string {
	variants := normalize.ProjectVariants(project)
	if len(variants) == 0 {
		return ""
	}
	return variants[len(variants)-1]
}

// Row is the input of one quota evaluation
type Row struct {
	Employee  string
	Project   string
	Milestone string
	Month     normalize.Month
	Hours     float64
	Record    *budget.BudgetRecord
}

// Assessment is the quota outcome of a row
type Assessment struct {
	Kind     Kind
	Pool     Pool
	Quota    float64
	Actual   float64
	Percent  float64
	Eligible bool
}

// Engine evaluates quotas against all loaded time entries
type Engine struct {
	rules   Rules
	figures map[milestoneKey]normalize.MilestoneFigures

	monthlyByMilestone map[milestoneKey]map[normalize.Month]float64
	monthlyByRecord    map[int]map[normalize.Month]float64
	monthlyByEmployee  map[employeeKey]map[normalize.Month]float64

	logger *zap.Logger
}

// NewEngine indexes the master figures and every loaded entry. Entries must
// not be filtered beforehand so back-calculation sees all later months.
func NewEngine(rules Rules, index *budget.Index, master []normalize.MasterRow, entries []normalize.TimeEntry, logger *zap.Logger) *Engine {
	e := &Engine{
		rules:              rules,
		figures:            make(map[milestoneKey]normalize.MilestoneFigures),
		monthlyByMilestone: make(map[milestoneKey]map[normalize.Month]float64),
		monthlyByRecord:    make(map[int]map[normalize.Month]float64),
		monthlyByEmployee:  make(map[employeeKey]map[normalize.Month]float64),
		logger:             logger,
	}

	for key, fig := range normalize.MilestoneHours(master) {
		k := milestoneKey{project: projectCode(key.Project), milestone: key.Milestone}
		agg := e.figures[k]
		agg.BudgetHours += fig.BudgetHours
		agg.ActualHours += fig.ActualHours
		e.figures[k] = agg
	}

	for _, entry := range entries {
		k := milestoneKey{project: projectCode(entry.ProjectCode), milestone: entry.Milestone}
		month := entry.Month()
		addHours(e.monthlyByMilestone, k, month, entry.Hours)
		addHours(e.monthlyByEmployee, employeeKey{employee: entry.Employee, milestoneKey: k}, month, entry.Hours)
		if index == nil {
			continue
		}
		if rec, ok := index.Resolve(entry.ProjectCode, entry.Milestone); ok {
			addHours(e.monthlyByRecord, rec.LookupID, month, entry.Hours)
		}
	}

	logger.Debug("Quota engine indexed",
		zap.Int("milestones", len(e.monthlyByMilestone)),
		zap.Int("records", len(e.monthlyByRecord)))
	return e
}

func addHours[K comparable](m map[K]map[normalize.Month]float64, key K, month normalize.Month, hours float64) {
	byMonth, ok := m[key]
	if !ok {
		byMonth = make(map[normalize.Month]float64)
		m[key] = byMonth
	}
	byMonth[month] += hours
}

func sumAfter(byMonth map[normalize.Month]float64, month normalize.Month) float64 {
	var total float64
	for m, h := range byMonth {
		if month.Before(m) {
			total += h
		}
	}
	return total
}

func sumBefore(byMonth map[normalize.Month]float64, month normalize.Month) float64 {
	var total float64
	for m, h := range byMonth {
		if m.Before(month) {
			total += h
		}
	}
	return total
}

func sumQuarterThrough(byMonth map[normalize.Month]float64, month normalize.Month) float64 {
	var total float64
	for _, m := range month.Quarter().Months() {
		total += byMonth[m]
		if m == month {
			break
		}
	}
	return total
}

// Rules returns the rules the engine evaluates with
func (e *Engine) Rules() Rules {
	return e.rules
}

// ActualAsOf back-calculates the cumulative actual hours of a milestone at
// the end of month: the master's to-date figure minus the hours every
// employee logged in strictly later months.
func (e *Engine) ActualAsOf(project, milestone string, month normalize.Month) float64 {
	k := milestoneKey{project: projectCode(project), milestone: milestone}
	return e.figures[k].ActualHours - sumAfter(e.monthlyByMilestone[k], month)
}

// RecordActualAsOf is ActualAsOf for a whole budget record
func (e *Engine) RecordActualAsOf(rec *budget.BudgetRecord, month normalize.Month) float64 {
	return rec.ActualHours - sumAfter(e.monthlyByRecord[rec.LookupID], month)
}

// RecordPriorTo returns the hours billed on a record before month: its
// cumulative actual minus everything logged from month onwards. The result
// never drops below the hours the loaded entries show for earlier months.
func (e *Engine) RecordPriorTo(rec *budget.BudgetRecord, month normalize.Month) float64 {
	byMonth := e.monthlyByRecord[rec.LookupID]
	prior := rec.ActualHours - sumAfter(byMonth, month) - byMonth[month]
	return math.Max(math.Max(prior, sumBefore(byMonth, month)), 0)
}

// MonthlyShares splits the as-of figures of a quarter into per-month
// increments. The increments sum to the as-of value at quarter end.
func (e *Engine) MonthlyShares(project, milestone string, q normalize.Quarter) []float64 {
	months := q.Months()
	shares := make([]float64, len(months))
	prev := 0.0
	for i, m := range months {
		asOf := e.ActualAsOf(project, milestone, m)
		if i == 0 {
			shares[i] = asOf
		} else {
			shares[i] = asOf - prev
		}
		prev = asOf
	}
	return shares
}

// EmployeeHours returns the hours one employee logged on a milestone in month
func (e *Engine) EmployeeHours(employee, project, milestone string, month normalize.Month) float64 {
	k := employeeKey{employee: employee, milestoneKey: milestoneKey{project: projectCode(project), milestone: milestone}}
	return e.monthlyByEmployee[k][month]
}

// QuarterToDate returns the hours one employee logged on a milestone from
// quarter start through month inclusive.
func (e *Engine) QuarterToDate(employee, project, milestone string, month normalize.Month) float64 {
	k := employeeKey{employee: employee, milestoneKey: milestoneKey{project: projectCode(project), milestone: milestone}}
	return sumQuarterThrough(e.monthlyByEmployee[k], month)
}

// Evaluate computes quota, displayed actual and percentage of a row
func (e *Engine) Evaluate(row Row) Assessment {
	a := Assessment{Kind: e.rules.Classify(row.Milestone)}
	if e.rules.IsInternal(row.Project) {
		a.Pool = Internal
		e.evaluateInternal(row, &a)
	} else {
		a.Pool = Ordinary
		e.evaluateOrdinary(row, &a)
	}

	if a.Quota > 0 {
		a.Percent = a.Actual / a.Quota * 100
	}
	a.Eligible = a.Percent <= 100
	return a
}

func (e *Engine) evaluateInternal(row Row, a *Assessment) {
	if hours, ok := lookupRule(e.rules.MonthlyRules, row.Milestone); ok {
		a.Kind, a.Quota = Monthly, hours
	} else if hours, ok := lookupRule(e.rules.QuarterlyRules, row.Milestone); ok {
		a.Kind, a.Quota = Quarterly, hours
	} else if hours, kind, ok := ExtractBudgetFromName(row.Milestone); ok {
		a.Kind, a.Quota = kind, hours
	}

	// internal quotas reset every period and are never back-calculated
	if a.Kind == Quarterly {
		a.Actual = e.QuarterToDate(row.Employee, row.Project, row.Milestone, row.Month)
		return
	}
	a.Actual = e.EmployeeHours(row.Employee, row.Project, row.Milestone, row.Month)
}

func (e *Engine) evaluateOrdinary(row Row, a *Assessment) {
	fig, direct := e.figures[milestoneKey{project: projectCode(row.Project), milestone: row.Milestone}]

	if a.Kind == Quarterly {
		if hours, _, ok := ExtractBudgetFromName(row.Milestone); ok {
			a.Quota = hours
		} else if hours, ok := lookupRule(e.rules.QuarterlyRules, row.Milestone); ok {
			a.Quota = hours
		} else if direct && fig.BudgetHours > 0 {
			a.Quota = fig.BudgetHours
		} else if row.Record != nil {
			a.Quota = row.Record.BudgetHours
		}
		a.Actual = e.QuarterToDate(row.Employee, row.Project, row.Milestone, row.Month)
		return
	}

	if hours, kind, ok := ExtractBudgetFromName(row.Milestone); ok && kind == Monthly {
		a.Quota = hours
		a.Actual = e.EmployeeHours(row.Employee, row.Project, row.Milestone, row.Month)
		return
	}
	switch {
	case direct && fig.BudgetHours > 0:
		a.Quota = fig.BudgetHours
		a.Actual = e.ActualAsOf(row.Project, row.Milestone, row.Month)
	case row.Record != nil:
		a.Quota = row.Record.BudgetHours
		a.Actual = e.RecordActualAsOf(row.Record, row.Month)
	default:
		a.Actual = e.ActualAsOf(row.Project, row.Milestone, row.Month)
	}
	if a.Actual < 0 {
		a.Actual = 0
	}
}
