package report

import (
	"sort"
	"strings"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
	"github.com/garyjia/bonus-report/internal/normalize"
	"github.com/garyjia/bonus-report/internal/quota"
)

// Filter narrows the entries that become report rows
type Filter struct {
	Projects        []string
	Employees       []string
	ExcludeInternal bool
}

func (f Filter) match(e normalize.TimeEntry, rules quota.Rules) bool {
	if f.ExcludeInternal && rules.IsInternal(e.ProjectCode) {
		return false
	}
	if len(f.Employees) > 0 && !containsFold(f.Employees, e.Employee) {
		return false
	}
	if len(f.Projects) > 0 {
		project := strings.ToLower(strings.TrimSpace(e.ProjectCode))
		for _, p := range f.Projects {
			if p != "" && strings.HasPrefix(project, strings.ToLower(strings.TrimSpace(p))) {
				return true
			}
		}
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// transferKey identifies the rows between which hours can be moved
type transferKey struct {
	project   string
	milestone string
	month     normalize.Month
}

// Row is the aggregate of one employee's hours on one milestone in one month
type Row struct {
	Employee   string
	Project    string
	Milestone  string
	Month      normalize.Month
	Hours      float64
	Record     *budget.BudgetRecord
	Assessment quota.Assessment

	Sheet string
	Line  int

	index int
	key   transferKey
}

func (r *Row) ref(col int) graph.Ref { return graph.At(r.Sheet, col, r.Line) }

// Cell references of the row
func (r *Row) BillingRef() graph.Ref     { return r.ref(colBilling) }
func (r *Row) HoursRef() graph.Ref       { return r.ref(colHours) }
func (r *Row) PercentRef() graph.Ref     { return r.ref(colPercent) }
func (r *Row) AdjustmentRef() graph.Ref  { return r.ref(colAdjustment) }
func (r *Row) TargetRef() graph.Ref      { return r.ref(colTarget) }
func (r *Row) TransferredRef() graph.Ref { return r.ref(colTransferred) }
func (r *Row) ReceivedRef() graph.Ref    { return r.ref(colReceived) }
func (r *Row) EffectiveRef() graph.Ref   { return r.ref(colEffective) }
func (r *Row) BonusRef() graph.Ref       { return r.ref(colBonus) }
func (r *Row) RateRef() graph.Ref        { return r.ref(colRate) }
func (r *Row) PriorRef() graph.Ref       { return r.ref(colPrior) }
func (r *Row) PossibleRef() graph.Ref    { return r.ref(colPossible) }
func (r *Row) RevenueRef() graph.Ref     { return r.ref(colRevenue) }
func (r *Row) LostRef() graph.Ref        { return r.ref(colLost) }
func (r *Row) CumulativeRef() graph.Ref  { return r.ref(colCumulative) }
func (r *Row) ConsumedRef() graph.Ref    { return r.ref(colConsumed) }
func (r *Row) InvoiceRef() graph.Ref     { return r.ref(colInvoice) }
func (r *Row) CommentRef() graph.Ref     { return r.ref(colComment) }

type rowKey struct {
	employee string
	transferKey
}

// aggregateRows groups the quarter's entries per (employee, project,
// milestone, month) and orders them by employee, month, project, milestone.
func aggregateRows(entries []normalize.TimeEntry, q normalize.Quarter, filter Filter, rules quota.Rules) []*Row {
	byKey := make(map[rowKey]*Row)
	var rows []*Row
	for _, e := range entries {
		if !q.Contains(e.Month()) || !filter.match(e, rules) {
			continue
		}
		tk := transferKey{project: projectCode(e.ProjectCode), milestone: e.Milestone, month: e.Month()}
		k := rowKey{employee: e.Employee, transferKey: tk}
		row, ok := byKey[k]
		if !ok {
			row = &Row{
				Employee:  e.Employee,
				Project:   strings.TrimSpace(e.ProjectCode),
				Milestone: e.Milestone,
				Month:     e.Month(),
				key:       tk,
			}
			byKey[k] = row
			rows = append(rows, row)
		}
		row.Hours += e.Hours
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Employee != b.Employee {
			return a.Employee < b.Employee
		}
		if a.Month != b.Month {
			return a.Month.Before(b.Month)
		}
		if a.key.project != b.key.project {
			return a.key.project < b.key.project
		}
		return a.Milestone < b.Milestone
	})
	return rows
}

func projectCode(project string) string {
	variants := normalize.ProjectVariants(project)
	if len(variants) == 0 {
		return ""
	}
	return variants[len(variants)-1]
}
