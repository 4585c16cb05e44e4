package report

import (
	"sort"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
)

func (b *builder) overviewColumn(col int) graph.Range {
	return graph.Column(OverviewSheet, col, overviewFirstRow, b.overviewLast)
}

// rateExpr picks the record's rate for the employee's current role through
// the lookup id, so renamed milestones keep their rates.
func (b *builder) rateExpr(id graph.Expr, role graph.Ref) graph.Expr {
	ids := b.overviewColumn(ovLookupID)
	roleIs := func(r budget.Role) graph.Expr {
		return graph.Eq(graph.Cell(role), graph.Str(string(r)))
	}
	lookup := func(col int) graph.Expr {
		return graph.Lookup(id, ids, b.overviewColumn(col))
	}
	return graph.If(roleIs(budget.RoleLead), lookup(ovRateLead),
		graph.If(roleIs(budget.RoleExpert), lookup(ovRateExpert),
			graph.If(roleIs(budget.RoleDrafter), lookup(ovRateDrafter),
				graph.If(roleIs(budget.RoleLumpSum), lookup(ovRateDefault), graph.Const(0)))))
}

// revenueCells lays out rate, prior hours, budget figures and the revenue
// cells of a row. Rows without a record get editable inputs flagged for
// manual completion.
func (b *builder) revenueCells(row *Row, role graph.Ref) {
	g := b.g
	if row.Record == nil {
		manual := []graph.Option{graph.Editable(), graph.Flagged(ManualInputMarker)}
		numberCell(g, row.RateRef(), 0, manual...)
		numberCell(g, row.PriorRef(), 0, graph.Editable())
		numberCell(g, row.ref(colBudgetHours), 0, manual...)
		numberCell(g, row.ref(colBudgetAmount), 0, manual...)
		numberCell(g, row.CumulativeRef(), 0)
		g.SetFormula(row.ConsumedRef(), priorShare(row), graph.Format(numberFormat))
	} else {
		id := graph.Cell(row.ref(colLookupID))
		ids := b.overviewColumn(ovLookupID)
		g.SetFormula(row.RateRef(), b.rateExpr(id, role), graph.Format(numberFormat))
		numberCell(g, row.PriorRef(), b.engine.RecordPriorTo(row.Record, b.rep.Quarter.First()))
		g.SetFormula(row.ref(colBudgetHours), graph.Lookup(id, ids, b.overviewColumn(ovBudgetHours)), graph.Format(numberFormat))
		g.SetFormula(row.ref(colBudgetAmount), graph.Lookup(id, ids, b.overviewColumn(ovBudgetAmount)), graph.Format(numberFormat))
		cumulative := b.rep.cumulative[cumulativeKey{lookupID: row.Record.LookupID, month: row.Month}]
		g.SetFormula(row.CumulativeRef(), graph.Cell(cumulative), graph.Format(numberFormat))
		g.SetPending(row.ConsumedRef(), consumedKey(row), graph.Format(numberFormat))
	}

	possible := graph.Mul(graph.Cell(row.RateRef()), graph.Cell(row.EffectiveRef()))
	g.SetFormula(row.PossibleRef(), possible, graph.Format(numberFormat))

	remaining := graph.Sub(graph.Cell(row.ref(colBudgetAmount)), graph.Cell(row.ConsumedRef()))
	capped := graph.Max(graph.Const(0), graph.Min(graph.Cell(row.PossibleRef()), remaining))

	isHourly := graph.Eq(graph.Cell(row.BillingRef()), graph.Str(budget.Hourly.Label()))
	lumpSumOnly := graph.Eq(graph.Cell(role), graph.Str(string(budget.RoleLumpSum)))

	g.SetFormula(row.RevenueRef(),
		graph.If(isLumpSum(row), capped,
			graph.If(isHourly, graph.If(lumpSumOnly, graph.Const(0), graph.Cell(row.PossibleRef())), graph.Const(0))),
		graph.Format(numberFormat))
	g.SetFormula(row.LostRef(),
		graph.If(isLumpSum(row), graph.Sub(graph.Cell(row.PossibleRef()), graph.Cell(row.RevenueRef())), graph.Const(0)),
		graph.Format(numberFormat))
}

// priorShare is the part of the amount billed before the quarter
func priorShare(row *Row) graph.Expr {
	amount := graph.Cell(row.ref(colBudgetAmount))
	return graph.Mul(amount, graph.Div(graph.Cell(row.PriorRef()), graph.Cell(row.ref(colBudgetHours))))
}

func isLumpSum(row *Row) graph.Expr {
	return graph.Eq(graph.Cell(row.BillingRef()), graph.Str(budget.LumpSum.Label()))
}

// resolveConsumed chains the consumers of every record in month then sheet
// order. The first consumer starts from the share billed before the
// quarter and every later one adds the lump-sum revenue of its predecessor.
func (b *builder) resolveConsumed() {
	byRecord := make(map[int][]*Row)
	for _, row := range b.rep.rows {
		if row.Record != nil {
			byRecord[row.Record.LookupID] = append(byRecord[row.Record.LookupID], row)
		}
	}
	for _, consumers := range byRecord {
		sort.SliceStable(consumers, func(i, j int) bool {
			if consumers[i].Month != consumers[j].Month {
				return consumers[i].Month.Before(consumers[j].Month)
			}
			return consumers[i].index < consumers[j].index
		})
		for i, row := range consumers {
			if i == 0 {
				b.pending[consumedKey(row)] = priorShare(row)
				continue
			}
			prev := consumers[i-1]
			b.pending[consumedKey(row)] = graph.Add(graph.Cell(prev.ConsumedRef()),
				graph.If(isLumpSum(prev), graph.Cell(prev.RevenueRef()), graph.Const(0)))
		}
	}
}

// resolveCumulative fills the overview's per-month revenue of every record
// with the sum of all consuming revenue cells.
func (b *builder) resolveCumulative() {
	consumers := make(map[cumulativeKey][]graph.Expr)
	for _, row := range b.rep.rows {
		if row.Record == nil {
			continue
		}
		k := cumulativeKey{lookupID: row.Record.LookupID, month: row.Month}
		consumers[k] = append(consumers[k], graph.Cell(row.RevenueRef()))
	}
	for k := range b.rep.cumulative {
		b.pending[cumulativeKeyName(k.lookupID, k.month)] = graph.Sum(consumers[k]...)
	}
}
