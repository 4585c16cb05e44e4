package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
	"github.com/garyjia/bonus-report/internal/normalize"
)

// Totals are the cover sheet cells summing all employees
type Totals struct {
	Hours         graph.Ref
	Bonus         graph.Ref
	InternalBonus graph.Ref
	Revenue       graph.Ref
	Lost          graph.Ref
}

// MonthLine references the hour totals of one month
type MonthLine struct {
	Month         normalize.Month
	Hours         graph.Ref
	Bonus         graph.Ref
	InternalBonus graph.Ref
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func moneyCell(g *graph.Graph, ref graph.Ref, v decimal.Decimal) {
	numberCell(g, ref, v.InexactFloat64())
}

// layoutOverview writes one line per budget record. The per-month revenue
// cells stay pending until every employee sheet exists.
func (b *builder) layoutOverview() {
	g, sheet := b.g, OverviewSheet
	months := b.rep.Quarter.Months()

	textCell(g, graph.At(sheet, 1, overviewTitleRow), fmt.Sprintf("Projekt-Budget-Übersicht %s", b.rep.Quarter))
	titles := append([]string{}, overviewHeader...)
	for _, m := range months {
		titles = append(titles, "Umsatz "+m.Label())
	}
	titles = append(titles, "Umsatz Quartal")
	header(g, sheet, overviewHeaderRow, titles)

	quarterCol := ovFirstMonth + len(months)
	var budgetTotal, billedTotal, costTotal decimal.Decimal
	line := overviewFirstRow
	for _, rec := range b.rep.records {
		at := func(col int) graph.Ref { return graph.At(sheet, col, line) }

		g.SetLiteral(at(ovLookupID), graph.NumberValue(float64(rec.LookupID)))
		textCell(g, at(ovProject), rec.Project)
		textCell(g, at(ovMilestone), rec.Milestone)
		if rec.BillingType == budget.Unknown {
			textCell(g, at(ovBilling), rec.BillingType.Label(), graph.Flagged(ManualInputMarker))
		} else {
			textCell(g, at(ovBilling), rec.BillingType.Label())
		}

		moneyCell(g, at(ovBudgetAmount), money(rec.BudgetAmount))
		numberCell(g, at(ovBudgetHours), rec.BudgetHours)
		numberCell(g, at(ovActualHours), rec.ActualHours)
		moneyCell(g, at(ovBilledAmount), money(rec.BilledAmount))
		moneyCell(g, at(ovActualCost), money(rec.ActualCost))
		numberCell(g, at(ovRateLead), rec.Rate(budget.RoleLead))
		numberCell(g, at(ovRateExpert), rec.Rate(budget.RoleExpert))
		numberCell(g, at(ovRateDrafter), rec.Rate(budget.RoleDrafter))
		numberCell(g, at(ovRateDefault), rec.DefaultRate)
		addendum := "Nein"
		if rec.Addendum {
			addendum = "Ja"
		}
		textCell(g, at(ovAddendum), addendum)

		monthRefs := make([]graph.Ref, 0, len(months))
		for j, m := range months {
			ref := at(ovFirstMonth + j)
			g.SetPending(ref, cumulativeKeyName(rec.LookupID, m), graph.Format(numberFormat))
			b.rep.cumulative[cumulativeKey{lookupID: rec.LookupID, month: m}] = ref
			monthRefs = append(monthRefs, ref)
		}
		g.SetFormula(at(quarterCol), graph.Sum(graph.Cells(monthRefs)...), graph.Format(numberFormat))

		budgetTotal = budgetTotal.Add(money(rec.BudgetAmount))
		billedTotal = billedTotal.Add(money(rec.BilledAmount))
		costTotal = costTotal.Add(money(rec.ActualCost))
		line++
	}
	b.overviewLast = line - 1

	textCell(g, graph.At(sheet, ovProject, line), "Summe")
	moneyCell(g, graph.At(sheet, ovBudgetAmount, line), budgetTotal)
	moneyCell(g, graph.At(sheet, ovBilledAmount, line), billedTotal)
	moneyCell(g, graph.At(sheet, ovActualCost, line), costTotal)
	for col := ovFirstMonth; col <= quarterCol; col++ {
		g.SetFormula(graph.At(sheet, col, line),
			graph.SumRange(graph.Column(sheet, col, overviewFirstRow, b.overviewLast)),
			graph.Format(numberFormat))
	}
}

// layoutCover writes one line per employee referencing their quarter
// summary, a total line and the month totals of all employees.
func (b *builder) layoutCover() {
	g, sheet := b.g, CoverSheet

	textCell(g, graph.At(sheet, 1, coverTitleRow),
		fmt.Sprintf("Quartalsübersicht %s - Zusammenfassung aller Mitarbeiter", b.rep.Quarter))
	header(g, sheet, coverHeaderRow, coverHeader)

	line := coverFirstRow
	for _, e := range b.rep.employees {
		textCell(g, graph.At(sheet, cvEmployee, line), e.Employee)
		g.SetFormula(graph.At(sheet, cvRole, line), graph.Cell(e.Role))
		refs := []graph.Ref{e.Quarter.Hours, e.Quarter.Bonus, e.Quarter.InternalBonus, e.Quarter.Revenue, e.Quarter.Lost}
		for i, ref := range refs {
			g.SetFormula(graph.At(sheet, cvHours+i, line), graph.Cell(ref), graph.Format(numberFormat))
		}
		line++
	}

	last := line - 1
	textCell(g, graph.At(sheet, cvEmployee, line), "Summe")
	total := func(col int) graph.Ref {
		ref := graph.At(sheet, col, line)
		g.SetFormula(ref, graph.SumRange(graph.Column(sheet, col, coverFirstRow, last)), graph.Format(numberFormat))
		return ref
	}
	b.rep.totals = Totals{
		Hours:         total(cvHours),
		Bonus:         total(cvBonus),
		InternalBonus: total(cvInternalBonus),
		Revenue:       total(cvRevenue),
		Lost:          total(cvLost),
	}

	line += 2
	textCell(g, graph.At(sheet, 1, line), "Monatliche Summen")
	line++
	header(g, sheet, line, monthLineHeader)
	line++
	for i, month := range b.rep.Quarter.Months() {
		var hours, bonus, internal []graph.Expr
		for _, e := range b.rep.employees {
			hours = append(hours, graph.Cell(e.Months[i].Hours))
			bonus = append(bonus, graph.Cell(e.Months[i].Bonus))
			internal = append(internal, graph.Cell(e.Months[i].InternalBonus))
		}
		b.rep.monthTotals = append(b.rep.monthTotals, b.monthLine(sheet, line, month, hours, bonus, internal))
		line++
	}
}

// monthLine writes "month | hours | bonus | internal bonus"
func (b *builder) monthLine(sheet string, line int, month normalize.Month, hours, bonus, internal []graph.Expr) MonthLine {
	m := MonthLine{
		Month:         month,
		Hours:         graph.At(sheet, 2, line),
		Bonus:         graph.At(sheet, 3, line),
		InternalBonus: graph.At(sheet, 4, line),
	}
	textCell(b.g, graph.At(sheet, 1, line), month.Label())
	b.g.SetFormula(m.Hours, graph.Sum(hours...), graph.Format(numberFormat))
	b.g.SetFormula(m.Bonus, graph.Sum(bonus...), graph.Format(numberFormat))
	b.g.SetFormula(m.InternalBonus, graph.Sum(internal...), graph.Format(numberFormat))
	return m
}
