package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
	"github.com/garyjia/bonus-report/internal/normalize"
	"github.com/garyjia/bonus-report/internal/quota"
)

// builder compiles rows into the cell graph. Phase one lays out every sheet
// and leaves cross-sheet cells pending; phase two resolves them once all
// sheets exist.
type builder struct {
	g       *graph.Graph
	rep     *Report
	index   *budget.Index
	engine  *quota.Engine
	role    budget.Role
	namer   *sheetNamer
	logger  *zap.Logger
	pending map[string]graph.Expr

	overviewLast int
}

func newBuilder(q normalize.Quarter, index *budget.Index, engine *quota.Engine, role budget.Role, logger *zap.Logger) *builder {
	if role == "" {
		role = budget.DefaultRole
	}
	g := graph.New()
	return &builder{
		g:     g,
		index: index,
		rep: &Report{
			Quarter:    q,
			graph:      g,
			byEmployee: make(map[string]*EmployeeSheet),
			byTransfer: make(map[transferKey][]*Row),
			cumulative: make(map[cumulativeKey]graph.Ref),
			logger:     logger,
		},
		engine:  engine,
		role:    role,
		namer:   newSheetNamer(CoverSheet, OverviewSheet, ListSheet),
		logger:  logger,
		pending: make(map[string]graph.Expr),
	}
}

// build runs both phases. progress receives the number of finished
// employee sheets.
func (b *builder) build(ctx context.Context, rows []*Row, progress func(done, total int)) (*Report, error) {
	b.prepareRows(rows)
	b.layoutOverview()

	employees := b.groupEmployees(rows)
	for i, sheet := range employees {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("report generation aborted: %w", err)
		}
		b.layoutEmployee(sheet)
		if progress != nil {
			progress(i+1, len(employees))
		}
	}
	b.layoutCover()

	// phase two: all sheets exist, cross-sheet references can be filled in
	b.resolveReceived()
	b.resolveConsumed()
	b.resolveCumulative()
	resolved := b.g.ResolvePending(func(key string) (graph.Expr, bool) {
		expr, ok := b.pending[key]
		return expr, ok
	})
	b.logger.Debug("Pending references resolved", zap.Int("count", resolved))

	if err := b.g.Recalculate(); err != nil {
		return nil, fmt.Errorf("failed to recalculate report: %w", err)
	}
	return b.rep, nil
}

func (b *builder) prepareRows(rows []*Row) {
	seen := make(map[int]struct{})
	for i, row := range rows {
		row.index = i
		if rec, ok := b.index.Resolve(row.Project, row.Milestone); ok {
			row.Record = rec
			seen[rec.LookupID] = struct{}{}
		}
		row.Assessment = b.engine.Evaluate(quota.Row{
			Employee:  row.Employee,
			Project:   row.Project,
			Milestone: row.Milestone,
			Month:     row.Month,
			Hours:     row.Hours,
			Record:    row.Record,
		})
		b.rep.byTransfer[row.key] = append(b.rep.byTransfer[row.key], row)
	}
	b.rep.rows = rows
	b.rep.records = b.index.Records()

	if unresolved := len(b.rep.Unresolved()); unresolved > 0 {
		b.logger.Warn("Rows without budget record", zap.Int("rows", unresolved))
	}
}

func (b *builder) groupEmployees(rows []*Row) []*EmployeeSheet {
	var sheets []*EmployeeSheet
	for _, row := range rows {
		sheet, ok := b.rep.byEmployee[row.Employee]
		if !ok {
			sheet = &EmployeeSheet{
				Employee: row.Employee,
				Sheet:    b.namer.name(row.Employee),
			}
			b.rep.byEmployee[row.Employee] = sheet
			sheets = append(sheets, sheet)
		}
		row.Sheet = sheet.Sheet
		sheet.Rows = append(sheet.Rows, row)
	}
	b.rep.employees = sheets
	return sheets
}

func receivedKey(row *Row) string { return fmt.Sprintf("received:%d", row.index) }
func consumedKey(row *Row) string { return fmt.Sprintf("consumed:%d", row.index) }
func cumulativeKeyName(lookupID int, m normalize.Month) string {
	return fmt.Sprintf("cumulative:%d:%s", lookupID, m)
}

func (b *builder) layoutEmployee(sheet *EmployeeSheet) {
	g, name := b.g, sheet.Sheet

	textCell(g, graph.At(name, 1, employeeTitleRow), fmt.Sprintf("%s - Quartalsreport %s", sheet.Employee, b.rep.Quarter))
	textCell(g, graph.At(name, 1, employeeRoleRow), "Rolle")
	sheet.Role = graph.At(name, 2, employeeRoleRow)
	roles := make([]string, 0, len(budget.Roles()))
	for _, r := range budget.Roles() {
		roles = append(roles, string(r))
	}
	textCell(g, sheet.Role, string(b.role), graph.Editable(), graph.Dropdown(roles...))
	header(g, name, employeeHeaderRow, employeeHeader)

	line := employeeFirstRow
	byMonth := make(map[normalize.Month][]*Row)
	for _, row := range sheet.Rows {
		byMonth[row.Month] = append(byMonth[row.Month], row)
	}

	for _, month := range b.rep.Quarter.Months() {
		textCell(g, graph.At(name, colProject, line), month.Label())
		line++

		first := line
		for _, row := range byMonth[month] {
			row.Line = line
			b.layoutRow(row, sheet.Role)
			line++
		}
		summary := MonthSummary{Month: month}
		summary.Summary, line = b.monthSummary(name, month, byMonth[month], first, line)
		sheet.Months = append(sheet.Months, summary)
		line++
	}

	sheet.Quarter, line = b.quarterSummary(sheet, line)
	b.transferHelper(sheet, line+1)
}

func (b *builder) layoutRow(row *Row, role graph.Ref) {
	g := b.g
	a := row.Assessment

	textCell(g, row.ref(colProject), row.Project)
	textCell(g, row.ref(colMilestone), row.Milestone)

	billing := budget.Unknown
	if row.Record != nil {
		g.SetLiteral(row.ref(colLookupID), graph.NumberValue(float64(row.Record.LookupID)))
		billing = row.Record.BillingType
	} else {
		g.SetLiteral(row.ref(colLookupID), graph.Value{})
	}
	opts := []graph.Option{graph.Editable(), graph.Dropdown(budget.BillingLabels()...)}
	if billing == budget.Unknown {
		opts = append(opts, graph.Flagged(ManualInputMarker))
	}
	textCell(g, row.BillingRef(), billing.Label(), opts...)

	numberCell(g, row.HoursRef(), row.Hours)
	numberCell(g, row.ref(colQuota), a.Quota)
	numberCell(g, row.ref(colActual), a.Actual)
	g.SetFormula(row.PercentRef(),
		graph.Mul(graph.Div(graph.Cell(row.ref(colActual)), graph.Cell(row.ref(colQuota))), graph.Const(100)),
		graph.Format(numberFormat))

	b.reallocationCells(row)
	b.revenueCells(row, role)

	g.SetLiteral(row.InvoiceRef(), graph.Value{}, graph.Editable(), graph.Dropdown(invoiceOptions...))
	g.SetLiteral(row.CommentRef(), graph.Value{}, graph.Editable())
}

// reallocationCells lays out adjustment, target, transferred, received,
// effective and bonus hours of a row.
func (b *builder) reallocationCells(row *Row) {
	g := b.g
	candidates := b.rep.Candidates(row)

	numberCell(g, row.AdjustmentRef(), 0, graph.Editable())
	targetOpts := []graph.Option{graph.Editable()}
	if len(candidates) > 0 {
		targetOpts = append(targetOpts, graph.Dropdown(candidates...))
	}
	g.SetLiteral(row.TargetRef(), graph.Value{}, targetOpts...)

	hours := graph.Cell(row.HoursRef())
	g.SetFormula(row.TransferredRef(),
		graph.Max(graph.Const(0), graph.Min(hours, graph.Sub(graph.Const(0), graph.Cell(row.AdjustmentRef())))),
		graph.Format(numberFormat))
	g.SetPending(row.ReceivedRef(), receivedKey(row), graph.Format(numberFormat))
	g.SetFormula(row.EffectiveRef(),
		graph.Add(graph.Sub(hours, graph.Cell(row.TransferredRef())), graph.Cell(row.ReceivedRef())),
		graph.Format(numberFormat))
	g.SetFormula(row.BonusRef(),
		graph.If(graph.Le(graph.Cell(row.PercentRef()), graph.Const(100)), graph.Cell(row.EffectiveRef()), graph.Const(0)),
		graph.Format(numberFormat))
}

// summaryLine writes "label | base + correction | correction"
func (b *builder) summaryLine(sheet string, line int, label string, base []graph.Expr) (value, correction graph.Ref) {
	value = graph.At(sheet, summaryValueCol, line)
	correction = graph.At(sheet, summaryCorrectionCol, line)
	textCell(b.g, graph.At(sheet, summaryLabelCol, line), label)
	numberCell(b.g, correction, 0, graph.Editable())
	b.g.SetFormula(value, graph.Sum(append(base, graph.Cell(correction))...), graph.Format(numberFormat))
	return value, correction
}

func (b *builder) monthSummary(sheet string, month normalize.Month, rows []*Row, first, line int) (Summary, int) {
	var ordinary, internal []graph.Expr
	for _, row := range rows {
		if row.Assessment.Pool == quota.Internal {
			internal = append(internal, graph.Cell(row.BonusRef()))
		} else {
			ordinary = append(ordinary, graph.Cell(row.BonusRef()))
		}
	}

	var s Summary
	hours := graph.SumRange(graph.Column(sheet, colEffective, first, line-1))
	s.Hours, s.HoursCorrection = b.summaryLine(sheet, line, "Summe Stunden "+month.Label(), []graph.Expr{hours})
	line++
	s.Bonus, s.BonusCorrection = b.summaryLine(sheet, line, "Bonusberechtigte Stunden "+month.Label(), ordinary)
	line++
	s.InternalBonus, s.InternalCorrection = b.summaryLine(sheet, line, "Bonusberechtigte Stunden Sonderprojekt "+month.Label(), internal)
	line++
	return s, line
}

// quarterSummary sums the month summary cells, never the raw rows, so that
// month corrections carry into the quarter.
func (b *builder) quarterSummary(sheet *EmployeeSheet, line int) (Summary, int) {
	name := sheet.Sheet
	var hours, bonus, internal, revenue, lost []graph.Expr
	for _, m := range sheet.Months {
		hours = append(hours, graph.Cell(m.Hours))
		bonus = append(bonus, graph.Cell(m.Bonus))
		internal = append(internal, graph.Cell(m.InternalBonus))
	}
	for _, row := range sheet.Rows {
		revenue = append(revenue, graph.Cell(row.RevenueRef()))
		lost = append(lost, graph.Cell(row.LostRef()))
	}

	textCell(b.g, graph.At(name, summaryLabelCol, line), "Quartal "+b.rep.Quarter.String())
	line++

	var s Summary
	s.Hours, s.HoursCorrection = b.summaryLine(name, line, "Summe Stunden (Quartal)", hours)
	line++
	s.Bonus, s.BonusCorrection = b.summaryLine(name, line, "Bonusberechtigte Stunden (Quartal)", bonus)
	line++
	s.InternalBonus, s.InternalCorrection = b.summaryLine(name, line, "Bonusberechtigte Stunden Sonderprojekt (Quartal)", internal)
	line++

	s.Revenue = graph.At(name, summaryValueCol, line)
	textCell(b.g, graph.At(name, summaryLabelCol, line), "Umsatz (Quartal)")
	b.g.SetFormula(s.Revenue, graph.Sum(revenue...), graph.Format(numberFormat))
	line++

	s.Lost = graph.At(name, summaryValueCol, line)
	textCell(b.g, graph.At(name, summaryLabelCol, line), "Verlorener Umsatz (Quartal)")
	b.g.SetFormula(s.Lost, graph.Sum(lost...), graph.Format(numberFormat))
	return s, line + 1
}

// transferHelper repeats the month summaries with the employee name in a
// compact block that can be copied into other workbooks.
func (b *builder) transferHelper(sheet *EmployeeSheet, line int) {
	name := sheet.Sheet
	textCell(b.g, graph.At(name, 1, line), "Übertragshilfe")
	line++
	header(b.g, name, line, append([]string{"Mitarbeiter"}, monthLineHeader...))
	line++
	for _, m := range sheet.Months {
		textCell(b.g, graph.At(name, 1, line), sheet.Employee)
		t := MonthLine{
			Month:         m.Month,
			Hours:         graph.At(name, 3, line),
			Bonus:         graph.At(name, 4, line),
			InternalBonus: graph.At(name, 5, line),
		}
		textCell(b.g, graph.At(name, 2, line), m.Month.Label())
		b.g.SetFormula(t.Hours, graph.Cell(m.Hours), graph.Format(numberFormat))
		b.g.SetFormula(t.Bonus, graph.Cell(m.Bonus), graph.Format(numberFormat))
		b.g.SetFormula(t.InternalBonus, graph.Cell(m.InternalBonus), graph.Format(numberFormat))
		sheet.Transfer = append(sheet.Transfer, t)
		line++
	}
}

// resolveReceived fills every received cell with the transfers of the other
// rows at the same key that name this row's employee as target.
func (b *builder) resolveReceived() {
	for _, row := range b.rep.rows {
		var parts []graph.Expr
		for _, other := range b.rep.byTransfer[row.key] {
			if other.Employee == row.Employee {
				continue
			}
			parts = append(parts, graph.If(
				graph.Eq(graph.Cell(other.TargetRef()), graph.Str(row.Employee)),
				graph.Cell(other.TransferredRef()),
				graph.Const(0)))
		}
		b.pending[receivedKey(row)] = graph.Sum(parts...)
	}
}
