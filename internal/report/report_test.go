package report

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/graph"
	"github.com/garyjia/bonus-report/internal/normalize"
)

const (
	testProject   = "1234.01 Testprojekt"
	testMilestone = "(p) 1.1 Milestone"
)

var july = normalize.Month{Year: 2025, Month: time.July}

func master(rows ...normalize.MasterRow) []normalize.MasterRow { return rows }

func billedRow(project, workPackage string, hours, amount float64) normalize.MasterRow {
	return normalize.MasterRow{
		Project:      project,
		WorkPackage:  workPackage,
		Milestone:    normalize.NormalizeMilestone(workPackage),
		Billed:       true,
		BudgetHours:  hours,
		ActualHours:  math.NaN(),
		TargetAmount: amount,
		BilledAmount: math.NaN(),
		ActualCost:   math.NaN(),
	}
}

func timeEntry(employee, project, milestone string, month time.Month, day int, hours float64) normalize.TimeEntry {
	return normalize.TimeEntry{
		Employee:    employee,
		ProjectCode: project,
		Milestone:   milestone,
		Date:        time.Date(2025, month, day, 0, 0, 0, 0, time.UTC),
		Hours:       hours,
	}
}

func buildReport(t *testing.T, opts Options, rows []normalize.MasterRow, entries []normalize.TimeEntry) *Report {
	t.Helper()
	rep, err := NewGenerator(opts, zap.NewNop()).Build(context.Background(), rows, entries, nil)
	require.NoError(t, err)
	return rep
}

func value(rep *Report, ref graph.Ref) float64 {
	return rep.Value(ref).Float()
}

func lookupRow(t *testing.T, rep *Report, employee string) *Row {
	t.Helper()
	row, ok := rep.Row(employee, testProject, testMilestone, july)
	require.True(t, ok, "row of %s", employee)
	return row
}

func TestReport_LumpSumScenario(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, testMilestone, time.July, 1, 40),
			timeEntry("B", testProject, testMilestone, time.July, 2, 30),
		})

	a, b := lookupRow(t, rep, "A"), lookupRow(t, rep, "B")
	require.NotNil(t, a.Record)
	assert.Equal(t, budget.LumpSum, a.Record.BillingType)
	assert.InDelta(t, 10.0, value(rep, a.RateRef()), 1e-9)

	assert.InDelta(t, 400.0, value(rep, a.RevenueRef()), 1e-9)
	assert.InDelta(t, 300.0, value(rep, b.RevenueRef()), 1e-9)
	assert.InDelta(t, 400.0, value(rep, a.PossibleRef()), 1e-9)
	assert.InDelta(t, 300.0, value(rep, b.PossibleRef()), 1e-9)
	assert.InDelta(t, 0.0, value(rep, a.LostRef()), 1e-9)
	assert.InDelta(t, 0.0, value(rep, b.LostRef()), 1e-9)

	assert.InDelta(t, 700.0, rep.CumulativeRevenue(a.Record.LookupID, july), 1e-9)
	assert.InDelta(t, 700.0, value(rep, a.CumulativeRef()), 1e-9)
	assert.InDelta(t, 700.0, value(rep, b.CumulativeRef()), 1e-9)
	assert.InDelta(t, 700.0, value(rep, rep.Totals().Revenue), 1e-9)
	assert.InDelta(t, 70.0, value(rep, rep.Totals().Hours), 1e-9)
}

func TestReport_LumpSumCap(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, testMilestone, time.July, 1, 80),
			timeEntry("B", testProject, testMilestone, time.July, 2, 40),
		})

	a, b := lookupRow(t, rep, "A"), lookupRow(t, rep, "B")
	assert.InDelta(t, 800.0, value(rep, a.RevenueRef()), 1e-9)
	assert.InDelta(t, 200.0, value(rep, b.RevenueRef()), 1e-9)
	assert.InDelta(t, 400.0, value(rep, b.PossibleRef()), 1e-9)
	assert.InDelta(t, 200.0, value(rep, b.LostRef()), 1e-9)

	total := rep.CumulativeRevenue(a.Record.LookupID, july)
	assert.LessOrEqual(t, total, 1000.0)
	for _, row := range rep.Rows() {
		assert.GreaterOrEqual(t, value(rep, row.LostRef()), 0.0)
	}
}

func TestReport_LumpSumCapAcrossConsumers(t *testing.T) {
	august := normalize.Month{Year: 2025, Month: time.August}
	subRow := func(workPackage string, hours, amount float64) normalize.MasterRow {
		return normalize.MasterRow{Project: testProject, WorkPackage: workPackage, Milestone: workPackage,
			BudgetHours: hours, ActualHours: math.NaN(), TargetAmount: amount, BilledAmount: math.NaN(), ActualCost: math.NaN()}
	}

	tests := []struct {
		name    string
		rows    []normalize.MasterRow
		entries []normalize.TimeEntry
		roles   map[string]budget.Role
		revenue map[string]float64
	}{
		{
			name: "role rate above the average rate",
			rows: master(
				billedRow(testProject, testMilestone, 100, 1000),
				subRow("Projektleitung", 20, 400),
				subRow("Zeichnung", 80, 600),
			),
			entries: []normalize.TimeEntry{
				timeEntry("A", testProject, testMilestone, time.July, 1, 50),
				timeEntry("B", testProject, testMilestone, time.July, 2, 20),
			},
			roles:   map[string]budget.Role{"A": budget.RoleLead, "B": budget.RoleLead},
			revenue: map[string]float64{"A": 1000, "B": 0},
		},
		{
			name: "consumers in several months",
			rows: master(billedRow(testProject, testMilestone, 100, 1000)),
			entries: []normalize.TimeEntry{
				timeEntry("A", testProject, testMilestone, time.July, 1, 80),
				timeEntry("A", testProject, testMilestone, time.August, 1, 80),
			},
			revenue: map[string]float64{"A": 1000},
		},
		{
			name: "later month consumer of another employee",
			rows: master(billedRow(testProject, testMilestone, 100, 1000)),
			entries: []normalize.TimeEntry{
				timeEntry("A", testProject, testMilestone, time.August, 1, 60),
				timeEntry("B", testProject, testMilestone, time.July, 1, 60),
			},
			revenue: map[string]float64{"A": 400, "B": 600},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := buildReport(t, DefaultOptions(), tt.rows, tt.entries)
			for employee, role := range tt.roles {
				require.NoError(t, rep.SetRole(employee, role))
			}

			var total float64
			for _, row := range rep.Rows() {
				require.NotNil(t, row.Record)
				total += value(rep, row.RevenueRef())
				assert.GreaterOrEqual(t, value(rep, row.LostRef()), 0.0)
			}
			assert.LessOrEqual(t, total, 1000.0+1e-9)

			for employee, want := range tt.revenue {
				sheet, ok := rep.Employee(employee)
				require.True(t, ok)
				assert.InDelta(t, want, value(rep, sheet.Quarter.Revenue), 1e-9, employee)
			}
			id := rep.Rows()[0].Record.LookupID
			assert.InDelta(t, total, rep.CumulativeRevenue(id, july)+rep.CumulativeRevenue(id, august), 1e-9)
		})
	}
}

func TestReport_ConsumedChain(t *testing.T) {
	row := billedRow(testProject, testMilestone, 100, 1000)
	row.ActualHours = 130
	rep := buildReport(t, DefaultOptions(), master(row), []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 10),
		timeEntry("B", testProject, testMilestone, time.July, 2, 10),
		timeEntry("A", testProject, testMilestone, time.August, 1, 10),
	})

	a, b := lookupRow(t, rep, "A"), lookupRow(t, rep, "B")
	aug, ok := rep.Row("A", testProject, testMilestone, normalize.Month{Year: 2025, Month: time.August})
	require.True(t, ok)

	assert.Equal(t, 100.0, value(rep, a.PriorRef()))
	assert.Equal(t, 100.0, value(rep, aug.PriorRef()), "prior is fixed at quarter start")
	assert.InDelta(t, 1000.0, value(rep, a.ConsumedRef()), 1e-9)
	assert.InDelta(t, 0.0, value(rep, a.RevenueRef()), 1e-9)
	assert.InDelta(t, 1000.0, value(rep, b.ConsumedRef()), 1e-9)
	assert.InDelta(t, 1000.0, value(rep, aug.ConsumedRef()), 1e-9)
	assert.InDelta(t, 100.0, value(rep, aug.LostRef()), 1e-9)

	t.Run("hourly predecessors do not consume the amount", func(t *testing.T) {
		rep := buildReport(t, DefaultOptions(),
			master(billedRow(testProject, testMilestone, 100, 1000)),
			[]normalize.TimeEntry{
				timeEntry("A", testProject, testMilestone, time.July, 1, 60),
				timeEntry("B", testProject, testMilestone, time.July, 2, 60),
			})
		a, b := lookupRow(t, rep, "A"), lookupRow(t, rep, "B")
		assert.InDelta(t, 400.0, value(rep, b.RevenueRef()), 1e-9)

		require.NoError(t, rep.OverrideBilling(a, budget.Hourly))
		assert.InDelta(t, 600.0, value(rep, a.RevenueRef()), 1e-9)
		assert.InDelta(t, 0.0, value(rep, b.ConsumedRef()), 1e-9)
		assert.InDelta(t, 600.0, value(rep, b.RevenueRef()), 1e-9)
	})
}

func TestReport_Reallocation(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, testMilestone, time.July, 1, 12),
			timeEntry("B", testProject, testMilestone, time.July, 2, 3),
			timeEntry("C", testProject, testMilestone, time.July, 3, 1),
		})
	a, b, c := lookupRow(t, rep, "A"), lookupRow(t, rep, "B"), lookupRow(t, rep, "C")

	assert.Equal(t, []string{"B", "C"}, rep.Candidates(a))
	assert.InDelta(t, 160.0, rep.CumulativeRevenue(a.Record.LookupID, july), 1e-9)

	require.NoError(t, rep.Reallocate(a, "B", 5))

	assert.Equal(t, 12.0, value(rep, a.HoursRef()), "logged hours are a raw fact")
	assert.Equal(t, 5.0, value(rep, a.TransferredRef()))
	assert.Equal(t, 5.0, value(rep, b.ReceivedRef()))
	assert.Equal(t, 0.0, value(rep, c.ReceivedRef()))
	assert.Equal(t, 0.0, value(rep, a.ReceivedRef()))
	assert.Equal(t, 7.0, value(rep, a.EffectiveRef()))
	assert.Equal(t, 8.0, value(rep, b.EffectiveRef()))

	assert.InDelta(t, 70.0, value(rep, a.RevenueRef()), 1e-9)
	assert.InDelta(t, 80.0, value(rep, b.RevenueRef()), 1e-9)
	assert.InDelta(t, 160.0, rep.CumulativeRevenue(a.Record.LookupID, july), 1e-9)

	sheetA, _ := rep.Employee("A")
	sheetB, _ := rep.Employee("B")
	assert.Equal(t, 7.0, value(rep, sheetA.Quarter.Hours))
	assert.Equal(t, 8.0, value(rep, sheetB.Quarter.Hours))
	assert.Equal(t, 16.0, value(rep, rep.Totals().Hours))

	t.Run("transfer is capped by logged hours", func(t *testing.T) {
		require.NoError(t, rep.Reallocate(a, "C", 100))
		assert.Equal(t, 12.0, value(rep, a.TransferredRef()))
		assert.Equal(t, 0.0, value(rep, b.ReceivedRef()))
		assert.Equal(t, 12.0, value(rep, c.ReceivedRef()))
	})

	t.Run("clearing restores the original state", func(t *testing.T) {
		require.NoError(t, rep.Reallocate(a, "", 0))
		assert.Equal(t, 0.0, value(rep, a.TransferredRef()))
		assert.Equal(t, 0.0, value(rep, c.ReceivedRef()))
		assert.Equal(t, 12.0, value(rep, a.EffectiveRef()))
	})

	t.Run("targets outside the candidate set are rejected", func(t *testing.T) {
		err := rep.Reallocate(a, "Z", 1)
		assert.ErrorIs(t, err, ErrInvalidTarget)
		err = rep.Reallocate(a, "A", 1)
		assert.ErrorIs(t, err, ErrInvalidTarget)
	})
}

func TestReport_TransferBounds(t *testing.T) {
	const hours = 12.0
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, testMilestone, time.July, 1, hours),
			timeEntry("B", testProject, testMilestone, time.July, 2, 3),
		})
	a, b := lookupRow(t, rep, "A"), lookupRow(t, rep, "B")

	tests := []struct {
		adjustment  float64
		transferred float64
	}{
		{-1e9, hours},
		{-hours - 1, hours},
		{-hours, hours},
		{-0.5, 0.5},
		{0, 0},
		{5, 0},
		{1e9, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("adjustment %g", tt.adjustment), func(t *testing.T) {
			require.NoError(t, rep.Reallocate(a, "B", -tt.adjustment))
			assert.Equal(t, tt.adjustment, value(rep, a.AdjustmentRef()))

			transferred := value(rep, a.TransferredRef())
			assert.Equal(t, tt.transferred, transferred)
			assert.GreaterOrEqual(t, transferred, 0.0)
			assert.LessOrEqual(t, transferred, hours)
			assert.Equal(t, transferred, value(rep, b.ReceivedRef()))
			assert.Equal(t, hours+3, value(rep, a.EffectiveRef())+value(rep, b.EffectiveRef()))
			assert.Equal(t, hours+3, value(rep, rep.Totals().Hours))
		})
	}
}

func TestReport_RoleAndBilling(t *testing.T) {
	rows := master(
		billedRow(testProject, testMilestone, 100, 1000),
		normalize.MasterRow{Project: testProject, WorkPackage: "Projektleitung", Milestone: "Projektleitung",
			BudgetHours: 10, ActualHours: math.NaN(), TargetAmount: 200, BilledAmount: math.NaN(), ActualCost: math.NaN()},
		normalize.MasterRow{Project: testProject, WorkPackage: "Sachverständiger", Milestone: "Sachverständiger",
			BudgetHours: 90, ActualHours: math.NaN(), TargetAmount: 800, BilledAmount: math.NaN(), ActualCost: math.NaN()},
	)
	rep := buildReport(t, DefaultOptions(), rows, []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 10),
	})
	a := lookupRow(t, rep, "A")

	assert.InDelta(t, 800.0/90, value(rep, a.RateRef()), 1e-9)

	require.NoError(t, rep.SetRole("A", budget.RoleLead))
	assert.InDelta(t, 20.0, value(rep, a.RateRef()), 1e-9)
	assert.InDelta(t, 200.0, value(rep, a.RevenueRef()), 1e-9)

	require.NoError(t, rep.SetRole("A", budget.RoleNone))
	assert.Equal(t, 0.0, value(rep, a.RevenueRef()))
	assert.Equal(t, 0.0, value(rep, a.PossibleRef()))

	require.NoError(t, rep.SetRole("A", budget.RoleLumpSum))
	assert.InDelta(t, 100.0, value(rep, a.RevenueRef()), 1e-9, "PA earns the default rate on lump sums")

	require.NoError(t, rep.OverrideBilling(a, budget.Hourly))
	assert.Equal(t, 0.0, value(rep, a.RevenueRef()), "PA earns nothing on hourly records")

	require.NoError(t, rep.SetRole("A", budget.RoleExpert))
	assert.InDelta(t, 800.0/90*10, value(rep, a.RevenueRef()), 1e-9)
	assert.Equal(t, 0.0, value(rep, a.LostRef()))

	assert.ErrorIs(t, rep.SetRole("Nobody", budget.RoleLead), ErrUnknownEmployee)
	assert.ErrorIs(t, rep.SetRole("A", budget.Role("XX")), graph.ErrInvalidOption)
}

func TestReport_UnresolvedBudget(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, "9.9 Unbekannt", time.July, 1, 4),
		})

	require.Len(t, rep.Unresolved(), 1)
	row := rep.Unresolved()[0]
	assert.Equal(t, budget.Unknown.Label(), rep.Value(row.BillingRef()).Str)

	node, ok := rep.Graph().Node(row.BillingRef())
	require.True(t, ok)
	assert.Equal(t, ManualInputMarker, node.Flag)
	assert.Equal(t, 0.0, value(rep, row.RevenueRef()))

	require.NoError(t, rep.OverrideBilling(row, budget.Hourly))
	assert.Empty(t, node.Flag)
	require.NoError(t, rep.Edit(row.RateRef(), graph.NumberValue(50)))
	assert.Equal(t, 200.0, value(rep, row.RevenueRef()))
}

func TestReport_InternalQuotaAndCorrections(t *testing.T) {
	const internal = "Einarbeitung neuer Mitarbeiter (max. 8h/Monat pro MA)"
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", "0000 Allgemein", internal, time.July, 1, 10),
			timeEntry("A", testProject, testMilestone, time.July, 1, 5),
		})

	row, ok := rep.Row("A", "0000", internal, july)
	require.True(t, ok)
	assert.Equal(t, 8.0, row.Assessment.Quota)
	assert.InDelta(t, 125.0, value(rep, row.PercentRef()), 1e-9)
	assert.Equal(t, 0.0, value(rep, row.BonusRef()))

	sheet, ok := rep.Employee("A")
	require.True(t, ok)
	month := sheet.Months[0]
	assert.Equal(t, july, month.Month)
	assert.Equal(t, 15.0, value(rep, month.Hours))
	assert.Equal(t, 5.0, value(rep, month.Bonus))
	assert.Equal(t, 0.0, value(rep, month.InternalBonus))

	require.NoError(t, rep.Edit(month.InternalCorrection, graph.NumberValue(2)))
	assert.Equal(t, 2.0, value(rep, month.InternalBonus))
	assert.Equal(t, 2.0, value(rep, sheet.Quarter.InternalBonus))
	assert.Equal(t, 2.0, value(rep, rep.Totals().InternalBonus))

	require.NoError(t, rep.Edit(sheet.Quarter.BonusCorrection, graph.NumberValue(-1)))
	assert.Equal(t, 4.0, value(rep, sheet.Quarter.Bonus))

	assert.ErrorIs(t, rep.Edit(month.Hours, graph.NumberValue(1)), graph.ErrNotEditable)
}

func TestReport_MonthTotalsAndTransferHelper(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{
			timeEntry("A", testProject, testMilestone, time.July, 1, 10),
			timeEntry("B", testProject, testMilestone, time.July, 2, 5),
			timeEntry("B", testProject, testMilestone, time.August, 4, 3),
		})

	totals := rep.MonthTotals()
	require.Len(t, totals, 3)
	tests := []struct {
		month normalize.Month
		hours float64
	}{
		{july, 15},
		{normalize.Month{Year: 2025, Month: time.August}, 3},
		{normalize.Month{Year: 2025, Month: time.September}, 0},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.month, totals[i].Month)
		assert.Equal(t, tt.hours, value(rep, totals[i].Hours), tt.month.Label())
		assert.Equal(t, CoverSheet, totals[i].Hours.Sheet)
	}

	a, ok := rep.Employee("A")
	require.True(t, ok)
	require.Len(t, a.Transfer, 3)
	assert.Equal(t, 10.0, value(rep, a.Transfer[0].Hours))

	t.Run("corrections flow into both blocks", func(t *testing.T) {
		require.NoError(t, rep.Edit(a.Months[0].HoursCorrection, graph.NumberValue(2)))
		assert.Equal(t, 12.0, value(rep, a.Transfer[0].Hours))
		assert.Equal(t, 17.0, value(rep, totals[0].Hours))
		assert.Equal(t, 20.0, value(rep, rep.Totals().Hours))

		require.NoError(t, rep.Edit(a.Months[0].InternalCorrection, graph.NumberValue(1)))
		assert.Equal(t, 1.0, value(rep, a.Transfer[0].InternalBonus))
		assert.Equal(t, 1.0, value(rep, totals[0].InternalBonus))
	})
}

func TestReport_InvoiceAndComment(t *testing.T) {
	rep := buildReport(t, DefaultOptions(),
		master(billedRow(testProject, testMilestone, 100, 1000)),
		[]normalize.TimeEntry{timeEntry("A", testProject, testMilestone, time.July, 1, 4)})
	a := lookupRow(t, rep, "A")

	node, ok := rep.Graph().Node(a.InvoiceRef())
	require.True(t, ok)
	assert.Equal(t, []string{"SR", "AZ"}, node.Options)

	tests := []struct {
		name string
		ref  graph.Ref
		v    graph.Value
		err  error
	}{
		{"final invoice", a.InvoiceRef(), graph.TextValue("SR"), nil},
		{"installment", a.InvoiceRef(), graph.TextValue("AZ"), nil},
		{"unknown invoice kind", a.InvoiceRef(), graph.TextValue("XX"), graph.ErrInvalidOption},
		{"free comment", a.CommentRef(), graph.TextValue("Nachtrag prüfen, Kunde informiert"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rep.Edit(tt.ref, tt.v)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.v.Str, rep.Value(tt.ref).Str)
		})
	}
}

func TestReport_PriorMonthsReduceRemainingBudget(t *testing.T) {
	row := billedRow(testProject, testMilestone, 100, 1000)
	row.ActualHours = 110
	rep := buildReport(t, DefaultOptions(), master(row), []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 20),
	})

	a := lookupRow(t, rep, "A")
	assert.Equal(t, 90.0, value(rep, a.PriorRef()))
	assert.InDelta(t, 200.0, value(rep, a.PossibleRef()), 1e-9)
	assert.InDelta(t, 100.0, value(rep, a.RevenueRef()), 1e-9, "only 10h of budget remain")
	assert.InDelta(t, 100.0, value(rep, a.LostRef()), 1e-9)

	row.ActualHours = 60
	rep = buildReport(t, DefaultOptions(), master(row), []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 40),
	})
	a = lookupRow(t, rep, "A")
	assert.Equal(t, 20.0, value(rep, a.PriorRef()))
	assert.InDelta(t, 400.0, value(rep, a.RevenueRef()), 1e-9)
}

func TestGenerator_Filters(t *testing.T) {
	entries := []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 1),
		timeEntry("B", "5678 Anderes", "2.1 Planung", time.July, 1, 1),
		timeEntry("C", "0000 Allgemein", "Fortbildung", time.July, 1, 1),
	}
	rows := master(billedRow(testProject, testMilestone, 100, 1000))

	t.Run("exclude internal", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filter.ExcludeInternal = true
		rep := buildReport(t, opts, rows, entries)
		assert.Len(t, rep.Employees(), 2)
	})

	t.Run("employees", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filter.Employees = []string{"b"}
		rep := buildReport(t, opts, rows, entries)
		require.Len(t, rep.Employees(), 1)
		assert.Equal(t, "B", rep.Employees()[0].Employee)
	})

	t.Run("projects", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filter.Projects = []string{"1234"}
		rep := buildReport(t, opts, rows, entries)
		assert.Equal(t, []string{CoverSheet, OverviewSheet, "A"}, rep.Sheets())
	})

	t.Run("nothing left", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filter.Employees = []string{"Z"}
		_, err := NewGenerator(opts, zap.NewNop()).Build(context.Background(), rows, entries, nil)
		assert.ErrorIs(t, err, normalize.ErrNoDataFound)
	})
}

func TestGenerator_ProgressAndCancellation(t *testing.T) {
	rows := master(billedRow(testProject, testMilestone, 100, 1000))
	entries := []normalize.TimeEntry{
		timeEntry("A", testProject, testMilestone, time.July, 1, 1),
		timeEntry("B", testProject, testMilestone, time.July, 1, 1),
	}

	var seen []int
	_, err := NewGenerator(DefaultOptions(), zap.NewNop()).Build(context.Background(), rows, entries, func(p int, _ string) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewGenerator(DefaultOptions(), zap.NewNop()).Build(ctx, rows, entries, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMonotonicProgress(t *testing.T) {
	var seen []int
	p := NewProgress(func(percent int, _ string) { seen = append(seen, percent) })
	p.Report(10, "")
	p.Report(5, "")
	p.Report(150, "")
	assert.Equal(t, []int{10, 10, 100}, seen)
	assert.Equal(t, 100, p.Last())
}

func TestSheetNamer(t *testing.T) {
	n := newSheetNamer(CoverSheet, OverviewSheet)
	long := "Maximiliane Mustermann-Beispielfrau"
	first := n.name(long)
	second := n.name(long)
	assert.Equal(t, "Maximiliane Mustermann-Beispiel", first)
	assert.Len(t, []rune(second), 31)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "Übersicht (2)", n.name("Übersicht"))
	assert.Equal(t, "a_b(c)", n.name("a/b[c]"))
}
