package quota

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/normalize"
)

func entry(employee, project, milestone string, year int, month time.Month, day int, hours float64) normalize.TimeEntry {
	return normalize.TimeEntry{
		Employee:    employee,
		ProjectCode: project,
		Milestone:   milestone,
		Date:        time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		Hours:       hours,
	}
}

func masterRow(project, milestone string, budgetHours, actualHours float64) normalize.MasterRow {
	return normalize.MasterRow{
		Project:      project,
		WorkPackage:  milestone,
		Milestone:    milestone,
		Billed:       true,
		BudgetHours:  budgetHours,
		ActualHours:  actualHours,
		TargetAmount: math.NaN(),
		BilledAmount: math.NaN(),
		ActualCost:   math.NaN(),
	}
}

func TestExtractBudgetFromName(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		kind  Kind
		ok    bool
	}{
		{name: "Einarbeitung (max. 8h/Monat pro MA)", hours: 8, kind: Monthly, ok: true},
		{name: "Firmenveranstaltungen (max. 4h/Quartal pro MA)", hours: 4, kind: Quarterly, ok: true},
		{name: "Review 2,5 h pro Quartal", hours: 2.5, kind: Quarterly, ok: true},
		{name: "Support 10h per month", hours: 10, kind: Monthly, ok: true},
		{name: "1.1 Planung", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hours, kind, ok := ExtractBudgetFromName(tt.name)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.hours, hours)
				assert.Equal(t, tt.kind, kind)
			}
		})
	}
}

func TestRules(t *testing.T) {
	rules := DefaultRules()
	assert.Equal(t, Quarterly, rules.Classify("Messeauftritt (max. 4h/Quartal pro MA)"))
	assert.Equal(t, Monthly, rules.Classify("1.1 Planung"))
	assert.True(t, rules.IsInternal("0000 Allgemein"))
	assert.True(t, rules.IsInternal("0.1000 Sonderprojekt"))
	assert.False(t, rules.IsInternal("1234.01 Testprojekt"))
}

func TestEngine_InternalMonthlyRule(t *testing.T) {
	const milestone = "Einarbeitung neuer Mitarbeiter (max. 8h/Monat pro MA)"
	entries := []normalize.TimeEntry{
		entry("A", "0000 Allgemein", milestone, 2025, time.July, 3, 6),
		entry("A", "0000 Allgemein", milestone, 2025, time.July, 4, 4),
		entry("A", "0000 Allgemein", milestone, 2025, time.August, 1, 3),
		entry("B", "0000 Allgemein", milestone, 2025, time.July, 1, 7),
	}
	engine := NewEngine(DefaultRules(), nil, nil, entries, zap.NewNop())

	a := engine.Evaluate(Row{Employee: "A", Project: "0000 Allgemein", Milestone: milestone, Month: normalize.Month{Year: 2025, Month: time.July}, Hours: 10})
	assert.Equal(t, Internal, a.Pool)
	assert.Equal(t, Monthly, a.Kind)
	assert.Equal(t, 8.0, a.Quota)
	assert.Equal(t, 10.0, a.Actual)
	assert.InDelta(t, 125.0, a.Percent, 1e-9)
	assert.False(t, a.Eligible)

	b := engine.Evaluate(Row{Employee: "A", Project: "0000", Milestone: milestone, Month: normalize.Month{Year: 2025, Month: time.August}, Hours: 3})
	assert.Equal(t, 3.0, b.Actual, "internal quotas reset every month")
	assert.True(t, b.Eligible)
}

func TestEngine_InternalQuarterlyRule(t *testing.T) {
	const milestone = "Messeauftritt (max. 4h/Quartal pro MA)"
	entries := []normalize.TimeEntry{
		entry("A", "0000", milestone, 2025, time.July, 3, 2),
		entry("A", "0000", milestone, 2025, time.August, 3, 1),
		entry("A", "0000", milestone, 2025, time.September, 3, 2),
		entry("A", "0000", milestone, 2025, time.June, 3, 9),
	}
	engine := NewEngine(DefaultRules(), nil, nil, entries, zap.NewNop())

	aug := engine.Evaluate(Row{Employee: "A", Project: "0000", Milestone: milestone, Month: normalize.Month{Year: 2025, Month: time.August}})
	assert.Equal(t, Quarterly, aug.Kind)
	assert.Equal(t, 4.0, aug.Quota)
	assert.Equal(t, 3.0, aug.Actual)
	assert.True(t, aug.Eligible)

	sep := engine.Evaluate(Row{Employee: "A", Project: "0000", Milestone: milestone, Month: normalize.Month{Year: 2025, Month: time.September}})
	assert.Equal(t, 5.0, sep.Actual)
	assert.InDelta(t, 125.0, sep.Percent, 1e-9)
	assert.False(t, sep.Eligible)
}

func TestEngine_BackCalculation(t *testing.T) {
	const (
		project   = "1234.01 Testprojekt"
		milestone = "(p) 1.1 Planung"
	)
	master := []normalize.MasterRow{masterRow(project, milestone, 200, 120)}

	distributions := map[string][]normalize.TimeEntry{
		"spread": {
			entry("A", "1234.01", milestone, 2025, time.July, 1, 10),
			entry("B", "1234.01", milestone, 2025, time.August, 1, 15),
			entry("A", "1234.01", milestone, 2025, time.September, 1, 5),
			entry("B", "1234.01", milestone, 2025, time.October, 1, 20),
		},
		"concentrated": {
			entry("A", "1234.01", milestone, 2025, time.September, 1, 30),
			entry("A", "1234.01", milestone, 2025, time.October, 1, 20),
		},
		"single employee": {
			entry("C", "1234.01", milestone, 2025, time.July, 1, 1),
			entry("C", "1234.01", milestone, 2025, time.October, 2, 20),
		},
	}

	q3 := normalize.Quarter{Year: 2025, Q: 3}
	for name, entries := range distributions {
		t.Run(name, func(t *testing.T) {
			engine := NewEngine(DefaultRules(), nil, master, entries, zap.NewNop())

			shares := engine.MonthlyShares(project, milestone, q3)
			require.Len(t, shares, 3)
			var total float64
			for _, s := range shares {
				total += s
			}
			assert.InDelta(t, engine.ActualAsOf(project, milestone, q3.Months()[2]), total, 1e-9)
			assert.InDelta(t, 100.0, total, 1e-9, "120 to date minus 20 logged in October")
		})
	}

	t.Run("percentage uses the back-calculated figure", func(t *testing.T) {
		engine := NewEngine(DefaultRules(), nil, master, distributions["spread"], zap.NewNop())
		a := engine.Evaluate(Row{Employee: "A", Project: "1234.01", Milestone: milestone, Month: normalize.Month{Year: 2025, Month: time.August}, Hours: 0})
		assert.Equal(t, Ordinary, a.Pool)
		assert.Equal(t, 200.0, a.Quota)
		assert.InDelta(t, 95.0, a.Actual, 1e-9)
		assert.InDelta(t, 47.5, a.Percent, 1e-9)
		assert.True(t, a.Eligible)
	})
}

func TestEngine_RecordFallback(t *testing.T) {
	const project = "1234.01 Testprojekt"
	master := []normalize.MasterRow{
		masterRow(project, "(p) 1.1 Planung", math.NaN(), math.NaN()),
		{Project: project, WorkPackage: "1.1.1 Entwurf", Milestone: "1.1.1 Entwurf", BudgetHours: 10, ActualHours: 12,
			TargetAmount: math.NaN(), BilledAmount: math.NaN(), ActualCost: math.NaN()},
		{Project: project, WorkPackage: "1.1.2 Detail", Milestone: "1.1.2 Detail", BudgetHours: 10, ActualHours: 0,
			TargetAmount: math.NaN(), BilledAmount: math.NaN(), ActualCost: math.NaN()},
	}
	resolver, err := budget.NewResolver(budget.DefaultRules(), zap.NewNop())
	require.NoError(t, err)
	index := resolver.Build(master)
	rec, ok := index.Resolve(project, "(p) 1.1 Planung")
	require.True(t, ok)
	require.Equal(t, 20.0, rec.BudgetHours)
	require.Equal(t, 12.0, rec.ActualHours)

	entries := []normalize.TimeEntry{
		entry("A", "1234.01", "(p) 1.1 Planung", 2025, time.July, 1, 4),
		entry("A", "1234.01", "1.1.1 Entwurf", 2025, time.August, 1, 2),
	}
	engine := NewEngine(DefaultRules(), index, master, entries, zap.NewNop())

	a := engine.Evaluate(Row{Employee: "A", Project: "1234.01", Milestone: "(p) 1.1 Planung", Month: normalize.Month{Year: 2025, Month: time.July}, Record: rec})
	assert.Equal(t, 20.0, a.Quota)
	assert.InDelta(t, 10.0, a.Actual, 1e-9, "record actual minus later hours resolved to the record")
	assert.InDelta(t, 50.0, a.Percent, 1e-9)
}

func TestEngine_ZeroQuotaIsEligible(t *testing.T) {
	engine := NewEngine(DefaultRules(), nil, nil, nil, zap.NewNop())
	a := engine.Evaluate(Row{Employee: "A", Project: "9999", Milestone: "Unbekannt", Month: normalize.Month{Year: 2025, Month: time.July}, Hours: 5})
	assert.Equal(t, 0.0, a.Quota)
	assert.Equal(t, 0.0, a.Percent)
	assert.True(t, a.Eligible)
}

func TestEngine_RecordPriorTo(t *testing.T) {
	rec := &budget.BudgetRecord{LookupID: 1, Project: "1234.01", Milestone: "(p) 1.1", ActualHours: 50}
	master := []normalize.MasterRow{masterRow("1234.01", "(p) 1.1", 100, 50)}
	resolver, err := budget.NewResolver(budget.DefaultRules(), zap.NewNop())
	require.NoError(t, err)
	ix := resolver.Build(master)

	entries := []normalize.TimeEntry{
		entry("A", "1234.01", "(p) 1.1", 2025, time.July, 1, 10),
		entry("B", "1234.01", "(p) 1.1", 2025, time.August, 1, 15),
	}
	engine := NewEngine(DefaultRules(), ix, master, entries, zap.NewNop())

	assert.Equal(t, 25.0, engine.RecordPriorTo(rec, normalize.Month{Year: 2025, Month: time.July}))
	assert.Equal(t, 35.0, engine.RecordPriorTo(rec, normalize.Month{Year: 2025, Month: time.August}))

	rec.ActualHours = 5
	assert.Equal(t, 0.0, engine.RecordPriorTo(rec, normalize.Month{Year: 2025, Month: time.July}))
	assert.Equal(t, 10.0, engine.RecordPriorTo(rec, normalize.Month{Year: 2025, Month: time.August}), "floored at hours logged in July")
	assert.Equal(t, 25.0, engine.RecordPriorTo(rec, normalize.Month{Year: 2025, Month: time.September}))
}
