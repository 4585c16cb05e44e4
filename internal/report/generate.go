package report

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/budget"
	"github.com/garyjia/bonus-report/internal/normalize"
	"github.com/garyjia/bonus-report/internal/quota"
)

// ProgressFunc receives the progress of a run in percent
type ProgressFunc func(percent int, message string)

// Progress forwards percentages to a ProgressFunc, never lower than before
// and never above 100
type Progress struct {
	fn   ProgressFunc
	last int
}

// NewProgress wraps fn, which may be nil
func NewProgress(fn ProgressFunc) *Progress {
	return &Progress{fn: fn}
}

// Last returns the highest percentage reported so far
func (p *Progress) Last() int {
	return p.last
}

// Report forwards one progress step
func (p *Progress) Report(percent int, message string) {
	if percent < p.last {
		percent = p.last
	}
	if percent > 100 {
		percent = 100
	}
	p.last = percent
	if p.fn != nil {
		p.fn(percent, message)
	}
}

// Inputs is the file pair a report is generated from
type Inputs struct {
	BudgetPath string
	TimesPath  string
}

// Options configures report generation
type Options struct {
	Quarter string
	Role    budget.Role
	Filter  Filter
	Aliases normalize.ColumnAliases
	Budget  budget.Rules
	Quota   quota.Rules
}

// DefaultOptions returns options with the built-in rules
func DefaultOptions() Options {
	return Options{
		Role:    budget.DefaultRole,
		Aliases: normalize.DefaultColumnAliases(),
		Budget:  budget.DefaultRules(),
		Quota:   quota.DefaultRules(),
	}
}

// Generator runs the full pipeline from input files to a report graph
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// NewGenerator creates a new Generator
func NewGenerator(opts Options, logger *zap.Logger) *Generator {
	return &Generator{
		opts:   opts,
		logger: logger,
	}
}

// Generate reads both inputs and builds the report
func (g *Generator) Generate(ctx context.Context, in Inputs, progress ProgressFunc) (*Report, error) {
	p := NewProgress(progress)

	p.Report(5, "Lese Budget-Stammdaten")
	master, err := normalize.NewMasterReader(g.opts.Aliases, g.logger).ReadFile(in.BudgetPath)
	if err != nil {
		return nil, err
	}

	p.Report(15, "Lese Zeiterfassung")
	entries, err := normalize.NewEntryReader(g.logger).ReadFile(in.TimesPath)
	if err != nil {
		return nil, err
	}

	return g.build(ctx, master, entries, p)
}

// Build creates the report from already decoded inputs
func (g *Generator) Build(ctx context.Context, master []normalize.MasterRow, entries []normalize.TimeEntry, progress ProgressFunc) (*Report, error) {
	return g.build(ctx, master, entries, NewProgress(progress))
}

func (g *Generator) build(ctx context.Context, master []normalize.MasterRow, entries []normalize.TimeEntry, p *Progress) (*Report, error) {
	q, err := SelectQuarter(entries, g.opts.Quarter)
	if err != nil {
		return nil, err
	}
	p.Report(25, fmt.Sprintf("Wähle Quartal %s", q))

	resolver, err := budget.NewResolver(g.opts.Budget, g.logger)
	if err != nil {
		return nil, err
	}
	index := resolver.Build(master)
	p.Report(30, "Budgets aufgelöst")

	engine := quota.NewEngine(g.opts.Quota, index, master, entries, g.logger)
	rows := aggregateRows(entries, q, g.opts.Filter, g.opts.Quota)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no entries match the filters in %s", normalize.ErrNoDataFound, q)
	}
	p.Report(35, "Kontingente berechnet")

	b := newBuilder(q, index, engine, g.opts.Role, g.logger)
	rep, err := b.build(ctx, rows, func(done, total int) {
		p.Report(35+50*done/total, fmt.Sprintf("Mitarbeiter %d von %d", done, total))
	})
	if err != nil {
		return nil, err
	}
	p.Report(95, "Querverweise aufgelöst")

	g.logger.Info("Report built",
		zap.String("quarter", q.String()),
		zap.Int("employees", len(rep.Employees())),
		zap.Int("rows", len(rep.Rows())),
		zap.Int("records", len(rep.Records())),
		zap.Int("unresolved", len(rep.Unresolved())))
	return rep, nil
}
