package budget

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/normalize"
)

// span is a billed parent row and the rows that follow it up to the next parent
type span struct {
	parent   normalize.MasterRow
	children []normalize.MasterRow
}

type recordKey struct {
	project   string
	milestone string
}

// Resolver builds the budget index from ordered budget-master rows
type Resolver struct {
	rules    Rules
	addendum *regexp.Regexp
	logger   *zap.Logger
}

// NewResolver creates a new Resolver
func NewResolver(rules Rules, logger *zap.Logger) (*Resolver, error) {
	pattern := rules.AddendumPattern
	if pattern == "" {
		pattern = DefaultRules().AddendumPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile addendum pattern: %w", err)
	}
	return &Resolver{
		rules:    rules,
		addendum: re,
		logger:   logger,
	}, nil
}

// Classify derives the billing type from a work-package text. Without the
// billed-item marker the result is Unknown unless force is set.
func (r *Resolver) Classify(text string, billed, force bool) BillingType {
	if !billed && !force {
		return Unknown
	}
	lower := strings.ToLower(text)
	if containsAny(lower, r.rules.LumpSumMarkers) {
		return LumpSum
	}
	if containsAny(lower, r.rules.HourlyMarkers) {
		return Hourly
	}
	return Unknown
}

// IsAddendum reports whether a milestone name denotes a standalone addendum
func (r *Resolver) IsAddendum(milestone string) bool {
	return r.addendum.MatchString(milestone)
}

// Build collects every parent span first and then emits the immutable index
func (r *Resolver) Build(rows []normalize.MasterRow) *Index {
	spans, orphans := collectSpans(rows)
	if orphans > 0 {
		r.logger.Warn("Budget rows before the first billed item ignored", zap.Int("rows", orphans))
	}

	ix := &Index{
		byKey:   make(map[recordKey]*BudgetRecord),
		parents: make(map[recordKey]map[string]struct{}),
	}
	for _, s := range spans {
		parent := r.parentRecord(s)
		ix.add(parent, r.logger)

		for _, child := range s.children {
			if r.IsAddendum(child.Milestone) {
				ix.add(r.addendumRecord(child, parent), r.logger)
				continue
			}
			ix.link(child.Project, child.Milestone, parent.Milestone)
		}
	}

	r.logger.Info("Budget index built",
		zap.Int("records", len(ix.records)),
		zap.Int("spans", len(spans)))
	return ix
}

func collectSpans(rows []normalize.MasterRow) ([]span, int) {
	var (
		spans   []span
		orphans int
	)
	for _, row := range rows {
		if row.Billed && row.WorkPackage != "" {
			spans = append(spans, span{parent: row})
			continue
		}
		if len(spans) == 0 || spans[len(spans)-1].parent.Project != row.Project {
			orphans++
			continue
		}
		last := &spans[len(spans)-1]
		last.children = append(last.children, row)
	}
	return spans, orphans
}

func (r *Resolver) parentRecord(s span) *BudgetRecord {
	p := s.parent
	rec := &BudgetRecord{
		Project:      p.Project,
		Milestone:    p.Milestone,
		WorkPackage:  p.WorkPackage,
		Line:         p.Line,
		BillingType:  r.Classify(p.WorkPackage, p.Billed, false),
		BudgetAmount: normalize.ZeroIfNaN(p.TargetAmount),
		BilledAmount: normalize.ZeroIfNaN(p.BilledAmount),
		ActualCost:   normalize.ZeroIfNaN(p.ActualCost),
		Rates:        make(map[Role]float64),
	}

	var (
		budgetHours, actualHours float64
		leaves                   int
	)
	for _, child := range s.children {
		if r.IsAddendum(child.Milestone) {
			continue
		}
		if !math.IsNaN(child.BudgetHours) {
			budgetHours += child.BudgetHours
			leaves++
		}
		actualHours += normalize.ZeroIfNaN(child.ActualHours)
		r.collectRate(rec, child)
	}
	if leaves == 0 {
		// no sub-items carry hours: the parent is its own leaf
		budgetHours = normalize.ZeroIfNaN(p.BudgetHours)
		actualHours = normalize.ZeroIfNaN(p.ActualHours)
	}
	rec.BudgetHours = budgetHours
	rec.ActualHours = actualHours
	rec.DefaultRate = defaultRate(rec.BudgetAmount, rec.BudgetHours)
	return rec
}

func (r *Resolver) collectRate(rec *BudgetRecord, row normalize.MasterRow) {
	lower := strings.ToLower(row.Milestone)
	for _, role := range SubRoles {
		if _, seen := rec.Rates[role]; seen {
			continue
		}
		if !containsAny(lower, r.rules.roleKeywords()[role]) {
			continue
		}
		if row.BudgetHours > 0 && !math.IsNaN(row.TargetAmount) {
			rec.Rates[role] = row.TargetAmount / row.BudgetHours
		}
		return
	}
}

func (r *Resolver) addendumRecord(row normalize.MasterRow, parent *BudgetRecord) *BudgetRecord {
	billing := r.Classify(row.WorkPackage, row.Billed, true)
	if billing == Unknown {
		billing = parent.BillingType
	}
	rec := &BudgetRecord{
		Project:         row.Project,
		Milestone:       row.Milestone,
		WorkPackage:     row.WorkPackage,
		Line:            row.Line,
		BillingType:     billing,
		BudgetAmount:    normalize.ZeroIfNaN(row.TargetAmount),
		BilledAmount:    normalize.ZeroIfNaN(row.BilledAmount),
		ActualCost:      normalize.ZeroIfNaN(row.ActualCost),
		BudgetHours:     normalize.ZeroIfNaN(row.BudgetHours),
		ActualHours:     normalize.ZeroIfNaN(row.ActualHours),
		Rates:           make(map[Role]float64),
		Addendum:        true,
		ParentMilestone: parent.Milestone,
	}
	rec.DefaultRate = defaultRate(rec.BudgetAmount, rec.BudgetHours)
	return rec
}

func defaultRate(amount, hours float64) float64 {
	if hours <= 0 || amount <= 0 {
		return 0
	}
	return amount / hours
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Index maps milestones to their governing budget records
type Index struct {
	records []*BudgetRecord
	byKey   map[recordKey]*BudgetRecord
	parents map[recordKey]map[string]struct{}
}

func (ix *Index) add(rec *BudgetRecord, logger *zap.Logger) {
	rec.LookupID = len(ix.records) + 1
	ix.records = append(ix.records, rec)
	for _, variant := range normalize.ProjectVariants(rec.Project) {
		key := recordKey{project: variant, milestone: rec.Milestone}
		if existing, ok := ix.byKey[key]; ok {
			logger.Warn("Duplicate budget record, keeping the first",
				zap.String("project", variant),
				zap.String("milestone", rec.Milestone),
				zap.Int("kept_lookup_id", existing.LookupID),
				zap.Int("line", rec.Line))
			continue
		}
		ix.byKey[key] = rec
	}
}

func (ix *Index) link(project, milestone, parent string) {
	for _, variant := range normalize.ProjectVariants(project) {
		key := recordKey{project: variant, milestone: milestone}
		set, ok := ix.parents[key]
		if !ok {
			set = make(map[string]struct{})
			ix.parents[key] = set
		}
		set[parent] = struct{}{}
	}
}

// Records returns all records in lookup-id order
func (ix *Index) Records() []*BudgetRecord {
	return ix.records
}

// Record returns the record with the given lookup id
func (ix *Index) Record(lookupID int) (*BudgetRecord, bool) {
	if lookupID < 1 || lookupID > len(ix.records) {
		return nil, false
	}
	return ix.records[lookupID-1], true
}

// Parents returns the sorted parent milestones a sub-item is linked to
func (ix *Index) Parents(project, milestone string) []string {
	seen := make(map[string]struct{})
	for _, variant := range normalize.ProjectVariants(project) {
		for p := range ix.parents[recordKey{project: variant, milestone: milestone}] {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the governing record of (project, milestone): a direct
// match first, then the single linked parent. Zero or several parents
// leave the milestone unresolved.
func (ix *Index) Resolve(project, milestone string) (*BudgetRecord, bool) {
	if rec, ok := ix.direct(project, milestone); ok {
		return rec, true
	}
	parents := ix.Parents(project, milestone)
	if len(parents) != 1 {
		return nil, false
	}
	return ix.direct(project, parents[0])
}

func (ix *Index) direct(project, milestone string) (*BudgetRecord, bool) {
	for _, variant := range normalize.ProjectVariants(project) {
		if rec, ok := ix.byKey[recordKey{project: variant, milestone: milestone}]; ok {
			return rec, true
		}
	}
	return nil, false
}
