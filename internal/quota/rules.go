package quota

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tells whether a milestone quota applies per month or per quarter
type Kind int

const (
	Monthly Kind = iota
	Quarterly
)

func (k Kind) String() string {
	if k == Quarterly {
		return "quarterly"
	}
	return "monthly"
}

// Pool separates bonus hours of ordinary projects from internal ones
type Pool int

const (
	Ordinary Pool = iota
	Internal
)

func (p Pool) String() string {
	if p == Internal {
		return "internal"
	}
	return "ordinary"
}

// Rule is a fixed per-employee hour quota for a named milestone
type Rule struct {
	Milestone string  `mapstructure:"milestone"`
	Hours     float64 `mapstructure:"hours"`
}

// Rules configures quota classification
type Rules struct {
	InternalPrefixes []string `mapstructure:"internal_prefixes"`
	QuarterMarkers   []string `mapstructure:"quarter_markers"`
	MonthlyRules     []Rule   `mapstructure:"monthly_rules"`
	QuarterlyRules   []Rule   `mapstructure:"quarterly_rules"`
}

// DefaultRules returns the internal-project quotas in use at the company
func DefaultRules() Rules {
	return Rules{
		InternalPrefixes: []string{"0000", "0.1000"},
		QuarterMarkers:   []string{"quartal", "quarter"},
		MonthlyRules: []Rule{
			{Milestone: "Einarbeitung neuer Mitarbeiter (max. 8h/Monat pro MA)", Hours: 8},
			{Milestone: "Angebote-Ausschreibungen-Kalkulationen (max. 8h/Monat pro MA)", Hours: 8},
			{Milestone: "Erstellung Vorlagen (übergreifend) (max. 8h/Monat pro MA)", Hours: 8},
		},
		QuarterlyRules: []Rule{
			{Milestone: "Firmenveranstaltungen (max. 4h/Quartal pro MA)", Hours: 4},
			{Milestone: "Vorträge, Repräsentation (übergreifend) (max. 4h/Quartal pro MA)", Hours: 4},
			{Milestone: "Messeauftritt (max. 4h/Quartal pro MA)", Hours: 4},
		},
	}
}

var nameBudget = regexp.MustCompile(`(?i)(\d+[.,]?\d*)\s*h\s*(?:/|pro\s+|per\s+)(monat|quartal|month|quarter)`)

// ExtractBudgetFromName reads a quota such as "8h/Monat" or "4h pro Quartal"
// from a milestone name.
func ExtractBudgetFromName(name string) (float64, Kind, bool) {
	m := nameBudget.FindStringSubmatch(name)
	if m == nil {
		return 0, Monthly, false
	}
	hours, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, Monthly, false
	}
	switch strings.ToLower(m[2]) {
	case "quartal", "quarter":
		return hours, Quarterly, true
	default:
		return hours, Monthly, true
	}
}

// Classify returns Quarterly when the milestone names a quarter marker
func (r Rules) Classify(milestone string) Kind {
	lower := strings.ToLower(milestone)
	for _, marker := range r.QuarterMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return Quarterly
		}
	}
	return Monthly
}

// IsInternal reports whether a project code carries a reserved internal prefix
func (r Rules) IsInternal(project string) bool {
	project = strings.ToLower(strings.TrimSpace(project))
	for _, prefix := range r.InternalPrefixes {
		if prefix != "" && strings.HasPrefix(project, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func lookupRule(rules []Rule, milestone string) (float64, bool) {
	for _, rule := range rules {
		if strings.EqualFold(strings.TrimSpace(rule.Milestone), milestone) {
			return rule.Hours, true
		}
	}
	return 0, false
}
