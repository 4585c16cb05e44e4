package budget

// Rules configures how budget-master rows are classified
type Rules struct {
	LumpSumMarkers  []string `mapstructure:"lump_sum_markers"`
	HourlyMarkers   []string `mapstructure:"hourly_markers"`
	LeadKeywords    []string `mapstructure:"lead_keywords"`
	ExpertKeywords  []string `mapstructure:"expert_keywords"`
	DrafterKeywords []string `mapstructure:"drafter_keywords"`
	AddendumPattern string   `mapstructure:"addendum_pattern"`
}

// DefaultRules returns the markers used by the budget export
func DefaultRules() Rules {
	return Rules{
		LumpSumMarkers:  []string{"(p)", "pauschal"},
		HourlyMarkers:   []string{"(n)", "nachweis"},
		LeadKeywords:    []string{"projektleitung"},
		ExpertKeywords:  []string{"sachverständig"},
		DrafterKeywords: []string{"zeichn"},
		AddendumPattern: `(?i)\b(nachtrag|addendum)\b`,
	}
}

func (r Rules) roleKeywords() map[Role][]string {
	return map[Role][]string{
		RoleLead:    r.LeadKeywords,
		RoleExpert:  r.ExpertKeywords,
		RoleDrafter: r.DrafterKeywords,
	}
}
