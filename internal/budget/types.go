package budget

import "strings"

// BillingType is how a budget record turns hours into revenue
type BillingType int

const (
	Unknown BillingType = iota
	LumpSum
	Hourly
)

func (b BillingType) String() string {
	switch b {
	case LumpSum:
		return "LumpSum"
	case Hourly:
		return "Hourly"
	default:
		return "Unknown"
	}
}

// Label is the value written to the billing-type cell of a report row
func (b BillingType) Label() string {
	switch b {
	case LumpSum:
		return "Pauschal"
	case Hourly:
		return "Nachweis"
	default:
		return "?"
	}
}

// BillingLabels lists the selectable billing-type labels in dropdown order
func BillingLabels() []string {
	return []string{LumpSum.Label(), Hourly.Label(), Unknown.Label()}
}

// ParseBillingType maps a label or name back to a BillingType
func ParseBillingType(s string) BillingType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pauschal", "lumpsum", "p":
		return LumpSum
	case "nachweis", "hourly", "n":
		return Hourly
	default:
		return Unknown
	}
}

// Role is the function an employee held when consuming a budget
type Role string

const (
	RoleLead    Role = "PL"
	RoleExpert  Role = "SV"
	RoleDrafter Role = "TZ"
	RoleLumpSum Role = "PA"
	RoleNone    Role = "-"
)

// DefaultRole is assigned to every employee sheet on generation
const DefaultRole = RoleExpert

// SubRoles are the roles whose rates are read from sub-rows of a parent
var SubRoles = []Role{RoleLead, RoleExpert, RoleDrafter}

// Roles lists every selectable role in dropdown order
func Roles() []Role {
	return []Role{RoleLead, RoleExpert, RoleDrafter, RoleLumpSum, RoleNone}
}

// ParseRole returns the role named by s
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, r := range Roles() {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// BudgetRecord is one billed milestone of the budget master.
// Records are built once per run and never mutated afterwards.
type BudgetRecord struct {
	LookupID        int
	Project         string
	Milestone       string
	WorkPackage     string
	Line            int
	BillingType     BillingType
	BudgetAmount    float64
	BilledAmount    float64
	ActualCost      float64
	BudgetHours     float64
	ActualHours     float64
	Rates           map[Role]float64
	DefaultRate     float64
	Addendum        bool
	ParentMilestone string
}

// Rate returns the hourly rate for role. PA always earns the default rate,
// a sub-role without an explicit rate falls back to it.
func (r *BudgetRecord) Rate(role Role) float64 {
	switch role {
	case RoleNone:
		return 0
	case RoleLumpSum:
		return r.DefaultRate
	}
	if rate, ok := r.Rates[role]; ok && rate > 0 {
		return rate
	}
	return r.DefaultRate
}
