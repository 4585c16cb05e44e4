package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/garyjia/bonus-report/internal/graph"
)

const (
	CoverSheet    = "Übersicht"
	OverviewSheet = "Projekt-Budget-Übersicht"

	// ListSheet holds the dropdown options, hidden in the workbook
	ListSheet = "Listen"

	maxSheetName = 31

	// ManualInputMarker flags cells a reviewer has to fill in
	ManualInputMarker = "Manuelle Eingabe erforderlich"

	numberFormat = "0.00"
)

// Employee sheet columns
const (
	colProject = iota + 1
	colMilestone
	colLookupID
	colBilling
	colHours
	colQuota
	colActual
	colPercent
	colAdjustment
	colTarget
	colTransferred
	colReceived
	colEffective
	colBonus
	colRate
	colPrior
	colBudgetHours
	colBudgetAmount
	colPossible
	colRevenue
	colLost
	colCumulative
	colConsumed
	colInvoice
	colComment
)

var employeeHeader = []string{
	"Projekt", "Meilenstein", "Budget-ID", "Abrechnung", "Stunden", "Soll", "Ist", "%",
	"Anpassung", "Übertragen an", "Übertragen", "Erhalten", "Effektiv", "Bonus h",
	"Satz €/h", "Vorher abgerechnet h", "Budget h", "Budget €", "Möglicher Umsatz",
	"Umsatz", "Verlorener Umsatz", "Kumulierter Umsatz", "Vorher verbraucht €",
	"Rechnung", "Kommentar",
}

// invoiceOptions are the invoice kinds a row can be marked with:
// final invoice and installment
var invoiceOptions = []string{"SR", "AZ"}

const (
	employeeTitleRow  = 1
	employeeRoleRow   = 2
	employeeHeaderRow = 4
	employeeFirstRow  = 5

	// summary rows: label, value, correction
	summaryLabelCol      = colProject
	summaryValueCol      = colMilestone
	summaryCorrectionCol = colLookupID
)

// Budget overview columns
const (
	ovLookupID = iota + 1
	ovProject
	ovMilestone
	ovBilling
	ovBudgetAmount
	ovBudgetHours
	ovActualHours
	ovBilledAmount
	ovActualCost
	ovRateLead
	ovRateExpert
	ovRateDrafter
	ovRateDefault
	ovAddendum
	ovFirstMonth
)

var overviewHeader = []string{
	"Budget-ID", "Projekt", "Meilenstein", "Abrechnung", "Budget €", "Budget h",
	"Ist h", "Abgerechnet €", "Istkosten €", "Satz PL", "Satz SV", "Satz TZ",
	"Satz Standard", "Nachtrag",
}

const (
	overviewTitleRow  = 1
	overviewHeaderRow = 3
	overviewFirstRow  = 4
)

// Cover sheet columns
const (
	cvEmployee = iota + 1
	cvRole
	cvHours
	cvBonus
	cvInternalBonus
	cvRevenue
	cvLost
)

var coverHeader = []string{
	"Mitarbeiter", "Rolle", "Stunden", "Bonusberechtigte Stunden",
	"Bonusberechtigte Stunden Sonderprojekt", "Umsatz", "Verlorener Umsatz",
}

var monthLineHeader = []string{
	"Monat", "Gesamtstunden", "Bonusberechtigte Stunden", "Bonusberechtigte Stunden Sonderprojekt",
}

const (
	coverTitleRow  = 1
	coverHeaderRow = 3
	coverFirstRow  = 4
)

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// sheetNamer hands out sheet names that are valid and unique
type sheetNamer struct {
	used map[string]struct{}
}

func newSheetNamer(reserved ...string) *sheetNamer {
	n := &sheetNamer{used: make(map[string]struct{})}
	for _, r := range reserved {
		n.used[strings.ToLower(r)] = struct{}{}
	}
	return n
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func (n *sheetNamer) name(raw string) string {
	base := strings.Trim(sheetNameReplacer.Replace(strings.TrimSpace(raw)), "'")
	if base == "" {
		base = "Mitarbeiter"
	}
	candidate := truncateRunes(base, maxSheetName)
	for i := 2; ; i++ {
		if _, taken := n.used[strings.ToLower(candidate)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	n.used[strings.ToLower(candidate)] = struct{}{}
	return candidate
}

func textCell(g *graph.Graph, ref graph.Ref, s string, opts ...graph.Option) {
	g.SetLiteral(ref, graph.TextValue(s), opts...)
}

func numberCell(g *graph.Graph, ref graph.Ref, v float64, opts ...graph.Option) {
	g.SetLiteral(ref, graph.NumberValue(v), append(opts, graph.Format(numberFormat))...)
}

func header(g *graph.Graph, sheet string, row int, titles []string) {
	for i, title := range titles {
		textCell(g, graph.At(sheet, i+1, row), title)
	}
}
