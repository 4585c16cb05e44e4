package normalize

import (
	"fmt"
	"time"
)

var monthNames = map[time.Month]string{
	time.January:   "Januar",
	time.February:  "Februar",
	time.March:     "März",
	time.April:     "April",
	time.May:       "Mai",
	time.June:      "Juni",
	time.July:      "Juli",
	time.August:    "August",
	time.September: "September",
	time.October:   "Oktober",
	time.November:  "November",
	time.December:  "Dezember",
}

// Month identifies a calendar month
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Before reports whether m lies strictly before o
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// Quarter returns the quarter containing m
func (m Month) Quarter() Quarter {
	return Quarter{Year: m.Year, Q: (int(m.Month)-1)/3 + 1}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label is the German display label used in sheet headings, e.g. "Juli 2025"
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", monthNames[m.Month], m.Year)
}

// Quarter identifies a calendar quarter
type Quarter struct {
	Year int
	Q    int
}

func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}

// First returns the first month of the quarter
func (q Quarter) First() Month {
	return Month{Year: q.Year, Month: time.Month((q.Q-1)*3 + 1)}
}

// Months returns the three months of the quarter in order
func (q Quarter) Months() []Month {
	first := q.First()
	return []Month{
		first,
		{Year: q.Year, Month: first.Month + 1},
		{Year: q.Year, Month: first.Month + 2},
	}
}

// Contains reports whether m belongs to q
func (q Quarter) Contains(m Month) bool {
	return m.Quarter() == q
}
