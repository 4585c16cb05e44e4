package report

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/garyjia/bonus-report/internal/normalize"
)

var (
	yearFirstQuarter = regexp.MustCompile(`^(\d{4})\s*-?\s*Q([1-4])$`)
	quarterFirst     = regexp.MustCompile(`^Q([1-4])\s*[-/ ]\s*(\d{4})$`)
)

// ParseQuarter accepts "2025Q3", "2025-Q3" and "Q3-2025"
func ParseQuarter(s string) (normalize.Quarter, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if m := yearFirstQuarter.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return normalize.Quarter{Year: year, Q: q}, nil
	}
	if m := quarterFirst.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		return normalize.Quarter{Year: year, Q: q}, nil
	}
	return normalize.Quarter{}, fmt.Errorf("%w: %q", ErrInvalidQuarter, s)
}

// AvailableQuarters lists the quarters present in entries, oldest first
func AvailableQuarters(entries []normalize.TimeEntry) []normalize.Quarter {
	seen := make(map[normalize.Quarter]struct{})
	for _, e := range entries {
		seen[e.Quarter()] = struct{}{}
	}
	out := make([]normalize.Quarter, 0, len(seen))
	for q := range seen {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Q < out[j].Q
	})
	return out
}

// SelectQuarter picks the requested quarter, or the latest one when
// requested is empty.
func SelectQuarter(entries []normalize.TimeEntry, requested string) (normalize.Quarter, error) {
	available := AvailableQuarters(entries)
	if len(available) == 0 {
		return normalize.Quarter{}, normalize.ErrNoDataFound
	}
	if requested == "" {
		return available[len(available)-1], nil
	}

	q, err := ParseQuarter(requested)
	if err != nil {
		return normalize.Quarter{}, err
	}
	for _, a := range available {
		if a == q {
			return q, nil
		}
	}
	return normalize.Quarter{}, fmt.Errorf("%w: %s", ErrAmbiguousQuarter, q)
}
