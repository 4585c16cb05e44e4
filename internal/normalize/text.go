package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	leadingDashes = regexp.MustCompile(`^[\-\s]+`)
	bulletGlyphs  = strings.NewReplacer("•", "", "●", "", "▪", "", "◦", "")

	textualDate = regexp.MustCompile(`(\d{1,2})\s+([A-Za-z]{3})\s+(\d{4})`)
	dottedDate  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	isoDate     = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

	shortMonths = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}
)

// ParseLocaleNumber parses German formatted numbers ("1.234,56").
// Malformed or empty input yields NaN so a single bad cell never aborts a load.
func ParseLocaleNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseHours parses the hour figure of a time entry. The export writes plain
// decimals; a comma decimal is accepted as well. Anything else counts as 0.
func ParseHours(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v := ParseLocaleNumber(s); !math.IsNaN(v) {
		return v
	}
	return 0
}

// NormalizeMilestone strips bullet glyphs and leading dashes/whitespace
func NormalizeMilestone(s string) string {
	s = bulletGlyphs.Replace(s)
	s = leadingDashes.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ProjectVariants returns the keys a project is matched under: the full
// string and its leading code token ("1234.01 Testprojekt" -> "1234.01").
func ProjectVariants(project string) []string {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil
	}
	fields := strings.Fields(project)
	if len(fields) > 1 {
		return []string{project, fields[0]}
	}
	return []string{project}
}

// ParseEntryDate accepts "Tue, 01 Oct 2024 00:00:00 +0200", "01.10.2024"
// and "2024-10-01".
func ParseEntryDate(s string) (time.Time, bool) {
	if m := textualDate.FindStringSubmatch(s); m != nil {
		month, ok := shortMonths[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, false
		}
		return buildDate(m[3], int(month), m[1])
	}
	if m := dottedDate.FindStringSubmatch(s); m != nil {
		month, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, false
		}
		return buildDate(m[3], month, m[1])
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		month, err := strconv.Atoi(m[2])
		if err != nil {
			return time.Time{}, false
		}
		return buildDate(m[1], month, m[3])
	}
	return time.Time{}, false
}

func buildDate(yearText string, month int, dayText string) (time.Time, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
