package normalize

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// Cell names of the time-tracking export
const (
	cellStaffName   = "staff_name"
	cellWorkPackage = "work_package_name"
	cellDate        = "date"
	cellHours       = "number"
	cellProject     = "project"
	cellPurpose     = "purpose"
)

type xmlCell struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

type xmlRow struct {
	Cells []xmlCell `xml:"cell"`
}

// EntryReader decodes the hierarchical time-tracking export
type EntryReader struct {
	logger *zap.Logger
}

// NewEntryReader creates a new EntryReader
func NewEntryReader(logger *zap.Logger) *EntryReader {
	return &EntryReader{logger: logger}
}

// ReadFile reads time entries from path
func (r *EntryReader) ReadFile(path string) ([]TimeEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open time entries: %w", err)
	}
	defer f.Close()
	return r.Read(f)
}

// Read decodes every <row> element carrying named <cell> children. Rows
// lacking staff name, work package or a parsable date are dropped.
func (r *EntryReader) Read(src io.Reader) ([]TimeEntry, error) {
	dec := xml.NewDecoder(src)
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var (
		entries []TimeEntry
		dropped int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse time entries: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "row" {
			continue
		}

		var row xmlRow
		if err := dec.DecodeElement(&row, &start); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		if len(row.Cells) == 0 {
			continue
		}

		entry, ok := buildEntry(row)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrNoDataFound
	}

	r.logger.Info("Time entries loaded",
		zap.Int("entries", len(entries)),
		zap.Int("dropped", dropped))
	return entries, nil
}

func buildEntry(row xmlRow) (TimeEntry, bool) {
	values := make(map[string]string, len(row.Cells))
	for _, c := range row.Cells {
		values[c.Name] = strings.TrimSpace(c.Text)
	}

	staff := values[cellStaffName]
	workPackage := values[cellWorkPackage]
	if staff == "" || workPackage == "" || values[cellDate] == "" {
		return TimeEntry{}, false
	}
	date, ok := ParseEntryDate(values[cellDate])
	if !ok {
		return TimeEntry{}, false
	}

	return TimeEntry{
		Employee:     staff,
		ProjectCode:  values[cellProject],
		Milestone:    NormalizeMilestone(workPackage),
		RawMilestone: workPackage,
		Date:         date,
		Hours:        ParseHours(values[cellHours]),
		Purpose:      values[cellPurpose],
	}, true
}
