package normalize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sourceFormat is one encoding/delimiter candidate for the budget master
type sourceFormat struct {
	name   string
	comma  rune
	decode func([]byte) ([]byte, error)
}

// masterFormats are tried in order; the first that decodes wins
var masterFormats = []sourceFormat{
	{name: "utf-16", comma: '\t', decode: decodeUTF16},
	{name: "utf-8-sig", comma: '\t', decode: decodeUTF8},
	{name: "cp1252", comma: '\t', decode: decodeWindows1252},
	{name: "utf-8-sig", comma: ';', decode: decodeUTF8},
}

func decodeUTF16(data []byte) ([]byte, error) {
	return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
}

func decodeUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("input is not valid utf-8")
	}
	return data, nil
}

func decodeWindows1252(data []byte) ([]byte, error) {
	return charmap.Windows1252.NewDecoder().Bytes(data)
}

// MasterReader decodes budget-master exports into ordered rows
type MasterReader struct {
	aliases ColumnAliases
	logger  *zap.Logger
}

// NewMasterReader creates a new MasterReader
func NewMasterReader(aliases ColumnAliases, logger *zap.Logger) *MasterReader {
	return &MasterReader{
		aliases: aliases,
		logger:  logger,
	}
}

// ReadFile reads the budget master at path
func (r *MasterReader) ReadFile(path string) ([]MasterRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read budget master: %w", err)
	}
	return r.parse(data)
}

// Read reads the budget master from an arbitrary reader
func (r *MasterReader) Read(src io.Reader) ([]MasterRow, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read budget master: %w", err)
	}
	return r.parse(data)
}

func (r *MasterReader) parse(data []byte) ([]MasterRow, error) {
	for _, format := range masterFormats {
		records, err := decodeRecords(data, format)
		if err != nil {
			r.logger.Debug("Budget master format rejected",
				zap.String("encoding", format.name),
				zap.String("delimiter", string(format.comma)),
				zap.Error(err))
			continue
		}

		r.logger.Debug("Budget master decoded",
			zap.String("encoding", format.name),
			zap.Int("records", len(records)))
		return r.buildRows(records)
	}
	return nil, ErrUnreadableSource
}

func decodeRecords(data []byte, format sourceFormat) ([][]string, error) {
	text, err := format.decode(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = format.comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 {
		return nil, fmt.Errorf("header has fewer than two columns")
	}
	return records, nil
}

// columnIndex maps each logical column to its position, -1 when absent
type columnIndex struct {
	project, workPackage, billed           int
	budgetHours, actualHours               int
	targetAmount, billedAmount, actualCost int
}

func cleanHeader(s string) string {
	s = strings.ReplaceAll(s, "\u200b", "")
	s = strings.ReplaceAll(s, "\ufeff", "")
	return strings.TrimSpace(s)
}

func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.EqualFold(h, alias) {
				return i
			}
		}
	}
	return -1
}

func (r *MasterReader) resolveColumns(header []string) (columnIndex, error) {
	idx := columnIndex{
		project:      findColumn(header, r.aliases.Project),
		workPackage:  findColumn(header, r.aliases.WorkPackage),
		billed:       findColumn(header, r.aliases.BilledMarker),
		budgetHours:  findColumn(header, r.aliases.BudgetHours),
		actualHours:  findColumn(header, r.aliases.ActualHours),
		targetAmount: findColumn(header, r.aliases.TargetAmount),
		billedAmount: findColumn(header, r.aliases.BilledAmount),
		actualCost:   findColumn(header, r.aliases.ActualCost),
	}
	if idx.project < 0 {
		return idx, &MissingColumnError{Column: firstAlias(r.aliases.Project, "Projekte"), Aliases: r.aliases.Project}
	}
	if idx.workPackage < 0 {
		return idx, &MissingColumnError{Column: firstAlias(r.aliases.WorkPackage, "Arbeitspaket"), Aliases: r.aliases.WorkPackage}
	}
	return idx, nil
}

func firstAlias(aliases []string, fallback string) string {
	if len(aliases) > 0 {
		return aliases[0]
	}
	return fallback
}

func (r *MasterReader) buildRows(records [][]string) ([]MasterRow, error) {
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = cleanHeader(h)
	}

	idx, err := r.resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []MasterRow
	lastProject := ""
	for n, record := range records[1:] {
		project := strings.TrimSpace(cell(record, idx.project))
		if project == "" {
			project = lastProject
		}
		lastProject = project

		workPackage := strings.TrimSpace(cell(record, idx.workPackage))
		if workPackage == "" || workPackage == "-" || project == "" {
			continue
		}

		rows = append(rows, MasterRow{
			Line:         n + 2,
			Project:      project,
			WorkPackage:  workPackage,
			Milestone:    NormalizeMilestone(workPackage),
			Billed:       strings.TrimSpace(cell(record, idx.billed)) != "",
			BudgetHours:  numericCell(record, idx.budgetHours),
			ActualHours:  numericCell(record, idx.actualHours),
			TargetAmount: numericCell(record, idx.targetAmount),
			BilledAmount: numericCell(record, idx.billedAmount),
			ActualCost:   numericCell(record, idx.actualCost),
		})
	}

	r.logger.Info("Budget master loaded", zap.Int("rows", len(rows)))
	return rows, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func numericCell(record []string, i int) float64 {
	if i < 0 {
		return math.NaN()
	}
	return ParseLocaleNumber(cell(record, i))
}

// MilestoneFigures are the budget-master hour totals of one (project, milestone)
type MilestoneFigures struct {
	BudgetHours float64
	ActualHours float64
}

// MilestoneKey identifies a milestone within a project
type MilestoneKey struct {
	Project   string
	Milestone string
}

// MilestoneHours groups the master by (project, milestone) and sums budgeted
// and actual hours, treating NaN as zero.
func MilestoneHours(rows []MasterRow) map[MilestoneKey]MilestoneFigures {
	out := make(map[MilestoneKey]MilestoneFigures)
	for _, row := range rows {
		key := MilestoneKey{Project: row.Project, Milestone: row.Milestone}
		fig := out[key]
		fig.BudgetHours += ZeroIfNaN(row.BudgetHours)
		fig.ActualHours += ZeroIfNaN(row.ActualHours)
		out[key] = fig
	}
	return out
}

// ZeroIfNaN maps NaN to 0
func ZeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
