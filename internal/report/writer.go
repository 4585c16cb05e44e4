package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/bonus-report/internal/graph"
)

const flagFill = "FFC7CE"

// WorkbookWriter serialises a report into an xlsx workbook with live formulas
type WorkbookWriter struct {
	logger *zap.Logger
}

// NewWorkbookWriter creates a new WorkbookWriter
func NewWorkbookWriter(logger *zap.Logger) *WorkbookWriter {
	return &WorkbookWriter{logger: logger}
}

type styles struct {
	number     int
	flag       int
	flagNumber int
}

// SaveAs writes the workbook to path
func (w *WorkbookWriter) SaveAs(rep *Report, path string) error {
	f, err := w.build(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	w.logger.Info("Workbook written",
		zap.String("path", path),
		zap.Int("sheets", len(rep.Sheets())))
	return nil
}

// Write streams the workbook to dst
func (w *WorkbookWriter) Write(rep *Report, dst io.Writer) error {
	f, err := w.build(rep)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(dst); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (w *WorkbookWriter) build(rep *Report) (*excelize.File, error) {
	f := excelize.NewFile()

	sheets := rep.Sheets()
	if err := f.SetSheetName("Sheet1", sheets[0]); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name cover sheet: %w", err)
	}
	for _, name := range append(sheets[1:], ListSheet) {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	if err := f.SetSheetVisible(ListSheet, false); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to hide list sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	lists := newDropLists()
	for _, node := range rep.Graph().Nodes() {
		if err := w.writeNode(f, node, st, lists); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := enableFullCalcOnLoad(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// enableFullCalcOnLoad makes spreadsheet applications recalculate every
// formula when the workbook is opened.
func enableFullCalcOnLoad(f *excelize.File) error {
	if _, err := f.GetWorkbookProps(); err != nil {
		return fmt.Errorf("failed to read workbook properties: %w", err)
	}
	if f.WorkBook == nil || f.WorkBook.CalcPr == nil {
		return errors.New("workbook has no calculation properties")
	}
	f.WorkBook.CalcPr.FullCalcOnLoad = true
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	numFmt := numberFormat
	fill := excelize.Fill{Type: "pattern", Color: []string{flagFill}, Pattern: 1}

	var (
		st  styles
		err error
	)
	if st.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return st, fmt.Errorf("failed to create number style: %w", err)
	}
	if st.flag, err = f.NewStyle(&excelize.Style{Fill: fill}); err != nil {
		return st, fmt.Errorf("failed to create flag style: %w", err)
	}
	if st.flagNumber, err = f.NewStyle(&excelize.Style{Fill: fill, CustomNumFmt: &numFmt}); err != nil {
		return st, fmt.Errorf("failed to create flag style: %w", err)
	}
	return st, nil
}

func (w *WorkbookWriter) writeNode(f *excelize.File, node *graph.Node, st styles, lists *dropLists) error {
	sheet, cell := node.Ref.Sheet, node.Ref.Cell()

	switch node.Value.Kind {
	case graph.Number:
		if err := f.SetCellValue(sheet, cell, node.Value.Num); err != nil {
			return fmt.Errorf("failed to set %s: %w", node.Ref, err)
		}
	case graph.Text:
		if err := f.SetCellValue(sheet, cell, node.Value.Str); err != nil {
			return fmt.Errorf("failed to set %s: %w", node.Ref, err)
		}
	}

	if node.Expr != nil {
		if err := f.SetCellFormula(sheet, cell, node.Expr.Render()); err != nil {
			return fmt.Errorf("failed to set formula at %s: %w", node.Ref, err)
		}
	}

	if style, ok := pickStyle(node, st); ok {
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style %s: %w", node.Ref, err)
		}
	}

	if len(node.Options) > 0 {
		if err := w.addDropdown(f, node, lists); err != nil {
			return err
		}
	}
	return nil
}

func pickStyle(node *graph.Node, st styles) (int, bool) {
	switch {
	case node.Flag != "" && node.Format != "":
		return st.flagNumber, true
	case node.Flag != "":
		return st.flag, true
	case node.Format != "":
		return st.number, true
	}
	return 0, false
}

// dropLists places every distinct option list in its own column of the
// hidden list sheet
type dropLists struct {
	ranges map[string]string
	next   int
}

func newDropLists() *dropLists {
	return &dropLists{ranges: make(map[string]string), next: 1}
}

func (l *dropLists) rangeOf(f *excelize.File, options []string) (string, error) {
	key := strings.Join(options, "\x00")
	if r, ok := l.ranges[key]; ok {
		return r, nil
	}

	col := l.next
	for i, opt := range options {
		cell, err := excelize.CoordinatesToCellName(col, i+1)
		if err != nil {
			return "", err
		}
		if err := f.SetCellStr(ListSheet, cell, opt); err != nil {
			return "", fmt.Errorf("failed to write list option %q: %w", opt, err)
		}
	}
	first, err := excelize.CoordinatesToCellName(col, 1, true)
	if err != nil {
		return "", err
	}
	last, err := excelize.CoordinatesToCellName(col, len(options), true)
	if err != nil {
		return "", err
	}

	r := fmt.Sprintf("'%s'!%s:%s", ListSheet, first, last)
	l.ranges[key] = r
	l.next++
	return r, nil
}

// addDropdown restricts a cell to its options, read from the list sheet so
// that any option text survives.
func (w *WorkbookWriter) addDropdown(f *excelize.File, node *graph.Node, lists *dropLists) error {
	source, err := lists.rangeOf(f, node.Options)
	if err != nil {
		return fmt.Errorf("failed to store dropdown of %s: %w", node.Ref, err)
	}

	dv := excelize.NewDataValidation(true)
	dv.Sqref = node.Ref.Cell()
	dv.SetSqrefDropList(source)
	if err := f.AddDataValidation(node.Ref.Sheet, dv); err != nil {
		return fmt.Errorf("failed to add dropdown at %s: %w", node.Ref, err)
	}
	return nil
}
