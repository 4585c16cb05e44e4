package graph

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Ref addresses one cell of the workbook. Col and Row are 1-based.
type Ref struct {
	Sheet string
	Col   int
	Row   int
}

// At builds a Ref
func At(sheet string, col, row int) Ref {
	return Ref{Sheet: sheet, Col: col, Row: row}
}

// Cell returns the A1 coordinate of r without sheet
func (r Ref) Cell() string {
	name, err := excelize.CoordinatesToCellName(r.Col, r.Row)
	if err != nil {
		return fmt.Sprintf("R%dC%d", r.Row, r.Col)
	}
	return name
}

// String renders a fully qualified reference such as 'Max Muster'!H12
func (r Ref) String() string {
	return QuoteSheet(r.Sheet) + "!" + r.Cell()
}

// QuoteSheet quotes a sheet name for use in a formula
func QuoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// Range is a contiguous block of one column
type Range struct {
	Sheet string
	Col   int
	From  int
	To    int
}

// Column builds a Range over rows from..to of one column
func Column(sheet string, col, from, to int) Range {
	return Range{Sheet: sheet, Col: col, From: from, To: to}
}

// Refs enumerates every cell of the range top to bottom
func (r Range) Refs() []Ref {
	if r.To < r.From {
		return nil
	}
	out := make([]Ref, 0, r.To-r.From+1)
	for row := r.From; row <= r.To; row++ {
		out = append(out, Ref{Sheet: r.Sheet, Col: r.Col, Row: row})
	}
	return out
}

func (r Range) String() string {
	from := Ref{Sheet: r.Sheet, Col: r.Col, Row: r.From}
	to := Ref{Sheet: r.Sheet, Col: r.Col, Row: r.To}
	return QuoteSheet(r.Sheet) + "!" + from.Cell() + ":" + to.Cell()
}
