package graph

import (
	"strconv"
	"strings"
)

// Kind is the type of a cell value
type Kind int

const (
	Empty Kind = iota
	Number
	Text
)

// Value is the computed content of a cell
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// NumberValue wraps a float
func NumberValue(v float64) Value {
	return Value{Kind: Number, Num: v}
}

// TextValue wraps a string
func TextValue(s string) Value {
	return Value{Kind: Text, Str: s}
}

// Float returns the numeric content; text and empty cells count as 0
func (v Value) Float() float64 {
	if v.Kind == Number {
		return v.Num
	}
	return 0
}

// Equal compares like a spreadsheet: text case-insensitively, empty as 0 or ""
func (v Value) Equal(o Value) bool {
	if v.Kind == Text || o.Kind == Text {
		return strings.EqualFold(v.String(), o.String())
	}
	return v.Float() == o.Float()
}

func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Text:
		return v.Str
	default:
		return ""
	}
}

func boolValue(b bool) Value {
	if b {
		return NumberValue(1)
	}
	return NumberValue(0)
}
