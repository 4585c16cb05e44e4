package normalize

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadableSource is returned when no encoding/delimiter combination parses the budget master
	ErrUnreadableSource = errors.New("budget master could not be decoded with any supported encoding")

	// ErrNoDataFound is returned when the time-entry document has no usable rows
	ErrNoDataFound = errors.New("time entries contain no usable rows")
)

// MissingColumnError reports a required column that is absent under all aliases
type MissingColumnError struct {
	Column  string
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q not found (tried %v)", e.Column, e.Aliases)
}
