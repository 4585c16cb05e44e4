package graph

import "errors"

var (
	// ErrCycle is returned when formulas reference each other in a loop
	ErrCycle = errors.New("formula graph contains a cycle")

	// ErrPendingReference is returned when a placeholder was never resolved
	ErrPendingReference = errors.New("unresolved pending reference")

	// ErrNotEditable is returned when writing to a computed or fixed cell
	ErrNotEditable = errors.New("cell is not editable")

	// ErrInvalidOption is returned when a dropdown cell receives a value outside its options
	ErrInvalidOption = errors.New("value is not one of the allowed options")

	// ErrUnknownCell is returned for references to cells that were never defined
	ErrUnknownCell = errors.New("unknown cell")
)
