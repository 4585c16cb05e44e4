package report

import "errors"

var (
	// ErrAmbiguousQuarter is returned when the requested quarter has no time entries
	ErrAmbiguousQuarter = errors.New("requested quarter is not present in the time entries")

	// ErrInvalidQuarter is returned for quarter labels that cannot be parsed
	ErrInvalidQuarter = errors.New("invalid quarter")

	// ErrInvalidTarget is returned when hours are reassigned outside the candidate set
	ErrInvalidTarget = errors.New("transfer target is not a candidate for this row")

	// ErrUnknownEmployee is returned for employees without a sheet
	ErrUnknownEmployee = errors.New("unknown employee")
)
