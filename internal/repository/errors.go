package repository

import "errors"

// ErrRunNotFound is returned when an update targets an unknown run
var ErrRunNotFound = errors.New("run not found")
