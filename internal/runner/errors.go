package runner

import "errors"

var (
	// ErrQueueFull is returned by Submit when the bounded queue is full
	ErrQueueFull = errors.New("report queue is full")
	// ErrNotRunning is returned by Submit before Start or after Stop
	ErrNotRunning = errors.New("report runner is not running")
	// ErrStopped is delivered to jobs still queued when the runner stops
	ErrStopped = errors.New("report runner stopped")
)
