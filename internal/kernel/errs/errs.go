// Package errs defines the sentinel error kinds shared across the kernel.
package errs

import "errors"

var (
	// ErrNotFound is returned when a row is missing by id or name.
	ErrNotFound = errors.New("not found")

	// ErrImmutable is returned when a write would modify a base-knowledge row.
	ErrImmutable = errors.New("immutable")

	// ErrConflict covers unique-name collisions, undismissed schedule
	// conflicts, rejected similar schedules, and active-environment races.
	ErrConflict = errors.New("conflict")

	// ErrBadInput is returned on validation failures (time ordering, weekday
	// range, malformed strict-JSON from a classifier).
	ErrBadInput = errors.New("bad input")

	// ErrUpstream wraps a ChatModel or plugin transport failure.
	ErrUpstream = errors.New("upstream error")

	// ErrDependencyDeadlock is returned when sequential task execution can't
	// find a runnable agent.
	ErrDependencyDeadlock = errors.New("dependency deadlock")

	// ErrCancelled is returned when a per-turn deadline or cancellation
	// fires mid-pipeline.
	ErrCancelled = errors.New("cancelled")
)
