package engine

import "errors"

// Sentinel errors shared across the scheduler and the HTTP edge.
var (
	// ErrQueueClosed is returned by Classify after the scheduler has been
	// shut down and is no longer accepting work.
	ErrQueueClosed = errors.New("classification queue is closed")

	// ErrSinkDropped indicates the result sink was destroyed before the
	// scheduler could deliver an outcome.
	ErrSinkDropped = errors.New("result sink dropped before delivery")

	// ErrBackend wraps failures reported by the batched backend, both
	// per-request and batch-level.
	ErrBackend = errors.New("backend classification failed")

	// ErrEmptyInput rejects requests whose input contains no strings.
	ErrEmptyInput = errors.New("input must contain at least one string")
)
