// Package sim implements the world scheduler: the component store facade,
// the tick state machine, and the deterministic update pipeline.
package sim

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is returned by store operations referencing an entity
// id that does not exist (never created, or already despawned). It is the
// caller's bug, reported and recoverable; it does not abort a tick.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrStopped is returned by AdvanceTick after the scheduler reached its
// terminal state, either through Stop or a fatal invariant violation.
var ErrStopped = errors.New("scheduler stopped")

// ErrNotReady is returned by AdvanceTick before Populate has supplied the
// initial entity set.
var ErrNotReady = errors.New("scheduler not ready")

// InvariantViolationError is fatal: the store, index, or a genome broke an
// internal invariant (index/store desync, out-of-range trait, double
// despawn). The current tick aborts atomically and the scheduler
// transitions to Stopped; there is no recovery or self-healing.
type InvariantViolationError struct {
	Tick   int64
	System string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	if e.System != "" {
		return fmt.Sprintf("core invariant violation at tick %d in %s: %s", e.Tick, e.System, e.Detail)
	}
	return fmt.Sprintf("core invariant violation at tick %d: %s", e.Tick, e.Detail)
}
