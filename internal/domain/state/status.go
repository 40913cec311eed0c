// Package state tracks the progress of pipeline steps and the dependencies between them.
package state

import "sync/atomic"

// Status is the lifecycle state of a single step.
type Status int

// Step statuses. Canceled and Invalidated are not done and dirty: data produced by
// the step must be released before it runs again.
const (
	Fresh Status = iota
	Started
	Canceled
	Done
	Invalidated
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Started:
		return "started"
	case Canceled:
		return "canceled"
	case Done:
		return "done"
	case Invalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// IsDirty reports whether the step left data behind that needs cleanup.
func (s Status) IsDirty() bool {
	return s == Canceled || s == Invalidated
}

// Timestamp orders state changes across all machines.
type Timestamp uint64

var clock atomic.Uint64

func nextTimestamp() Timestamp {
	return Timestamp(clock.Add(1))
}

// WarningLevel is the severity of a step warning.
type WarningLevel int

const (
	// WarningNonCritical is informative.
	WarningNonCritical WarningLevel = iota
	// WarningCritical likely produces a failed print.
	WarningCritical
)

// String returns the level name.
func (l WarningLevel) String() string {
	if l == WarningCritical {
		return "critical"
	}
	return "non-critical"
}

// Warning is attached to the step that raised it.
// Current is cleared when the step is invalidated or restarted; stale warnings
// are dropped when the step finishes again.
type Warning struct {
	Level     WarningLevel
	Message   string
	MessageID int
	Current   bool
}
