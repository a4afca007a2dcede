package engine

import (
	"valve/internal/stats"
	"valve/pkg/units"
)

// State is the transfer state machine's current state.
//
//	Running <-> Paused
//	Running/Paused -> Draining -> Completed
//	Running/Paused -> Failed
//	Running/Paused -> Cancelled
//
// Completed, Failed and Cancelled are terminal.
type State int

const (
	Running State = iota
	Paused
	Draining
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Draining:
		return "draining"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case Completed, Failed, Cancelled:
		return true
	default:
		return false
	}
}

// ErrorKind classifies a fatal transfer error.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindRead
	KindWrite
)

func (k ErrorKind) String() string {
	switch k {
	case KindRead:
		return "read error"
	case KindWrite:
		return "write error"
	default:
		return "none"
	}
}

// RateLimit is the operator-visible rate target. Paused and a zero magnitude
// both admit nothing, but they are distinct settings: pausing keeps the
// magnitude so resuming restores the exact prior target.
type RateLimit struct {
	Magnitude float64
	Unit      units.Unit
	Unlimited bool
	Paused    bool
}

// BytesPerSecond is the effective refill rate the limit configures.
func (r RateLimit) BytesPerSecond() float64 {
	if r.Unlimited {
		return float64(1 << 62)
	}
	return r.Magnitude * float64(r.Unit.Multiplier())
}

func (r RateLimit) String() string {
	if r.Unlimited {
		return "unlimited"
	}
	return units.FormatRate(r.BytesPerSecond())
}

// Status is the read-only snapshot the engine publishes for the control
// surface after every chunk and state change.
type Status struct {
	State State
	Limit RateLimit
	Stats stats.Snapshot
}
