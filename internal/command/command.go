// Package command defines the operator intents that flow from the control
// surface into the copy engine, and the ordered queue that carries them.
package command

import (
	"sync"

	"valve/pkg/units"
)

// Command is an operator intent. The copy engine consumes commands with an
// exhaustive type switch once per chunk; they are immutable after Push.
type Command interface {
	isCommand()
}

// Pause suspends admission without discarding the configured rate.
type Pause struct{}

// Resume restores admission at the previously configured rate.
type Resume struct{}

// Quit cancels the transfer.
type Quit struct{}

// SetRate replaces the rate target with a new magnitude and unit, or lifts
// the ceiling entirely when Unlimited is set.
type SetRate struct {
	Magnitude float64
	Unit      units.Unit
	Unlimited bool
}

// Nudge adjusts the rate magnitude by a signed delta in the current unit.
type Nudge struct {
	Delta float64
}

func (Pause) isCommand()   {}
func (Resume) isCommand()  {}
func (Quit) isCommand()    {}
func (SetRate) isCommand() {}
func (Nudge) isCommand()   {}

// Queue is an ordered, non-lossy command queue. Push never blocks and never
// drops; DrainAll returns the pending commands in FIFO order. A buffered
// wake channel lets a blocked engine observe that new commands arrived.
type Queue struct {
	mu   sync.Mutex
	cmds []Command
	wake chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Push enqueues a command without blocking.
func (q *Queue) Push(c Command) {
	q.mu.Lock()
	q.cmds = append(q.cmds, c)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// DrainAll removes and returns all pending commands in the order enqueued.
// It returns nil when the queue is empty.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmds := q.cmds
	q.cmds = nil
	return cmds
}

// Wake returns a channel that receives after a Push. It is a level signal,
// not a count: a single receive may cover several pushed commands, so the
// receiver must always follow up with DrainAll.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}
