// Package watch provides a single-value publish/subscribe cell: one writer
// replaces the value, any number of readers copy the latest. It is the
// engine-to-surface half of the session's concurrency model, complementing
// the command queue going the other way.
package watch

import "sync"

// Value holds the latest published value of type T. Get returns a copy, so
// T should be a value type without shared mutable internals.
type Value[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewValue creates a cell holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial}
}

// Set publishes a new value.
func (w *Value[T]) Set(v T) {
	w.mu.Lock()
	w.v = v
	w.mu.Unlock()
}

// Get returns the latest published value.
func (w *Value[T]) Get() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.v
}
