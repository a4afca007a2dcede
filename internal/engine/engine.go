// Package engine drives the throughput-governed copy loop: read a chunk,
// admit it through the token bucket, write it, record progress. It is the
// single owner of all mutable transfer state; the control surface talks to
// it only through the command queue and reads only published snapshots.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"valve/internal/command"
	"valve/internal/rate"
	"valve/internal/stats"
	"valve/internal/watch"
)

// DefaultChunkSize bounds read-ahead to one chunk.
const DefaultChunkSize = 64 * 1024

// Flusher is implemented by buffered sinks that need a drain before the
// transfer can complete.
type Flusher interface {
	Flush() error
}

// Options configures a new engine.
type Options struct {
	Limit     RateLimit
	TotalSize int64 // 0 when unknown
	ChunkSize int
	Window    time.Duration
}

// Result is the engine's final outcome.
type Result struct {
	State State
	Kind  ErrorKind
	Err   error
	Stats stats.Snapshot
}

// Engine copies src to dst under the configured rate limit, applying queued
// commands at chunk boundaries.
type Engine struct {
	src       io.Reader
	dst       io.Writer
	queue     *command.Queue
	bucket    *rate.Bucket
	tracker   *stats.Tracker
	status    *watch.Value[Status]
	limit     RateLimit
	state     State
	chunkSize int
}

// New creates an engine. If dst implements Flusher it is flushed during the
// draining phase before completion is declared.
func New(src io.Reader, dst io.Writer, queue *command.Queue, opts Options) *Engine {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	window := opts.Window
	if window <= 0 {
		window = 5 * time.Second
	}
	now := time.Now()

	e := &Engine{
		src:       src,
		dst:       dst,
		queue:     queue,
		bucket:    rate.NewBucket(opts.Limit.BytesPerSecond(), chunkSize, now),
		tracker:   stats.NewTracker(opts.TotalSize, window, now),
		limit:     opts.Limit,
		state:     Running,
		chunkSize: chunkSize,
	}
	if opts.Limit.Paused {
		e.state = Paused
		e.bucket.Pause(now)
	}
	e.status = watch.NewValue(Status{
		State: e.state,
		Limit: e.limit,
		Stats: e.tracker.Snapshot(now),
	})
	return e
}

// Status returns the cell on which the engine publishes progress snapshots.
func (e *Engine) Status() *watch.Value[Status] {
	return e.status
}

// Run executes the copy loop until completion, failure, cancellation or a
// Quit command. Cancellation is cooperative: it is observed at chunk
// boundaries and inside admission waits, never mid-write.
func (e *Engine) Run(ctx context.Context) Result {
	buf := make([]byte, e.chunkSize)
	for {
		if e.apply(e.queue.DrainAll()) {
			return e.finish(Cancelled, KindNone, nil)
		}
		if ctx.Err() != nil {
			return e.finish(Cancelled, KindNone, ctx.Err())
		}

		n, readErr := e.src.Read(buf)
		if n > 0 {
			if !e.admit(ctx, n) {
				return e.finish(Cancelled, KindNone, nil)
			}
			if _, err := e.dst.Write(buf[:n]); err != nil {
				return e.finish(Failed, KindWrite, fmt.Errorf("failed to write chunk: %w", err))
			}
			e.tracker.Record(n, time.Now())
			e.publish()
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return e.drain()
			}
			return e.finish(Failed, KindRead, fmt.Errorf("failed to read chunk: %w", readErr))
		}
	}
}

// drain flushes buffered output and completes the transfer.
func (e *Engine) drain() Result {
	e.setState(Draining)
	if f, ok := e.dst.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return e.finish(Failed, KindWrite, fmt.Errorf("failed to flush output: %w", err))
		}
	}
	return e.finish(Completed, KindNone, nil)
}

// admit blocks until n bytes of budget are debited from the bucket. It
// returns false if the transfer was cancelled or quit while waiting. New
// commands wake the wait so a pause, resume or rate change takes effect
// immediately.
func (e *Engine) admit(ctx context.Context, n int) bool {
	for {
		ok, wait := e.bucket.Take(n, time.Now())
		if ok {
			return true
		}

		var fire <-chan time.Time
		var timer *time.Timer
		if wait > 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return false
		case <-e.queue.Wake():
			stopTimer(timer)
			if e.apply(e.queue.DrainAll()) {
				return false
			}
		case <-fire:
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// apply consumes drained commands in order and reports whether a Quit was
// seen. Pause and Resume are idempotent; later SetRates override earlier
// ones naturally by being applied last.
func (e *Engine) apply(cmds []command.Command) (quit bool) {
	if len(cmds) == 0 {
		return false
	}
	now := time.Now()
	for _, c := range cmds {
		switch c := c.(type) {
		case command.Pause:
			if e.state == Running {
				e.setState(Paused)
				e.bucket.Pause(now)
				e.limit.Paused = true
			}
		case command.Resume:
			if e.state == Paused {
				e.setState(Running)
				e.bucket.Resume(now)
				e.limit.Paused = false
			}
		case command.SetRate:
			if c.Unlimited {
				// The last finite magnitude and unit are kept.
				e.limit.Unlimited = true
			} else {
				e.limit.Magnitude = c.Magnitude
				e.limit.Unit = c.Unit
				e.limit.Unlimited = false
			}
			e.bucket.SetRate(e.limit.BytesPerSecond(), now)
		case command.Nudge:
			if e.limit.Unlimited {
				continue
			}
			e.limit.Magnitude += c.Delta
			if e.limit.Magnitude < 0 {
				e.limit.Magnitude = 0
			}
			e.bucket.SetRate(e.limit.BytesPerSecond(), now)
		case command.Quit:
			return true
		}
	}
	e.publish()
	return false
}

func (e *Engine) setState(s State) {
	e.state = s
	e.publish()
}

func (e *Engine) publish() {
	e.status.Set(Status{
		State: e.state,
		Limit: e.limit,
		Stats: e.tracker.Snapshot(time.Now()),
	})
}

func (e *Engine) finish(s State, kind ErrorKind, err error) Result {
	e.setState(s)
	return Result{
		State: s,
		Kind:  kind,
		Err:   err,
		Stats: e.tracker.Snapshot(time.Now()),
	}
}
