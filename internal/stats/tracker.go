// Package stats tracks cumulative and trailing-window throughput for a
// transfer. The copy engine records samples once per chunk; the control
// surface reads immutable snapshots concurrently.
package stats

import (
	"sync"
	"time"
)

// ringSize bounds the sample ring. At a 64 KiB chunk size this comfortably
// covers a 5 second window for any rate worth displaying.
const ringSize = 1024

// Snapshot is an immutable view of the transfer statistics.
type Snapshot struct {
	BytesTransferred int64
	Elapsed          time.Duration
	AverageRate      float64 // lifetime bytes per second
	SmoothedRate     float64 // trailing-window bytes per second
	TotalSize        int64   // 0 when unknown
	ETA              time.Duration
	ETAKnown         bool
}

// PercentDone returns completion in percent, or -1 when the total size is
// unknown.
func (s Snapshot) PercentDone() float64 {
	if s.TotalSize <= 0 {
		return -1
	}
	return float64(s.BytesTransferred) / float64(s.TotalSize) * 100.0
}

type sample struct {
	at    time.Time
	bytes int64 // cumulative at the time of the sample
}

// Tracker accumulates per-chunk samples over a trailing window. All time is
// passed in by the caller so the window math is deterministic under test.
type Tracker struct {
	mu     sync.Mutex
	start  time.Time
	bytes  int64
	total  int64
	window time.Duration

	ring  [ringSize]sample
	head  int // index of the next slot to write
	count int
}

// NewTracker creates a tracker. totalSize of 0 means the size is unknown and
// no ETA will be reported.
func NewTracker(totalSize int64, window time.Duration, now time.Time) *Tracker {
	return &Tracker{
		start:  now,
		total:  totalSize,
		window: window,
	}
}

// Record appends a sample for n bytes just written.
func (t *Tracker) Record(n int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bytes += int64(n)
	t.ring[t.head] = sample{at: now, bytes: t.bytes}
	t.head = (t.head + 1) % ringSize
	if t.count < ringSize {
		t.count++
	}
}

// Snapshot returns the current statistics. The smoothed rate is computed
// from the oldest and newest samples inside the trailing window and falls
// back to the lifetime average when fewer than two samples are in window.
func (t *Tracker) Snapshot(now time.Time) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		BytesTransferred: t.bytes,
		Elapsed:          now.Sub(t.start),
		TotalSize:        t.total,
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.AverageRate = float64(t.bytes) / secs
	}
	snap.SmoothedRate = t.windowRate(now, snap.AverageRate)

	if t.total > 0 && snap.SmoothedRate > 0 {
		remaining := t.total - t.bytes
		if remaining < 0 {
			remaining = 0
		}
		snap.ETA = time.Duration(float64(remaining) / snap.SmoothedRate * float64(time.Second))
		snap.ETAKnown = true
	}
	return snap
}

// windowRate scans the ring for the oldest in-window sample and derives the
// rate across the window span.
func (t *Tracker) windowRate(now time.Time, fallback float64) float64 {
	cutoff := now.Add(-t.window)

	var oldest, newest sample
	inWindow := 0
	for i := 0; i < t.count; i++ {
		// Walk oldest to newest.
		idx := (t.head - t.count + i + ringSize) % ringSize
		s := t.ring[idx]
		if s.at.Before(cutoff) {
			continue
		}
		if inWindow == 0 {
			oldest = s
		}
		newest = s
		inWindow++
	}
	if inWindow < 2 {
		return fallback
	}
	span := newest.at.Sub(oldest.at).Seconds()
	if span <= 0 {
		return fallback
	}
	return float64(newest.bytes-oldest.bytes) / span
}
