// Package rate implements the token-bucket admission control that governs
// the copy loop: a live-adjustable refill rate, pause/resume that never
// grants retroactive credit, and an unlimited mode that bypasses accounting.
//
// The bucket is passive and single-owner: it never sleeps and never locks.
// Take reports how long the caller should wait, and the copy engine owns all
// blocking so that pending commands can interrupt the wait. The current time
// is passed in by the caller, which keeps the refill math deterministic
// under test.
package rate

import (
	"time"
)

// unlimitedThreshold is the effective bytes-per-second above which the
// bucket skips accounting entirely. Anything this large cannot be throttled
// meaningfully and the float math would start losing precision.
const unlimitedThreshold = float64(1 << 50)

// Bucket is a token bucket denominated in bytes.
type Bucket struct {
	capacity  float64
	available float64
	refill    float64 // configured bytes per second
	last      time.Time
	paused    bool

	// minCapacity keeps the burst allowance at least one chunk so a single
	// chunk can always be admitted eventually.
	minCapacity float64
}

// NewBucket creates a bucket refilling at bytesPerSec. The burst capacity is
// one second of refill, but never less than one chunk. A bytesPerSec of 0
// admits nothing until the rate is raised.
func NewBucket(bytesPerSec float64, chunkSize int, now time.Time) *Bucket {
	b := &Bucket{
		minCapacity: float64(chunkSize),
		last:        now,
	}
	b.setRate(bytesPerSec)
	return b
}

// Unlimited reports whether the configured rate bypasses accounting.
func (b *Bucket) Unlimited() bool {
	return b.refill >= unlimitedThreshold
}

// Paused reports whether refilling is suspended.
func (b *Bucket) Paused() bool {
	return b.paused
}

// Take attempts to debit n bytes. It returns ok=true when the budget was
// available and debited. Otherwise ok=false and wait is the duration after
// which the shortfall will have accrued; a zero wait means the bucket cannot
// make progress on its own (paused, or rate is zero) and the caller must
// wait for a reconfiguration.
func (b *Bucket) Take(n int, now time.Time) (ok bool, wait time.Duration) {
	if b.Unlimited() && !b.paused {
		return true, 0
	}
	b.advance(now)

	need := float64(n)
	if b.available >= need {
		b.available -= need
		return true, 0
	}
	if b.paused || b.refill <= 0 {
		return false, 0
	}
	shortfall := need - b.available
	wait = time.Duration(shortfall / b.refill * float64(time.Second))
	if wait <= 0 {
		// A sub-nanosecond shortfall must not truncate to the zero wait
		// that signals a stuck bucket.
		wait = time.Nanosecond
	}
	return false, wait
}

// SetRate updates the refill rate for future accrual. Budget already in the
// bucket is kept as-is: lowering the rate does not starve an accrued chunk,
// and raising it does not grant an instant burst.
func (b *Bucket) SetRate(bytesPerSec float64, now time.Time) {
	b.advance(now)
	b.setRate(bytesPerSec)
}

// Pause suspends refilling. Budget accrued up to now stays available.
func (b *Bucket) Pause(now time.Time) {
	b.advance(now)
	b.paused = true
}

// Resume restarts refilling from now. The paused interval earns no credit.
func (b *Bucket) Resume(now time.Time) {
	b.paused = false
	b.last = now
}

func (b *Bucket) setRate(bytesPerSec float64) {
	b.refill = bytesPerSec
	b.capacity = bytesPerSec
	if b.capacity < b.minCapacity {
		b.capacity = b.minCapacity
	}
}

// advance credits refill for the elapsed interval, capped at capacity.
func (b *Bucket) advance(now time.Time) {
	if b.paused {
		return
	}
	// Unlimited mode bypasses accounting; its astronomical refill must not
	// accrue, or the first finite rate configured after an unlimited phase
	// would inherit a bottomless budget and never throttle.
	if b.Unlimited() {
		b.last = now
		return
	}
	elapsed := now.Sub(b.last).Seconds()
	b.last = now
	if elapsed <= 0 || b.refill <= 0 {
		return
	}
	// Budget already at or above capacity is honored as-is (a rate change
	// may have shrunk the capacity under it) but earns nothing further.
	if b.available >= b.capacity {
		return
	}
	b.available += elapsed * b.refill
	if b.available > b.capacity {
		b.available = b.capacity
	}
}
