package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chunk = 64 * 1024

func TestTakeDebitsAccruedBudget(t *testing.T) {
	start := time.Now()
	b := NewBucket(1000, chunk, start)

	// Nothing accrued yet.
	ok, wait := b.Take(500, start)
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	// Half a second accrues 500 bytes.
	ok, _ = b.Take(500, start.Add(500*time.Millisecond))
	assert.True(t, ok)

	// Budget was debited; an immediate retry must wait again.
	ok, wait = b.Take(500, start.Add(500*time.Millisecond))
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)
}

func TestCapacityBoundsBurst(t *testing.T) {
	start := time.Now()
	b := NewBucket(1000, 10, start)

	// A long idle interval accrues at most one second of refill.
	ok, _ := b.Take(1000, start.Add(time.Hour))
	assert.True(t, ok)
	ok, _ = b.Take(1, start.Add(time.Hour))
	assert.False(t, ok)
}

func TestCapacityNeverBelowOneChunk(t *testing.T) {
	start := time.Now()
	b := NewBucket(10, chunk, start)

	// Refill is tiny, but a full chunk can still accrue eventually.
	ok, _ := b.Take(chunk, start.Add(time.Duration(chunk)*time.Second/10))
	assert.True(t, ok)
}

func TestSetRatePreservesAccruedBudget(t *testing.T) {
	start := time.Now()
	b := NewBucket(1000, 10, start)

	at := start.Add(time.Second) // 1000 bytes accrued
	b.SetRate(10, at)

	// The accrued budget survives the rate drop even though the new
	// capacity is far smaller.
	ok, _ := b.Take(1000, at)
	assert.True(t, ok)
}

func TestSetRateGrantsNoInstantBurst(t *testing.T) {
	start := time.Now()
	b := NewBucket(10, 10, start)

	at := start.Add(time.Second) // 10 bytes accrued
	b.SetRate(1_000_000, at)

	ok, wait := b.Take(1000, at)
	assert.False(t, ok)
	// The shortfall accrues at the new rate.
	assert.InDelta(t, float64(990)/1_000_000*float64(time.Second), float64(wait), float64(time.Millisecond))
}

func TestPauseSuspendsAccrualWithoutRetroactiveCredit(t *testing.T) {
	start := time.Now()
	b := NewBucket(1000, 10, start)

	b.Pause(start)
	require.True(t, b.Paused())

	// While paused nothing accrues and Take signals an indefinite wait.
	ok, wait := b.Take(100, start.Add(10*time.Second))
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), wait)

	// Resuming earns no credit for the paused interval.
	resumeAt := start.Add(10 * time.Second)
	b.Resume(resumeAt)
	ok, _ = b.Take(100, resumeAt)
	assert.False(t, ok)
	ok, _ = b.Take(100, resumeAt.Add(100*time.Millisecond))
	assert.True(t, ok)
}

func TestPauseKeepsAlreadyAccruedBudget(t *testing.T) {
	start := time.Now()
	b := NewBucket(1000, 10, start)

	pauseAt := start.Add(500 * time.Millisecond) // 500 bytes accrued
	b.Pause(pauseAt)

	ok, _ := b.Take(500, pauseAt.Add(time.Minute))
	assert.True(t, ok)
}

func TestZeroRateAdmitsNothing(t *testing.T) {
	start := time.Now()
	b := NewBucket(0, chunk, start)

	ok, wait := b.Take(1, start.Add(time.Hour))
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), wait)

	// Raising the rate unblocks future admission.
	b.SetRate(1000, start.Add(time.Hour))
	ok, _ = b.Take(1000, start.Add(time.Hour+time.Second))
	assert.True(t, ok)
}

func TestUnlimitedBypassesAccounting(t *testing.T) {
	start := time.Now()
	b := NewBucket(float64(1<<60), chunk, start)
	require.True(t, b.Unlimited())

	for i := 0; i < 100; i++ {
		ok, wait := b.Take(1 << 30, start)
		assert.True(t, ok)
		assert.Equal(t, time.Duration(0), wait)
	}
}

func TestPauseGatesUnlimitedRate(t *testing.T) {
	start := time.Now()
	b := NewBucket(float64(1<<60), chunk, start)

	b.Pause(start)
	ok, wait := b.Take(1, start.Add(time.Hour))
	assert.False(t, ok)
	assert.Equal(t, time.Duration(0), wait)

	b.Resume(start.Add(time.Hour))
	ok, _ = b.Take(1, start.Add(time.Hour))
	assert.True(t, ok)
}

func TestUnlimitedPhaseEarnsNoBudget(t *testing.T) {
	start := time.Now()
	b := NewBucket(float64(1<<60), chunk, start)
	require.True(t, b.Unlimited())

	// Retarget to a finite rate after a long unlimited stretch. The
	// unlimited interval must not have banked tokens.
	b.SetRate(1000, start.Add(10*time.Second))
	require.False(t, b.Unlimited())

	ok, wait := b.Take(100<<20, start.Add(10*time.Second))
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// Budget accrues at the new rate from the transition, not before.
	ok, _ = b.Take(500, start.Add(10*time.Second))
	assert.False(t, ok)
	ok, _ = b.Take(500, start.Add(11*time.Second))
	assert.True(t, ok)
}

func TestPauseAfterUnlimitedKeepsBucketEmpty(t *testing.T) {
	start := time.Now()
	b := NewBucket(float64(1<<60), chunk, start)

	b.Pause(start.Add(time.Hour))
	b.Resume(start.Add(2 * time.Hour))
	b.SetRate(1000, start.Add(2*time.Hour))

	ok, _ := b.Take(chunk, start.Add(2*time.Hour))
	assert.False(t, ok)
}

func TestTinyShortfallYieldsNonZeroWait(t *testing.T) {
	start := time.Now()
	b := NewBucket(float64(4<<30), chunk, start)

	ok, wait := b.Take(1, start)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}
