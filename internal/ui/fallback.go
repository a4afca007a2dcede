package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"valve/internal/engine"
	"valve/internal/watch"
	"valve/pkg/units"

	"github.com/schollz/progressbar/v3"
)

// Fallback is the non-interactive surface: it renders a progress bar on
// stderr and accepts no input. It is used when the controlling terminal
// cannot be acquired or when interactivity is disabled.
type Fallback struct {
	status *watch.Value[engine.Status]
	tick   time.Duration
}

// NewFallback creates the non-interactive surface.
func NewFallback(status *watch.Value[engine.Status], tick time.Duration) *Fallback {
	return &Fallback{status: status, tick: tick}
}

// Run updates the progress bar until the transfer reaches a terminal state
// or the context is cancelled.
func (f *Fallback) Run(ctx context.Context) {
	st := f.status.Get()

	// Indeterminate when no size hint is available.
	total := st.Stats.TotalSize
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("copying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)

	ticker := time.NewTicker(f.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st = f.status.Get()
			_ = bar.Set64(st.Stats.BytesTransferred)
			bar.Describe(describe(st))
			if st.State.Terminal() {
				_ = bar.Finish()
				return
			}
		}
	}
}

func describe(st engine.Status) string {
	if st.State == engine.Paused {
		return fmt.Sprintf("paused (target %s)", st.Limit)
	}
	return fmt.Sprintf("copying (%s, target %s)",
		units.FormatRate(st.Stats.SmoothedRate), st.Limit)
}
