package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"valve/internal/command"
	"valve/internal/engine"
	"valve/internal/stats"
	"valve/internal/watch"
	"valve/pkg/units"

	"golang.org/x/term"
)

// Saturation display tolerances: the observed rate is marked as saturated
// when it meets or exceeds the target, or is within one byte per second or
// ten percent of it.
const (
	saturatedAbsolute = 1.0
	saturatedRelative = 0.1
)

// Interactive is the raw-mode control surface. It owns the controlling
// terminal (/dev/tty), never the data streams: stdin and stdout stay free
// for the transfer.
type Interactive struct {
	queue  *command.Queue
	status *watch.Value[engine.Status]
	tty    *os.File
	tick   time.Duration
	ctl    *controller
}

// NewInteractive opens the controlling terminal. It fails when no usable
// terminal is available, in which case the caller should degrade to the
// non-interactive fallback rather than abort the copy.
func NewInteractive(queue *command.Queue, status *watch.Value[engine.Status], tick time.Duration) (*Interactive, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open controlling terminal: %w", err)
	}
	if !term.IsTerminal(int(tty.Fd())) {
		tty.Close()
		return nil, fmt.Errorf("controlling terminal is not interactive")
	}
	return &Interactive{
		queue:  queue,
		status: status,
		tty:    tty,
		tick:   tick,
		ctl:    newController(queue),
	}, nil
}

// Run renders on every tick and maps key presses to commands until the
// transfer reaches a terminal state, the operator quits, or the context is
// cancelled. Raw mode and the alternate screen are released on every exit
// path.
func (s *Interactive) Run(ctx context.Context) {
	fd := int(s.tty.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Degrade to a passive wait rather than aborting the copy.
		s.tty.Close()
		s.waitForTerminalState(ctx)
		return
	}
	defer func() {
		fmt.Fprint(s.tty, "\x1b[?25h\x1b[?1049l") // show cursor, leave alt screen
		term.Restore(fd, oldState)
		s.tty.Close()
	}()
	fmt.Fprint(s.tty, "\x1b[?1049h\x1b[?25l") // enter alt screen, hide cursor

	keys := make(chan keyEvent, 16)
	done := make(chan struct{})
	defer close(done)
	go s.readKeys(keys, done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.render(s.status.Get())
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-keys:
			st := s.status.Get()
			if s.ctl.handleKey(k, st) {
				s.queue.Push(command.Quit{})
				return
			}
			s.render(st)
		case <-ticker.C:
			st := s.status.Get()
			s.render(st)
			if st.State.Terminal() {
				return
			}
		}
	}
}

// readKeys feeds decoded key events until the tty is closed or the surface
// shuts down. Closing the tty unblocks the read; done unblocks a pending
// send when the receiver is already gone.
func (s *Interactive) readKeys(keys chan<- keyEvent, done <-chan struct{}) {
	buf := make([]byte, 16)
	for {
		n, err := s.tty.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range decodeKeys(buf[:n]) {
			select {
			case keys <- ev:
			case <-done:
				return
			}
		}
	}
}

// waitForTerminalState is the degraded mode when raw mode could not be
// acquired: no rendering, no input, just an orderly exit with the transfer.
func (s *Interactive) waitForTerminalState(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.status.Get().State.Terminal() {
				return
			}
		}
	}
}

// render redraws the whole surface. Raw mode needs explicit carriage
// returns, and each line is cleared before being rewritten.
func (s *Interactive) render(st engine.Status) {
	var b strings.Builder
	b.WriteString("\x1b[H") // home

	line := func(text string) {
		b.WriteString("\x1b[2K")
		b.WriteString(text)
		b.WriteString("\r\n")
	}

	header := "valve  stdin -> stdout"
	switch {
	case st.State == engine.Paused:
		header += "   [PAUSED]"
	case st.State.Terminal():
		header += "   [" + strings.ToUpper(st.State.String()) + "]"
	}
	line(header)
	line(progressLine(st.Stats))
	line(rateLine(st))
	line(fmt.Sprintf("elapsed %s   eta %s",
		formatClock(st.Stats.Elapsed, true),
		formatClock(st.Stats.ETA, st.Stats.ETAKnown)))
	line("")
	line("space pause   arrows rate -/+   u unit   U unlimited   0-9 enter rate   q quit")

	if s.ctl.entering {
		line(fmt.Sprintf("rate> %s_", s.ctl.entry))
	} else if notice := s.ctl.currentNotice(time.Now()); notice != "" {
		line(notice)
	} else {
		line("")
	}

	fmt.Fprint(s.tty, b.String())
}

// progressLine renders the bar, completion and byte counts; without a size
// hint only the transferred bytes are shown.
func progressLine(snap stats.Snapshot) string {
	transferred := units.FormatBytes(snap.BytesTransferred)
	if snap.TotalSize <= 0 {
		return fmt.Sprintf("%s transferred (total unknown)", transferred)
	}
	pct := snap.PercentDone()
	if pct > 100 {
		pct = 100
	}
	const width = 30
	filled := int(pct / 100 * width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %5.1f%%  %s / %s", bar, pct, transferred, units.FormatBytes(snap.TotalSize))
}

// rateLine shows the target and observed rates, marking the observed rate
// when it has converged on the target.
func rateLine(st engine.Status) string {
	target := st.Limit.String()
	observed := units.FormatRate(st.Stats.SmoothedRate)
	if saturated(st.Stats.SmoothedRate, st.Limit) {
		observed += "*"
	}
	avg := units.FormatRate(st.Stats.AverageRate)
	return fmt.Sprintf("target %s   now %s   avg %s", target, observed, avg)
}

func saturated(observed float64, limit engine.RateLimit) bool {
	if limit.Unlimited || limit.Paused {
		return false
	}
	target := limit.BytesPerSecond()
	if target <= 0 {
		return false
	}
	if observed >= target {
		return true
	}
	distance := target - observed
	return distance <= saturatedAbsolute || distance/target <= saturatedRelative
}

// formatClock renders a duration as hh:mm:ss, or a placeholder when the
// value is undefined.
func formatClock(d time.Duration, known bool) string {
	if !known {
		return "--:--:--"
	}
	secs := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
