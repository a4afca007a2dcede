// Package session ties a transfer together: it owns the lifecycle of the
// copy engine and the control surface, wires them through the command queue
// and the published status, and reduces the result to an exit outcome.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"valve/internal/command"
	"valve/internal/config"
	"valve/internal/engine"
	"valve/internal/stats"
	"valve/internal/ui"
	"valve/pkg/units"
)

// Exit codes: success, I/O failure, and the conventional interrupt-style
// code for an operator-cancelled transfer.
const (
	ExitCompleted = 0
	ExitFailed    = 1
	ExitCancelled = 130
)

// ExitOutcome is the session's final result.
type ExitOutcome struct {
	State engine.State
	Kind  engine.ErrorKind
	Err   error
	Stats stats.Snapshot
}

// ExitCode maps the terminal state to a process exit code.
func (o *ExitOutcome) ExitCode() int {
	switch o.State {
	case engine.Completed:
		return ExitCompleted
	case engine.Cancelled:
		return ExitCancelled
	default:
		return ExitFailed
	}
}

// Session runs one transfer from src to dst under the initial configuration.
type Session struct {
	cfg *config.Config
	src io.Reader
	dst io.Writer
}

// New creates a session. The configuration is consumed once; every later
// change arrives through the command queue.
func New(cfg *config.Config, src io.Reader, dst io.Writer) *Session {
	return &Session{cfg: cfg, src: src, dst: dst}
}

// Run executes the transfer and blocks until both the engine and the
// control surface have finished. The surface's terminal mode is restored on
// every exit path before Run returns.
func (s *Session) Run(ctx context.Context) *ExitOutcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := command.NewQueue()
	out := bufio.NewWriterSize(s.dst, s.cfg.Transfer.ChunkSize)
	eng := engine.New(s.src, out, queue, engine.Options{
		Limit: engine.RateLimit{
			Magnitude: s.cfg.Rate.Magnitude,
			Unit:      s.cfg.Rate.Unit,
			Unlimited: s.cfg.Rate.Unlimited,
			Paused:    s.cfg.Transfer.StartPaused,
		},
		TotalSize: s.cfg.Transfer.TotalSize,
		ChunkSize: s.cfg.Transfer.ChunkSize,
		Window:    s.cfg.Transfer.Window,
	})

	resultCh := make(chan engine.Result, 1)
	go func() {
		resultCh <- eng.Run(ctx)
	}()

	surfaceDone := make(chan struct{})
	if surface := s.buildSurface(queue, eng); surface != nil {
		go func() {
			defer close(surfaceDone)
			surface.Run(ctx)
		}()
	} else {
		close(surfaceDone)
	}

	res := <-resultCh
	cancel()
	<-surfaceDone

	outcome := &ExitOutcome{
		State: res.State,
		Kind:  res.Kind,
		Err:   res.Err,
		Stats: res.Stats,
	}
	s.report(outcome)
	return outcome
}

// buildSurface picks the control surface: interactive when a controlling
// terminal is available, the progress-bar fallback when it is not or when
// interactivity is disabled, nothing in quiet mode.
func (s *Session) buildSurface(queue *command.Queue, eng *engine.Engine) ui.Surface {
	if s.cfg.UI.Quiet {
		return nil
	}
	if !s.cfg.UI.NoUI {
		surface, err := ui.NewInteractive(queue, eng.Status(), s.cfg.UI.RenderTick)
		if err == nil {
			return surface
		}
		log.Printf("Interactive mode unavailable: %v (progress only)", err)
	}
	return ui.NewFallback(eng.Status(), s.cfg.UI.RenderTick)
}

// report prints the final summary to stderr; stdout belongs to the data.
func (s *Session) report(o *ExitOutcome) {
	if o.Err != nil {
		log.Printf("Transfer %s: %v", o.State, o.Err)
	}
	if s.cfg.UI.Quiet || o.State != engine.Completed {
		return
	}

	elapsed := o.Stats.Elapsed.Round(time.Millisecond)
	fmt.Fprintf(os.Stderr, "=============================================\n")
	fmt.Fprintf(os.Stderr, "Transfer completed successfully!\n")
	fmt.Fprintf(os.Stderr, "+ Total bytes copied: %s\n", units.FormatBytes(o.Stats.BytesTransferred))
	fmt.Fprintf(os.Stderr, "+ Transfer time: %s\n", elapsed)
	fmt.Fprintf(os.Stderr, "+ Average throughput: %s\n", units.FormatRate(o.Stats.AverageRate))
	fmt.Fprintf(os.Stderr, "=============================================\n")
}
