// Package ui implements the control surfaces for a transfer: an interactive
// raw-mode surface on the controlling terminal that maps keystrokes to
// commands and renders live progress, and a non-interactive fallback that
// only renders a progress bar on stderr. Neither touches transfer state
// directly; they push commands onto the queue and read published snapshots.
package ui

import "context"

// Surface runs a control surface until the transfer reaches a terminal
// state or the context is cancelled.
type Surface interface {
	Run(ctx context.Context)
}
