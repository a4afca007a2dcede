package ui

import (
	"fmt"
	"time"

	"valve/internal/command"
	"valve/internal/engine"
	"valve/pkg/units"
)

// nudgeStep is the magnitude delta applied by the rate up/down keys, in the
// current unit.
const nudgeStep = 10

// noticeDuration is how long an inline message stays on screen.
const noticeDuration = 3 * time.Second

// controller translates key events into commands. It owns only presentation
// state: the in-progress rate entry and a transient inline notice. All
// transfer state it consults comes from the last published snapshot.
type controller struct {
	queue *command.Queue

	entering bool
	entry    []byte

	notice      string
	noticeUntil time.Time
}

func newController(queue *command.Queue) *controller {
	return &controller{queue: queue}
}

// handleKey processes one key against the last known status and reports
// whether the operator asked to quit.
func (c *controller) handleKey(k keyEvent, st engine.Status) (quit bool) {
	if c.entering {
		c.handleEntryKey(k)
		return false
	}

	switch k.kind {
	case keyCtrlC:
		return true
	case keyLeft, keyDown:
		c.queue.Push(command.Nudge{Delta: -nudgeStep})
	case keyRight, keyUp:
		c.queue.Push(command.Nudge{Delta: nudgeStep})
	case keyChar:
		switch k.ch {
		case 'q':
			return true
		case ' ', 'p':
			if st.Limit.Paused {
				c.queue.Push(command.Resume{})
			} else {
				c.queue.Push(command.Pause{})
			}
		case '-':
			c.queue.Push(command.Nudge{Delta: -nudgeStep})
		case '+', '=':
			c.queue.Push(command.Nudge{Delta: nudgeStep})
		case 'u':
			if !st.Limit.Unlimited {
				c.queue.Push(command.SetRate{
					Magnitude: st.Limit.Magnitude,
					Unit:      st.Limit.Unit.Next(),
				})
			}
		case 'U':
			c.queue.Push(command.SetRate{Unlimited: true})
		default:
			if (k.ch >= '0' && k.ch <= '9') || k.ch == '.' {
				c.entering = true
				c.entry = []byte{k.ch}
			}
		}
	}
	return false
}

// handleEntryKey edits the free-form rate entry. A malformed rate is
// rejected with an inline notice and the previous limit stays in effect.
func (c *controller) handleEntryKey(k keyEvent) {
	switch k.kind {
	case keyEnter:
		text := string(c.entry)
		c.entering = false
		c.entry = nil
		magnitude, unit, unlimited, err := units.ParseRate(text)
		if err != nil {
			c.setNotice(fmt.Sprintf("invalid rate %q", text))
			return
		}
		c.queue.Push(command.SetRate{Magnitude: magnitude, Unit: unit, Unlimited: unlimited})
	case keyEscape, keyCtrlC:
		c.entering = false
		c.entry = nil
	case keyBackspace:
		if len(c.entry) > 0 {
			c.entry = c.entry[:len(c.entry)-1]
		}
		if len(c.entry) == 0 {
			c.entering = false
			c.entry = nil
		}
	case keyChar:
		c.entry = append(c.entry, k.ch)
	}
}

func (c *controller) setNotice(msg string) {
	c.notice = msg
	c.noticeUntil = time.Now().Add(noticeDuration)
}

// currentNotice returns the inline message, if one is still fresh.
func (c *controller) currentNotice(now time.Time) string {
	if now.After(c.noticeUntil) {
		return ""
	}
	return c.notice
}
