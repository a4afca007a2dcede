package ui

type keyKind int

const (
	keyChar keyKind = iota
	keyLeft
	keyRight
	keyUp
	keyDown
	keyEnter
	keyEscape
	keyBackspace
	keyCtrlC
)

type keyEvent struct {
	kind keyKind
	ch   byte // valid for keyChar
}

// decodeKeys turns a raw-mode read into key events. Arrow keys arrive as
// CSI sequences (ESC [ A..D); a lone ESC is the escape key.
func decodeKeys(buf []byte) []keyEvent {
	var events []keyEvent
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		switch {
		case b == 0x1b:
			if i+2 < len(buf) && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'A':
					events = append(events, keyEvent{kind: keyUp})
				case 'B':
					events = append(events, keyEvent{kind: keyDown})
				case 'C':
					events = append(events, keyEvent{kind: keyRight})
				case 'D':
					events = append(events, keyEvent{kind: keyLeft})
				}
				i += 2
				continue
			}
			events = append(events, keyEvent{kind: keyEscape})
		case b == 0x03:
			events = append(events, keyEvent{kind: keyCtrlC})
		case b == '\r' || b == '\n':
			events = append(events, keyEvent{kind: keyEnter})
		case b == 0x7f || b == 0x08:
			events = append(events, keyEvent{kind: keyBackspace})
		case b >= 0x20 && b < 0x7f:
			events = append(events, keyEvent{kind: keyChar, ch: b})
		}
	}
	return events
}
