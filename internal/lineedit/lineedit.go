// Package lineedit implements the interactive line-editing loop: it pulls
// cooked tokens from the input cooker, maintains an edit buffer and
// cursor, services cursor motion and history navigation, and returns a
// completed line to the shell on Enter, Ctrl-C, or Ctrl-D.
package lineedit

import (
	"io"
	"sync/atomic"

	"github.com/stlalpha/telnetsrv/internal/cooker"
	"github.com/stlalpha/telnetsrv/internal/keycode"
	"github.com/stlalpha/telnetsrv/internal/termcap"
)

// Writer is the text-cooking output path the editor echoes through: it
// doubles literal 0xFF and rewrites "\n" to "\r\n", and is serialized
// against every other writer of the session (handler output, async
// writemessage, negotiation replies on their own raw path) so editing and
// prompt output never interleave mid-sequence.
type Writer interface {
	Write(p []byte) error
}

// CapsFunc returns the session's current terminal capabilities. The
// editor calls it on every redraw so a mid-session TTYPE renegotiation
// takes effect without restarting the read loop.
type CapsFunc func() termcap.Capabilities

// Echo controls whether a ReadLine call renders what the user types.
type Echo int

const (
	// EchoSession follows the session's negotiated ECHO state.
	EchoSession Echo = iota
	// EchoOn always echoes, regardless of negotiated ECHO state.
	EchoOn
	// EchoOff never echoes; used for masked (password) entry.
	EchoOff
)

// Editor is the per-session line editor. It is driven entirely by
// ReadLine; callers (the shell) invoke it once per prompt.
type Editor struct {
	tokens      <-chan cooker.Token
	w           Writer
	caps        CapsFunc
	hist        *History
	sessionEcho func() bool

	lastLine atomic.Pointer[string]
}

// CurrentLine returns a snapshot of the buffer for whatever ReadLine call
// is currently in progress, or "" when no ReadLine is active. An
// asynchronous writer uses this to repaint the line the user was midway
// through typing after an out-of-band message.
func (e *Editor) CurrentLine() string {
	if p := e.lastLine.Load(); p != nil {
		return *p
	}
	return ""
}

// New creates an Editor pulling from tokens, echoing through w, resolving
// capabilities via caps, and navigating/appending to hist. sessionEcho
// reports the session's current negotiated ECHO state, consulted when a
// ReadLine call passes EchoSession.
func New(tokens <-chan cooker.Token, w Writer, caps CapsFunc, hist *History, sessionEcho func() bool) *Editor {
	return &Editor{
		tokens:      tokens,
		w:           w,
		caps:        caps,
		hist:        hist,
		sessionEcho: sessionEcho,
	}
}

// ReadLine reads one line of input. echo selects the visibility policy;
// useHistory controls whether a non-empty completed line is appended to
// history (password prompts pass false). The returned error is non-nil
// only when the cooked token stream has ended (the connection is gone);
// io.EOF in that case.
//
// Ctrl-C returns ("", nil) without touching history. Ctrl-D on an empty
// buffer returns ("QUIT", nil) so the caller can dispatch it exactly like
// a typed QUIT command; on a non-empty buffer it aborts and returns
// ("", nil) like Ctrl-C.
func (e *Editor) ReadLine(echo Echo, useHistory bool) (string, error) {
	echoing := e.resolveEcho(echo)
	line := make([]byte, 0, 32)
	ins := 0
	histIdx := e.hist.Len()
	empty := ""
	e.lastLine.Store(&empty)
	defer e.lastLine.Store(&empty)

	for {
		snap := string(line)
		e.lastLine.Store(&snap)

		tok, ok := <-e.tokens
		if !ok {
			return "", io.EOF
		}

		if !tok.IsKey() {
			switch b := tok.Byte(); {
			case b == 0:
				continue
			case b == 0x03:
				if echoing {
					e.write([]byte("^C ABORT\n"))
				}
				return "", nil
			case b == 0x04:
				if len(line) > 0 {
					if echoing {
						e.write([]byte("^D ABORT (QUIT)\n"))
					}
					return "", nil
				}
				if echoing {
					e.write([]byte("^D QUIT\n"))
				}
				return "QUIT", nil
			case b == '\n':
				if echoing {
					e.write([]byte{'\n'})
				}
				result := string(line)
				if echoing && useHistory && result != "" {
					e.hist.Append(result)
				}
				return result, nil
			case b == 0x08 || b == 0x7f:
				if ins > 0 {
					if echoing {
						e.write(e.caps().Codes.CSRLEFT)
						e.write(e.caps().Codes.DEL)
					}
					line = append(line[:ins-1], line[ins:]...)
					ins--
				}
			default:
				rendered := renderByte(b)
				grown := make([]byte, 0, len(line)+1)
				grown = append(grown, line[:ins]...)
				grown = append(grown, b)
				grown = append(grown, line[ins:]...)
				line = grown
				ins += len(rendered)
				if echoing {
					e.write(rendered)
				}
			}
			continue
		}

		switch tok.Key() {
		case keycode.Left:
			if ins > 0 {
				ins--
				if echoing {
					e.write(e.caps().Codes.CSRLEFT)
				}
			} else if echoing {
				e.write([]byte{0x07})
			}
		case keycode.Right:
			if ins < len(line) {
				ins++
				if echoing {
					e.write(e.caps().Codes.CSRRIGHT)
				}
			} else if echoing {
				e.write([]byte{0x07})
			}
		case keycode.Up:
			if histIdx > 0 {
				histIdx--
				line, ins = e.redraw(ins, []byte(e.hist.At(histIdx)), echoing)
			}
		case keycode.Down:
			if histIdx < e.hist.Len() {
				histIdx++
				var next string
				if histIdx < e.hist.Len() {
					next = e.hist.At(histIdx)
				}
				line, ins = e.redraw(ins, []byte(next), echoing)
			}
		case keycode.Backspace:
			if ins > 0 {
				if echoing {
					e.write(e.caps().Codes.CSRLEFT)
					e.write(e.caps().Codes.DEL)
				}
				line = append(line[:ins-1], line[ins:]...)
				ins--
			}
		case keycode.Delete:
			if ins < len(line) {
				if echoing {
					e.write(e.caps().Codes.DEL)
				}
				line = append(line[:ins], line[ins+1:]...)
			}
		}
	}
}

// redraw repaints the visible line for history navigation: it backs the
// cursor up to the start of the old line, clears to end of line, writes
// the new contents, and reports the new buffer and cursor position (the
// cursor always lands at end-of-line after a history swap).
func (e *Editor) redraw(ins int, newLine []byte, echoing bool) ([]byte, int) {
	if echoing {
		left := e.caps().Codes.CSRLEFT
		for i := 0; i < ins; i++ {
			e.write(left)
		}
		e.write(e.caps().Codes.DEOL)
		e.write(newLine)
	}
	return newLine, len(newLine)
}

func (e *Editor) resolveEcho(echo Echo) bool {
	switch echo {
	case EchoOn:
		return true
	case EchoOff:
		return false
	default:
		return e.sessionEcho()
	}
}

func (e *Editor) write(p []byte) {
	if len(p) == 0 {
		return
	}
	_ = e.w.Write(p)
}

// renderByte returns the visible form of a byte typed into the line: a
// two-byte "^X" caret notation for control characters below 0x20 and for
// DEL, the byte itself otherwise.
func renderByte(b byte) []byte {
	switch {
	case b == 0x7f:
		return []byte{'^', '?'}
	case b < 0x20:
		return []byte{'^', b + 0x40}
	default:
		return []byte{b}
	}
}
