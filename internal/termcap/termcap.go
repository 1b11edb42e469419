// Package termcap resolves a terminal type name (as reported by TELNET
// TTYPE negotiation) to the small set of capability strings the line
// editor needs: clear-to-end-of-line, delete-char, insert-char,
// cursor-back-1, cursor-forward-1, and the escape sequences for the
// cursor/delete keys.
//
// This is not a terminfo binding. The engine's non-goals explicitly
// exclude full terminfo emulation; a static table covering "ansi",
// "vt100" and "xterm" (by far the three most common TELNET client
// identifications) is sufficient, and keeps the module free of cgo.
package termcap

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/stlalpha/telnetsrv/internal/keycode"
)

// OutputCodes are the output-control byte strings the line editor emits
// to move the cursor and edit the visible line in place.
type OutputCodes struct {
	DEOL     []byte // clear to end of line (el)
	DEL      []byte // delete character under cursor, close up (dch1)
	INS      []byte // open a gap for an inserted character (ich1)
	CSRLEFT  []byte // move cursor left one column (cub1)
	CSRRIGHT []byte // move cursor right one column (cuf1)
}

// Capabilities bundles the resolved name, its output codes, and the
// inverse escape-sequence table used by the input cooker's KEYSEQ state.
type Capabilities struct {
	Name   string
	Codes  OutputCodes
	EscSeq map[string]keycode.Code
}

var ansiLike = Capabilities{
	Codes: OutputCodes{
		DEOL:     []byte("\x1b[K"),
		DEL:      []byte("\x1b[P"),
		INS:      []byte("\x1b[@"),
		CSRLEFT:  []byte("\b"),
		CSRRIGHT: []byte("\x1b[C"),
	},
	EscSeq: map[string]keycode.Code{
		"\x1b[A":  keycode.Up,
		"\x1b[B":  keycode.Down,
		"\x1b[C":  keycode.Right,
		"\x1b[D":  keycode.Left,
		"\x1b[3~": keycode.Delete,
		"\x7f":    keycode.Backspace,
	},
}

// table maps a lower-cased terminal type name to its capability set.
// vt100 and xterm both speak the same cursor-key CSI dialect as ansi for
// the handful of capabilities this engine cares about; real terminfo
// differs only in corners (application cursor-key mode, etc.) this
// engine never drives.
var table = map[string]Capabilities{
	"ansi":  ansiLike,
	"vt100": ansiLike,
	"xterm": ansiLike,
}

// Lookup resolves raw bytes from a TTYPE IS subnegotiation (Latin-1
// octets per the wire contract) to a capability set. The name is
// lower-cased and trimmed before matching. An unknown terminal type is
// an error; the caller is expected to keep whatever bindings it already
// has (see ERROR HANDLING: "Unknown termtype... keep previous bindings").
func Lookup(raw []byte) (Capabilities, error) {
	name, err := charmap.ISO8859_1.NewDecoder().String(string(raw))
	if err != nil {
		name = string(raw)
	}
	name = strings.ToLower(strings.TrimSpace(name))

	caps, ok := table[name]
	if !ok {
		return Capabilities{}, fmt.Errorf("termcap: unknown terminal type %q", name)
	}
	caps.Name = name
	return caps, nil
}

// Default returns the capability set for the engine's default terminal
// type, "ansi". Sessions start bound to this before any TTYPE exchange
// completes.
func Default() Capabilities {
	caps := ansiLike
	caps.Name = "ansi"
	return caps
}
