// Package keycode defines the semantic key codes that the input cooker
// emits alongside raw bytes on the cooked token stream.
//
// A cooked token is either a literal byte (0-255) or one of these codes.
// Codes live above the byte range so the two are trivially distinguishable
// without a separate tag.
package keycode

// Code identifies a semantic key recognized by the input cooker after
// matching an escape sequence against the negotiated terminal's table.
type Code int32

// Base is the first value in the semantic-key-code range; every Code is
// >= Base, and every raw byte token is < Base, so a cooked token can be
// classified by comparison alone.
const Base Code = 256

const (
	Up Code = Base + iota
	Down
	Left
	Right
	Delete
	Backspace
)

// Name returns a short human-readable label for the code.
func (c Code) Name() string {
	switch c {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Delete:
		return "Delete"
	case Backspace:
		return "Backspace"
	default:
		return "Unknown"
	}
}
