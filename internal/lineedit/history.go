package lineedit

import "sync"

// History is a session's append-only command log, shared between the
// editor (which navigates it with Up/Down and appends completed lines)
// and the shell's HISTORY built-in (which lists it). It is safe for
// concurrent use since a handler may read it from a goroutine other than
// the one driving the editor (e.g. a DEBUG command dumping history).
type History struct {
	mu    sync.Mutex
	lines []string
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Len returns the number of recorded lines.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

// At returns the line at index i (0-based). Callers must keep i within
// [0, Len()); it is only ever called from the editor under that
// discipline.
func (h *History) At(i int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lines[i]
}

// Append records a new line.
func (h *History) Append(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, s)
}

// Lines returns a snapshot of the recorded lines, for the HISTORY
// built-in to render.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

// RedactLast overwrites the most recently recorded line, for commands
// like PASSWD that take a sensitive value on their own command line and
// must not leave the raw value sitting in history.
func (h *History) RedactLast(replacement string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.lines) == 0 {
		return
	}
	h.lines[len(h.lines)-1] = replacement
}
