package lineedit

import (
	"bytes"
	"testing"

	"github.com/stlalpha/telnetsrv/internal/cooker"
	"github.com/stlalpha/telnetsrv/internal/keycode"
	"github.com/stlalpha/telnetsrv/internal/termcap"
)

type captureWriter struct {
	buf bytes.Buffer
}

func (w *captureWriter) Write(p []byte) error {
	w.buf.Write(p)
	return nil
}

func byteTokens(s string) []cooker.Token {
	toks := make([]cooker.Token, len(s))
	for i := 0; i < len(s); i++ {
		toks[i] = cooker.Token(s[i])
	}
	return toks
}

func keyTok(c keycode.Code) cooker.Token { return cooker.Token(c) }

func feed(tokens chan cooker.Token, toks ...cooker.Token) {
	go func() {
		for _, tok := range toks {
			tokens <- tok
		}
	}()
}

func newEditor(echoOn bool) (*Editor, chan cooker.Token, *captureWriter, *History) {
	tokens := make(chan cooker.Token, 64)
	w := &captureWriter{}
	hist := NewHistory()
	ed := New(tokens, w, func() termcap.Capabilities { return termcap.Default() }, hist, func() bool { return echoOn })
	return ed, tokens, w, hist
}

func TestReadLineSimple(t *testing.T) {
	ed, tokens, _, _ := newEditor(true)
	feed(tokens, append(byteTokens("hello"), cooker.Token('\n'))...)

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Fatalf("line = %q, want %q", line, "hello")
	}
}

func TestReadLineAppendsHistoryWhenEchoing(t *testing.T) {
	ed, tokens, _, hist := newEditor(true)
	feed(tokens, append(byteTokens("one"), cooker.Token('\n'))...)
	if _, err := ed.ReadLine(EchoSession, true); err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if hist.Len() != 1 || hist.At(0) != "one" {
		t.Fatalf("history = %v, want [one]", hist.Lines())
	}
}

func TestReadLineMaskedDoesNotAppendHistory(t *testing.T) {
	ed, tokens, _, hist := newEditor(true)
	feed(tokens, append(byteTokens("secret"), cooker.Token('\n'))...)
	line, err := ed.ReadLine(EchoOff, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "secret" {
		t.Fatalf("line = %q, want %q", line, "secret")
	}
	if hist.Len() != 0 {
		t.Fatalf("history = %v, want empty", hist.Lines())
	}
}

func TestBackspaceEditsBuffer(t *testing.T) {
	ed, tokens, _, _ := newEditor(true)
	feed(tokens, append(byteTokens("helpo"), cooker.Token(0x08), cooker.Token(0x08), cooker.Token('l'), cooker.Token('o'), cooker.Token('\n'))...)

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Fatalf("line = %q, want %q", line, "hello")
	}
}

func TestCursorMotionInsertsMidline(t *testing.T) {
	ed, tokens, _, _ := newEditor(true)
	toks := append(byteTokens("helo"), keyTok(keycode.Left), keyTok(keycode.Left), cooker.Token('l'), cooker.Token('\n'))
	feed(tokens, toks...)

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Fatalf("line = %q, want %q", line, "hello")
	}
}

func TestCtrlCAbortsWithoutHistory(t *testing.T) {
	ed, tokens, _, hist := newEditor(true)
	feed(tokens, append(byteTokens("junk"), cooker.Token(0x03))...)

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "" {
		t.Fatalf("line = %q, want empty", line)
	}
	if hist.Len() != 0 {
		t.Fatalf("history should stay empty after Ctrl-C, got %v", hist.Lines())
	}
}

func TestCtrlDOnEmptyBufferReturnsQuit(t *testing.T) {
	ed, tokens, _, _ := newEditor(true)
	feed(tokens, cooker.Token(0x04))

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "QUIT" {
		t.Fatalf("line = %q, want %q", line, "QUIT")
	}
}

func TestCtrlDOnNonEmptyBufferAborts(t *testing.T) {
	ed, tokens, _, _ := newEditor(true)
	feed(tokens, append(byteTokens("abc"), cooker.Token(0x04))...)

	line, err := ed.ReadLine(EchoSession, true)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "" {
		t.Fatalf("line = %q, want empty", line)
	}
}

func TestHistoryNavigation(t *testing.T) {
	ed, tokens, _, hist := newEditor(true)
	hist.Append("first")
	hist.Append("second")

	feed(tokens, keyTok(keycode.Up), keyTok(keycode.Up), cooker.Token('\n'))
	line, err := ed.ReadLine(EchoSession, false)
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "first" {
		t.Fatalf("line = %q, want %q", line, "first")
	}
}

func TestSilentWhenEchoOff(t *testing.T) {
	ed, tokens, w, _ := newEditor(true)
	feed(tokens, append(byteTokens("quiet"), cooker.Token('\n'))...)

	if _, err := ed.ReadLine(EchoOff, false); err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if w.buf.Len() != 0 {
		t.Fatalf("expected no output while echo is off, got %q", w.buf.String())
	}
}
