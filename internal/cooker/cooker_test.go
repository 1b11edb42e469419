package cooker

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stlalpha/telnetsrv/internal/telnetproto"
	"github.com/stlalpha/telnetsrv/internal/termcap"
)

// fakeConn is a net.Conn backed by a fixed byte slice: reads never
// actually block, so the non-blocking peek and the blocking getByte
// behave identically here, which is enough to exercise the cooker's
// state machine deterministically.
type fakeConn struct {
	net.Conn
	data []byte
	pos  int
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, errors.New("fakeConn: no more data")
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }

type discardWriter struct{}

func (discardWriter) WriteRaw(p []byte) error { return nil }

func drain(t *testing.T, conn net.Conn, caps termcap.Capabilities) []Token {
	t.Helper()
	engine := telnetproto.New(discardWriter{}, nil)
	tokens := make(chan Token, 256)
	coo := New(conn, engine, func() termcap.Capabilities { return caps }, tokens)

	coo.Run() // returns once fakeConn runs out of data
	close(tokens)

	var out []Token
	for tok := range tokens {
		out = append(out, tok)
	}
	return out
}

func bytesOf(toks []Token) []byte {
	out := make([]byte, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Byte())
	}
	return out
}

func TestCRLFCollapsing(t *testing.T) {
	conn := &fakeConn{data: []byte("A\r\nB\r\x00C\rD")}
	toks := drain(t, conn, termcap.Default())
	got := bytesOf(toks)
	want := []byte("A\nB\nC\nD")
	if !bytes.Equal(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}

func TestDoubledIACIsLiteral0xFF(t *testing.T) {
	conn := &fakeConn{data: []byte{'X', byte(telnetproto.IAC), byte(telnetproto.IAC), 'Y'}}
	toks := drain(t, conn, termcap.Default())
	got := bytesOf(toks)
	want := []byte{'X', 0xFF, 'Y'}
	if !bytes.Equal(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestKeySeqExactMatchEmitsKeyCode(t *testing.T) {
	conn := &fakeConn{data: []byte("\x1b[A")}
	toks := drain(t, conn, termcap.Default())
	if len(toks) != 1 || !toks[0].IsKey() {
		t.Fatalf("tokens = %v, want exactly one key token", toks)
	}
}

func TestKeySeqMismatchPushesBackAndEmitsLiteral(t *testing.T) {
	// "\x1b[Z" is a prefix of nothing in the ansi table; the leading ESC
	// should come back as a literal byte and the rest ("[Z") should be
	// read normally afterward.
	conn := &fakeConn{data: []byte("\x1b[Z")}
	toks := drain(t, conn, termcap.Default())
	got := bytesOf(toks)
	want := []byte{0x1b, '[', 'Z'}
	if !bytes.Equal(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestNegotiationBytesAreNotEmittedAsData(t *testing.T) {
	conn := &fakeConn{data: []byte{
		'A',
		byte(telnetproto.IAC), byte(telnetproto.DO), byte(telnetproto.OptSGA),
		'B',
	}}
	toks := drain(t, conn, termcap.Default())
	got := bytesOf(toks)
	want := []byte("AB")
	if !bytes.Equal(got, want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
}
