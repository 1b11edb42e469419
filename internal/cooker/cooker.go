// Package cooker implements the raw-to-cooked input pipeline: it reads
// bytes off a net.Conn, runs the TELNET IAC state machine (delegating
// negotiation decisions to telnetproto.Engine), collapses CR/LF/NUL line
// endings, and matches key-escape sequences against the session's current
// terminal capabilities, emitting a stream of cooked Tokens.
//
// A Cooker owns exactly one goroutine: Run blocks reading the connection
// until it returns an error (typically io.EOF on disconnect, or the read
// error from the session closing the connection). Nothing about a Cooker is safe
// to use concurrently from a second goroutine.
package cooker

import (
	"net"
	"time"

	"github.com/stlalpha/telnetsrv/internal/keycode"
	"github.com/stlalpha/telnetsrv/internal/telnetproto"
	"github.com/stlalpha/telnetsrv/internal/termcap"
)

// Token is a single item on the cooked stream: either a literal byte in
// [0,255], or a keycode.Code (>= keycode.Base) identifying a semantic key
// recognized from an escape sequence.
type Token int32

// IsKey reports whether t is a semantic key code rather than a literal
// byte.
func (t Token) IsKey() bool { return int32(t) >= int32(keycode.Base) }

// Key returns t as a keycode.Code. Only meaningful when IsKey is true.
func (t Token) Key() keycode.Code { return keycode.Code(t) }

// Byte returns t as a literal byte. Only meaningful when IsKey is false.
func (t Token) Byte() byte { return byte(t) }

// CapsFunc returns the session's currently negotiated terminal
// capabilities. It must be safe to call from the cooker's goroutine while
// the line editor's goroutine also reads it; sessions satisfy this with
// an atomic.Pointer[termcap.Capabilities].
type CapsFunc func() termcap.Capabilities

// Cooker reads a connection and produces cooked Tokens on an output
// channel.
type Cooker struct {
	conn   net.Conn
	engine *telnetproto.Engine
	caps   CapsFunc
	tokens chan<- Token

	raw []byte // pushed-back / already-read bytes not yet consumed
}

// New creates a Cooker reading conn, driving negotiation decisions
// through engine, resolving escape sequences against whatever caps
// currently returns, and publishing cooked tokens to tokens.
func New(conn net.Conn, engine *telnetproto.Engine, caps CapsFunc, tokens chan<- Token) *Cooker {
	return &Cooker{
		conn:   conn,
		engine: engine,
		caps:   caps,
		tokens: tokens,
	}
}

// Run processes bytes from the connection until a read error occurs. It
// closes nothing: the caller owns conn's lifetime and the tokens channel.
func (c *Cooker) Run() error {
	for {
		b, _, err := c.getByte(true)
		if err != nil {
			return err
		}
		if err := c.handleByte(b); err != nil {
			return err
		}
	}
}

func (c *Cooker) handleByte(b byte) error {
	if b == byte(telnetproto.IAC) {
		return c.handleIAC()
	}

	if b == '\r' && !c.engine.InSubneg() {
		return c.handleCR()
	}

	if c.isEscapeLeader(b) {
		return c.handleKeySeq(b)
	}

	c.emit(Token(b))
	return nil
}

// handleCR implements the CR/LF/NUL collapsing rule: a lone CR, CR-LF, and
// CR-NUL all collapse to a single newline token; the byte following the CR
// is consumed only when it is LF or NUL, otherwise it is pushed back.
func (c *Cooker) handleCR() error {
	next, ok, err := c.getByte(false)
	if err != nil {
		return err
	}
	if ok && next != '\n' && next != 0 {
		c.ungetByte(next)
	}
	c.emit(Token('\n'))
	return nil
}

// handleIAC consumes the command byte (and option bytes, where the
// command takes one) following an IAC and routes the result to the
// negotiation engine.
func (c *Cooker) handleIAC() error {
	cmdByte, _, err := c.getByte(true)
	if err != nil {
		return err
	}
	cmd := telnetproto.Cmd(cmdByte)

	switch cmd {
	case telnetproto.DO, telnetproto.DONT, telnetproto.WILL, telnetproto.WONT:
		optByte, _, err := c.getByte(true)
		if err != nil {
			return err
		}
		opt := telnetproto.Option(optByte)
		switch cmd {
		case telnetproto.DO:
			return c.engine.HandleDo(opt)
		case telnetproto.DONT:
			return c.engine.HandleDont(opt)
		case telnetproto.WILL:
			return c.engine.HandleWill(opt)
		default:
			return c.engine.HandleWont(opt)
		}
	case telnetproto.SB:
		c.engine.BeginSubneg()
		return nil
	case telnetproto.SE:
		c.engine.EndSubneg()
		return nil
	case telnetproto.IAC:
		// A doubled IAC is a literal 0xFF data byte.
		c.emit(Token(0xFF))
		return nil
	case telnetproto.NOP:
		return c.engine.HandleNOP()
	default:
		// BRK, IP, AO, AYT, EC, EL, GA and friends carry no payload this
		// engine acts on; acknowledge receipt by doing nothing further.
		return nil
	}
}

// isEscapeLeader reports whether b is the first byte of at least one
// key-escape sequence in the current terminal's table.
func (c *Cooker) isEscapeLeader(b byte) bool {
	for seq := range c.caps().EscSeq {
		if len(seq) > 0 && seq[0] == b {
			return true
		}
	}
	return false
}

// handleKeySeq accumulates bytes starting with leader while the
// accumulated prefix still matches at least one entry in the escape-
// sequence table, emitting the corresponding key code on an exact match.
// If the accumulated bytes stop being a prefix of anything, every byte
// after the first is pushed back and the leader is emitted literally.
func (c *Cooker) handleKeySeq(leader byte) error {
	escSeq := c.caps().EscSeq
	codes := []byte{leader}

	for {
		if key, exact := matchExact(escSeq, codes); exact {
			c.emit(Token(key))
			return nil
		}
		if !matchesSomePrefix(escSeq, codes) {
			break
		}
		b, _, err := c.getByte(true)
		if err != nil {
			return err
		}
		codes = append(codes, b)
	}

	if len(codes) > 1 {
		c.ungetBytes(codes[1:])
	}
	c.emit(Token(codes[0]))
	return nil
}

func matchExact(escSeq map[string]keycode.Code, codes []byte) (keycode.Code, bool) {
	key, ok := escSeq[string(codes)]
	return key, ok
}

func matchesSomePrefix(escSeq map[string]keycode.Code, codes []byte) bool {
	for seq := range escSeq {
		if len(seq) >= len(codes) && seq[:len(codes)] == string(codes) {
			return true
		}
	}
	return false
}

// emit routes a cooked token either into the in-flight subnegotiation
// buffer or onto the cooked token channel, depending on negotiation
// state. Subnegotiation payloads are always plain ASCII in practice
// (TTYPE names), so a key code is never actually produced mid-subneg, but
// the routing is unconditional to match how the engine drives byte
// delivery regardless of what triggered it.
func (c *Cooker) emit(tok Token) {
	if c.engine.InSubneg() {
		c.engine.AppendSubneg(byte(tok))
		return
	}
	c.tokens <- tok
}

// getByte returns the next raw byte, preferring anything already buffered
// from a previous push-back or over-read. When block is false and no byte
// is immediately available, it returns ok=false without error.
func (c *Cooker) getByte(block bool) (b byte, ok bool, err error) {
	if len(c.raw) > 0 {
		b = c.raw[0]
		c.raw = c.raw[1:]
		return b, true, nil
	}

	if !block {
		// A non-blocking peek never fails the cooker outright: whether
		// nothing arrived within the deadline, the peer closed the
		// connection, or some other read error occurred, the caller (the
		// CR/LF collapsing rule) treats all of it the same way as "no byte
		// available". A genuine disconnect still ends the cooker promptly
		// via the next blocking getByte in the main loop.
		if err := c.conn.SetReadDeadline(time.Now()); err != nil {
			return 0, false, nil
		}
		defer c.conn.SetReadDeadline(time.Time{})

		buf := make([]byte, 64)
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.raw = append(c.raw, buf[:n]...)
			b = c.raw[0]
			c.raw = c.raw[1:]
			return b, true, nil
		}
		return 0, false, nil
	}

	for {
		buf := make([]byte, 64)
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.raw = append(c.raw, buf[:n]...)
			b = c.raw[0]
			c.raw = c.raw[1:]
			return b, true, nil
		}
		if err != nil {
			return 0, false, err
		}
	}
}

// ungetByte pushes a single byte back to the front of the raw queue.
func (c *Cooker) ungetByte(b byte) {
	c.raw = append([]byte{b}, c.raw...)
}

// ungetBytes pushes a run of bytes back to the front of the raw queue, in
// the same order they were read.
func (c *Cooker) ungetBytes(bs []byte) {
	buf := make([]byte, 0, len(bs)+len(c.raw))
	buf = append(buf, bs...)
	buf = append(buf, c.raw...)
	c.raw = buf
}
