package telnetsrv

import (
	"net"
	"sync"
)

// outputWriter is the session's single outbound byte path: every
// writer (negotiation replies, editor echo, handler output, async
// writemessage) funnels through it, so one lock is enough to guarantee
// the peer never sees interleaved fragments from two writers.
//
// It exposes two shapes of write. WriteRaw sends bytes exactly as given,
// for TELNET command sequences that are already wire-correct. Write cooks
// its argument first: a literal 0xFF is doubled (so it isn't mistaken for
// an IAC byte) and "\n" is rewritten to "\r\n". Both go through the same
// mutex, so ordering between the two paths is preserved even though only
// one of them transforms its input.
type outputWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

// WriteRaw implements telnetproto.Writer.
func (o *outputWriter) WriteRaw(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.conn.Write(p)
	return err
}

// Write implements lineedit.Writer and is also the path handler output
// and writemessage use.
func (o *outputWriter) Write(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.conn.Write(cook(p))
	return err
}

// WriteSequence cooks and writes each part while holding the lock for the
// whole sequence, so nothing else can write in between. writemessage
// needs this: "<MSG>", the prompt, and the in-progress edit buffer must
// land as one uninterrupted run even though the editor may be echoing a
// keystroke concurrently.
func (o *outputWriter) WriteSequence(parts ...[]byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, p := range parts {
		if _, err := o.conn.Write(cook(p)); err != nil {
			return err
		}
	}
	return nil
}

func cook(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		switch b {
		case 0xFF:
			out = append(out, 0xFF, 0xFF)
		case '\n':
			out = append(out, '\r', '\n')
		default:
			out = append(out, b)
		}
	}
	return out
}
