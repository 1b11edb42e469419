package telnetproto

import (
	"bytes"
	"testing"
)

type recordingWriter struct {
	buf bytes.Buffer
}

func (w *recordingWriter) WriteRaw(p []byte) error {
	w.buf.Write(p)
	return nil
}

func TestSendInitialNegotiationOrder(t *testing.T) {
	w := &recordingWriter{}
	e := New(w, nil)

	if err := e.SendInitialNegotiation(); err != nil {
		t.Fatalf("SendInitialNegotiation: %v", err)
	}

	want := []byte{
		byte(IAC), byte(WILL), byte(OptECHO),
		byte(IAC), byte(WILL), byte(OptSGA),
		byte(IAC), byte(WONT), byte(OptNEWENVIRON),
		byte(IAC), byte(DONT), byte(OptECHO),
		byte(IAC), byte(DO), byte(OptSGA),
		byte(IAC), byte(DONT), byte(OptNAWS),
		byte(IAC), byte(DO), byte(OptTTYPE),
		byte(IAC), byte(DONT), byte(OptLINEMODE),
		byte(IAC), byte(DO), byte(OptNEWENVIRON),
	}
	if !bytes.Equal(w.buf.Bytes(), want) {
		t.Fatalf("negotiation bytes = %v, want %v", w.buf.Bytes(), want)
	}
}

func TestAntiLoopSuppressesRepeatedReply(t *testing.T) {
	w := &recordingWriter{}
	e := New(w, nil)

	if err := e.HandleDo(OptSGA); err != nil {
		t.Fatalf("HandleDo: %v", err)
	}
	first := w.buf.Len()
	if first == 0 {
		t.Fatal("expected a reply to the first DO SGA")
	}

	if err := e.HandleDo(OptSGA); err != nil {
		t.Fatalf("HandleDo (repeat): %v", err)
	}
	if w.buf.Len() != first {
		t.Fatalf("expected no additional bytes on repeated DO SGA, got %d more", w.buf.Len()-first)
	}
}

func TestHandleWillTTYPERequestsTermType(t *testing.T) {
	w := &recordingWriter{}
	e := New(w, nil)

	if err := e.HandleWill(OptTTYPE); err != nil {
		t.Fatalf("HandleWill: %v", err)
	}

	want := []byte{
		byte(IAC), byte(DO), byte(OptTTYPE),
		byte(IAC), byte(SB), byte(OptTTYPE), ttypeSEND, byte(IAC), byte(SE),
	}
	if !bytes.Equal(w.buf.Bytes(), want) {
		t.Fatalf("bytes = %v, want %v", w.buf.Bytes(), want)
	}
}

func TestSubnegotiationDeliversTermType(t *testing.T) {
	var got []byte
	w := &recordingWriter{}
	e := New(w, func(name []byte) { got = name })

	e.BeginSubneg()
	for _, b := range append([]byte{byte(OptTTYPE), ttypeIS}, []byte("xterm")...) {
		e.AppendSubneg(b)
	}
	e.EndSubneg()

	if string(got) != "xterm" {
		t.Fatalf("onTermType got %q, want %q", got, "xterm")
	}
	if e.InSubneg() {
		t.Fatal("InSubneg should be false after EndSubneg")
	}
}

func TestEchoEnabledTracksDoEcho(t *testing.T) {
	w := &recordingWriter{}
	e := New(w, nil)
	if !e.EchoEnabled() {
		t.Fatal("echo should start enabled")
	}
	if err := e.HandleDont(OptECHO); err != nil {
		t.Fatalf("HandleDont: %v", err)
	}
	if e.EchoEnabled() {
		t.Fatal("echo should be disabled after DONT ECHO")
	}
	if err := e.HandleDo(OptECHO); err != nil {
		t.Fatalf("HandleDo: %v", err)
	}
	if !e.EchoEnabled() {
		t.Fatal("echo should be re-enabled after DO ECHO")
	}
}
