// Package telnetproto implements the TELNET option-negotiation engine:
// it tracks per-option DO/DONT and WILL/WONT state, replies to inbound
// negotiation according to a fixed desire table, and assembles the TTYPE
// subnegotiation payload. It never touches the raw socket directly; all
// outbound bytes go through the Writer it is constructed with, and all
// inbound bytes arrive already framed (cmd, opt pairs, or "begin/end
// subnegotiation") from the input cooker (package cooker), which is the
// only caller of this package at runtime.
package telnetproto

import "fmt"

// Cmd is a single TELNET command byte (RFC 854 / RFC 855).
type Cmd byte

const (
	SE   Cmd = 240 // Subnegotiation End
	NOP  Cmd = 241 // No Operation
	SB   Cmd = 250 // Subnegotiation Begin
	WILL Cmd = 251
	WONT Cmd = 252
	DO   Cmd = 253
	DONT Cmd = 254
	IAC  Cmd = 255 // Interpret As Command
)

// Option is a TELNET option identifier.
type Option byte

const (
	OptECHO       Option = 1
	OptSGA        Option = 3
	OptTTYPE      Option = 24
	OptNAWS       Option = 31
	OptLINEMODE   Option = 34
	OptNEWENVIRON Option = 39
)

const (
	ttypeIS   byte = 0
	ttypeSEND byte = 1
)

// desire is the tri-state an option's last-sent negotiation settles into:
// unsent (never negotiated), yes (DO/WILL last sent), or no (DONT/WONT
// last sent). It is used purely to suppress redundant re-negotiation.
type desire int

const (
	unsent desire = iota
	yes
	no
)

// Writer is the raw outbound byte sink the engine writes IAC sequences
// to. The session wires this to its shared output writer's raw path (no
// 0xFF doubling, no CR/LF rewriting: these bytes already are the wire
// protocol) so that engine output is serialized against editor echo and
// handler writes through the same lock.
type Writer interface {
	WriteRaw(p []byte) error
}

// doAckTable answers inbound DO/DONT x with WILL/WONT x: "what am I
// willing to do". Options absent from the table get WONT.
var doAckTable = map[Option]Cmd{
	OptECHO:       WILL,
	OptSGA:        WILL,
	OptNEWENVIRON: WONT,
}

// willAckTable answers inbound WILL/WONT x with DO/DONT x: "what do I
// want the peer to do". Options absent from the table get DONT.
var willAckTable = map[Option]Cmd{
	OptECHO:       DONT,
	OptSGA:        DO,
	OptNAWS:       DONT,
	OptTTYPE:      DO,
	OptLINEMODE:   DONT,
	OptNEWENVIRON: DO,
}

// initialDoAck and initialWillAck fix the emission order of the proactive
// negotiation in §4.1: "sends, in order: ...". Map iteration order is
// unspecified in Go, so the startup sequence is driven from these slices
// rather than ranging over the tables above.
var initialDoAck = []Option{OptECHO, OptSGA, OptNEWENVIRON}
var initialWillAck = []Option{OptECHO, OptSGA, OptNAWS, OptTTYPE, OptLINEMODE, OptNEWENVIRON}

// Engine is the per-session option-negotiation state machine.
type Engine struct {
	w Writer

	doSent   map[Option]desire // last DO/DONT we sent, by option
	willSent map[Option]desire // last WILL/WONT we sent, by option

	echoEnabled bool

	inSubneg  bool
	subnegBuf []byte

	// onTermType is invoked with the raw TTYPE IS payload once a
	// subnegotiation completes; the session wires this to a termcap
	// lookup. A nil callback silently drops the terminal type.
	onTermType func(name []byte)
}

// New creates an Engine that writes through w. Local echo starts enabled,
// matching the DOECHO default in the original handler.
func New(w Writer, onTermType func(name []byte)) *Engine {
	return &Engine{
		w:           w,
		doSent:      make(map[Option]desire),
		willSent:    make(map[Option]desire),
		echoEnabled: true,
		onTermType:  onTermType,
	}
}

// EchoEnabled reports whether the session is currently echoing the
// client's input locally, as last set by an inbound DO/DONT ECHO.
func (e *Engine) EchoEnabled() bool { return e.echoEnabled }

// InSubneg reports whether a subnegotiation is currently being
// accumulated; the cooker consults this to route bytes to the subneg
// buffer instead of the cooked queue (invariant iii).
func (e *Engine) InSubneg() bool { return e.inSubneg }

// AppendSubneg appends a byte to the in-flight subnegotiation buffer.
// Only valid to call while InSubneg is true.
func (e *Engine) AppendSubneg(b byte) {
	e.subnegBuf = append(e.subnegBuf, b)
}

// SendInitialNegotiation emits the proactive negotiation described in
// §4.1, in the fixed order the spec requires.
func (e *Engine) SendInitialNegotiation() error {
	for _, opt := range initialDoAck {
		if err := e.sendCommand(doAckTable[opt], opt); err != nil {
			return err
		}
	}
	for _, opt := range initialWillAck {
		if err := e.sendCommand(willAckTable[opt], opt); err != nil {
			return err
		}
	}
	return nil
}

// HandleWill processes an inbound WILL opt.
func (e *Engine) HandleWill(opt Option) error {
	if err := e.replyToWillWont(opt); err != nil {
		return err
	}
	if opt == OptTTYPE {
		return e.requestTermType()
	}
	return nil
}

// HandleWont processes an inbound WONT opt.
func (e *Engine) HandleWont(opt Option) error {
	return e.replyToWillWont(opt)
}

func (e *Engine) replyToWillWont(opt Option) error {
	reply, ok := willAckTable[opt]
	if !ok {
		reply = DONT
	}
	return e.sendCommand(reply, opt)
}

// requestTermType sends IAC SB TTYPE SEND IAC SE to solicit the peer's
// terminal type name.
func (e *Engine) requestTermType() error {
	return e.w.WriteRaw([]byte{
		byte(IAC), byte(SB), byte(OptTTYPE), ttypeSEND, byte(IAC), byte(SE),
	})
}

// HandleDo processes an inbound DO opt.
func (e *Engine) HandleDo(opt Option) error {
	return e.replyToDoDont(opt, true)
}

// HandleDont processes an inbound DONT opt.
func (e *Engine) HandleDont(opt Option) error {
	return e.replyToDoDont(opt, false)
}

func (e *Engine) replyToDoDont(opt Option, wasDo bool) error {
	reply, ok := doAckTable[opt]
	if !ok {
		reply = WONT
	}
	if opt == OptECHO {
		e.echoEnabled = wasDo
	}
	return e.sendCommand(reply, opt)
}

// HandleNOP replies to an inbound NOP. Unlike DO/DONT/WILL/WONT, NOP
// carries no anti-loop state: every inbound NOP gets a fresh reply.
func (e *Engine) HandleNOP() error {
	return e.w.WriteRaw([]byte{byte(IAC), byte(NOP)})
}

// BeginSubneg starts accumulating a subnegotiation payload, discarding
// any previously buffered (and presumably abandoned) data. Per RFC 855,
// IAC SB carries no option byte of its own: the option is the first byte
// of the data that follows, so the cooker calls this on the bare SB
// command and lets ordinary byte routing feed the option and the rest of
// the payload into AppendSubneg.
func (e *Engine) BeginSubneg() {
	e.inSubneg = true
	e.subnegBuf = e.subnegBuf[:0]
}

// EndSubneg closes the current subnegotiation. If it carries a TTYPE IS
// payload, the terminal-type callback fires with the name bytes that
// follow. The buffer is cleared either way.
func (e *Engine) EndSubneg() {
	e.inSubneg = false
	data := e.subnegBuf
	e.subnegBuf = nil

	if len(data) >= 2 && Option(data[0]) == OptTTYPE && data[1] == ttypeIS && e.onTermType != nil {
		e.onTermType(data[2:])
	}
}

// sendCommand writes IAC cmd opt, suppressing the send if it would
// repeat the last desire sent for that option in the same command
// class (the anti-loop rule in §4.1).
func (e *Engine) sendCommand(cmd Cmd, opt Option) error {
	switch cmd {
	case DO, DONT:
		want := yes
		if cmd == DONT {
			want = no
		}
		if e.doSent[opt] == want {
			return nil
		}
		e.doSent[opt] = want
	case WILL, WONT:
		want := yes
		if cmd == WONT {
			want = no
		}
		if e.willSent[opt] == want {
			return nil
		}
		e.willSent[opt] = want
	default:
		return fmt.Errorf("telnetproto: sendCommand: unsupported command %d", cmd)
	}
	return e.w.WriteRaw([]byte{byte(IAC), byte(cmd), byte(opt)})
}
