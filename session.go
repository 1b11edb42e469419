package telnetsrv

import (
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/stlalpha/telnetsrv/internal/cooker"
	"github.com/stlalpha/telnetsrv/internal/lineedit"
	"github.com/stlalpha/telnetsrv/internal/sessiontimer"
	"github.com/stlalpha/telnetsrv/internal/srvlog"
	"github.com/stlalpha/telnetsrv/internal/telnetproto"
	"github.com/stlalpha/telnetsrv/internal/termcap"
)

// negotiationSettleDelay gives the peer's negotiation replies time to
// arrive before the first prompt is written, so an early WILL/WONT isn't
// misread as a response to something the shell already asked for.
const negotiationSettleDelay = 500 * time.Millisecond

// Session is one connection's worth of engine state: the negotiation
// engine, input cooker, line editor, command history, and the shell loop
// that ties them together. Embedders don't construct a Session directly;
// Server creates one per accepted connection and hands it to the shell.
type Session struct {
	conn net.Conn
	id   uuid.UUID
	cfg  *Config

	engine *telnetproto.Engine
	caps   atomic.Pointer[termcap.Capabilities]

	out    *outputWriter
	tokens chan cooker.Token
	hist   *lineedit.History
	editor *lineedit.Editor
	timers *sessiontimer.Set

	username string
	runShell atomic.Bool

	currentPrompt atomic.Pointer[string]
}

func newSession(conn net.Conn, cfg *Config) *Session {
	s := &Session{
		conn:   conn,
		id:     uuid.New(),
		cfg:    cfg,
		out:    &outputWriter{conn: conn},
		tokens: make(chan cooker.Token, 64),
		hist:   lineedit.NewHistory(),
		timers: sessiontimer.NewSet(),
	}
	s.runShell.Store(true)

	def := termcap.Default()
	s.caps.Store(&def)

	s.engine = telnetproto.New(s.out, s.onTermType)
	s.editor = lineedit.New(s.tokens, s.out, s.capsFunc, s.hist, s.engine.EchoEnabled)
	return s
}

func (s *Session) onTermType(raw []byte) {
	caps, err := termcap.Lookup(raw)
	if err != nil {
		srvlog.Debug("session %s: %v", s.id, err)
		return
	}
	s.caps.Store(&caps)
}

func (s *Session) capsFunc() termcap.Capabilities {
	return *s.caps.Load()
}

// ID returns the session's unique identifier, suitable for correlating
// log lines or connection-count bookkeeping.
func (s *Session) ID() uuid.UUID { return s.id }

// Username returns the name established during authentication, or "" if
// no auth validator is configured.
func (s *Session) Username() string { return s.username }

// TERM returns the negotiated terminal type name ("ansi" until a TTYPE
// exchange completes).
func (s *Session) TERM() string { return s.capsFunc().Name }

// History returns a snapshot of the session's command history.
func (s *Session) History() []string { return s.hist.Lines() }

// RedactLastHistory overwrites the most recently recorded history entry.
// A handler that reads a sensitive value with echo on (so the prompt
// looks normal) uses this to keep the raw value out of HISTORY output.
func (s *Session) RedactLastHistory(replacement string) { s.hist.RedactLast(replacement) }

// Timers returns the session's set of outstanding scheduled callbacks.
func (s *Session) Timers() *sessiontimer.Set { return s.timers }

// App returns the embedder-supplied collaborator from Config.App, e.g. a
// connection counter or shared service registry.
func (s *Session) App() any { return s.cfg.App }

// Stop clears the run-shell flag; the shell loop exits after the command
// currently being handled returns.
func (s *Session) Stop() { s.runShell.Store(false) }

// ScheduleMessage arranges for msg to be delivered via WriteMessage after
// d, tracked so session teardown cancels it if it hasn't fired yet.
func (s *Session) ScheduleMessage(d time.Duration, msg string) *sessiontimer.Timer {
	return s.timers.After(d, func() {
		_ = s.WriteMessage(msg)
	})
}

// WriteResponse writes text verbatim (cooked: 0xFF doubled, "\n" rewritten
// to "\r\n").
func (s *Session) WriteResponse(text string) error {
	return s.out.Write([]byte(text))
}

// WriteLine writes text followed by a newline.
func (s *Session) WriteLine(text string) error {
	return s.out.Write([]byte(text + "\n"))
}

// WriteError reports a handler error to the client. The default renders
// "Error: <message>\n"; an embedder can override the formatting (e.g. to
// wrap it in ANSI color) via Config.WriteError.
func (s *Session) WriteError(err error) error {
	if s.cfg.WriteError != nil {
		return s.cfg.WriteError(s, err)
	}
	return s.WriteLine(fmt.Sprintf("Error: %v", err))
}

// WriteMessage delivers an asynchronous, out-of-band message: a newline,
// the message, another newline, then a repaint of whatever prompt and
// partial input line is currently on screen. Safe to call from any
// goroutine, including a scheduled timer's callback, while a ReadLine is
// in progress on the session's own goroutine.
func (s *Session) WriteMessage(msg string) error {
	prompt := ""
	if p := s.currentPrompt.Load(); p != nil {
		prompt = *p
	}
	line := s.editor.CurrentLine()
	return s.out.WriteSequence([]byte("\n"+msg+"\n"), []byte(prompt), []byte(line))
}

// ReadLine reads one line of input from the client, as a handler would:
// echo is explicit (true to show typed characters, false to mask them),
// and useHistory controls whether a non-empty result is appended to
// history.
func (s *Session) ReadLine(prompt string, echo bool, useHistory bool) (string, error) {
	policy := lineedit.EchoOff
	if echo {
		policy = lineedit.EchoOn
	}
	return s.readLine(prompt, policy, useHistory)
}

func (s *Session) readLine(prompt string, policy lineedit.Echo, useHistory bool) (string, error) {
	s.currentPrompt.Store(&prompt)
	if err := s.out.Write([]byte(prompt)); err != nil {
		return "", err
	}
	return s.editor.ReadLine(policy, useHistory)
}

// run drives the session end to end: negotiation, optional
// authentication, the welcome banner and session_start hook, the command
// loop, and teardown. It returns once the connection is done, one way or
// another.
func (s *Session) run() {
	defer s.finish()

	coo := cooker.New(s.conn, s.engine, s.capsFunc, s.tokens)
	go func() {
		err := coo.Run()
		srvlog.Debug("session %s: input cooker stopped: %v", s.id, err)
		close(s.tokens)
	}()

	if err := s.engine.SendInitialNegotiation(); err != nil {
		srvlog.Debug("session %s: initial negotiation failed: %v", s.id, err)
		return
	}
	time.Sleep(negotiationSettleDelay)

	if s.cfg.Auth != nil {
		ok, err := s.authenticate()
		if err != nil {
			srvlog.Debug("session %s: authentication error: %v", s.id, err)
			return
		}
		if !ok {
			return
		}
	}

	if s.engine.EchoEnabled() {
		if err := s.WriteLine(s.cfg.Welcome); err != nil {
			return
		}
	}
	if s.cfg.SessionStart != nil {
		s.cfg.SessionStart(s)
	}

	for s.runShell.Load() {
		raw, err := s.readLine(s.cfg.Prompt, lineedit.EchoSession, true)
		if err != nil {
			return
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := tokenizeQuoted(line)
		if len(fields) == 0 {
			continue
		}
		s.dispatch(strings.ToUpper(fields[0]), fields[1:])
	}
}

// authenticate runs the optional username/password challenge. It returns
// ok=false (with err=nil) when the validator rejects the credentials,
// matching the spec's "close the session silently" on auth failure.
func (s *Session) authenticate() (bool, error) {
	var username, password string

	if s.cfg.RequireUsername {
		u, err := s.readLine("Username: ", lineedit.EchoSession, true)
		if err != nil {
			return false, err
		}
		username = strings.TrimSpace(u)
	}
	if s.cfg.RequirePassword {
		p, err := s.readLine("Password: ", lineedit.EchoOff, false)
		if err != nil {
			return false, err
		}
		password = p
		if s.engine.EchoEnabled() {
			if err := s.out.Write([]byte("\n")); err != nil {
				return false, err
			}
		}
	}

	ok, err := s.cfg.Auth(username, password)
	if err != nil || !ok {
		return false, err
	}
	s.username = username
	return true, nil
}

func (s *Session) finish() {
	s.timers.CancelAll()
	if s.cfg.SessionEnd != nil {
		s.cfg.SessionEnd(s)
	}
	_ = s.conn.Close()
}
