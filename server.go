package telnetsrv

import (
	"fmt"
	"net"
	"sync"

	"github.com/stlalpha/telnetsrv/internal/srvlog"
)

// AuthValidator checks a username/password pair, e.g. authutil's
// bcrypt-backed BcryptValidator.Validate.
type AuthValidator func(username, password string) (bool, error)

// Config controls a Server's listener and every session it spawns.
// Registry, Auth, Welcome and Prompt are read once per session at
// connect time; mutating them after ListenAndServe starts accepting is
// not synchronized and should only be done before the first Accept.
type Config struct {
	// Addr is the TCP address to listen on, e.g. ":2323".
	Addr string

	// Registry holds the commands sessions dispatch to, beyond the
	// always-registered HELP/EXIT/HISTORY built-ins. A nil Registry is
	// replaced with an empty one by NewServer.
	Registry *Registry

	// Auth, if set, gates every session behind a username/password
	// challenge per RequireUsername/RequirePassword before the welcome
	// banner is shown.
	Auth            AuthValidator
	RequireUsername bool
	RequirePassword bool

	// Welcome is written once, after authentication succeeds, if the
	// session's negotiated ECHO state is on.
	Welcome string
	// Prompt is written before every command-loop read.
	Prompt string

	// App is an embedder-owned collaborator made available to handlers
	// via Session.App, e.g. a shared connection counter or service
	// registry. telnetsrv never reads or writes it itself.
	App any

	// SessionStart and SessionEnd are lifecycle hooks invoked once per
	// session, after auth succeeds and during teardown respectively.
	SessionStart func(*Session)
	SessionEnd   func(*Session)

	// WriteError overrides how a handler error is reported to the
	// client; the default writes "Error: <message>\n".
	WriteError func(*Session, error) error
}

// Server accepts TELNET connections and runs a Session for each one.
type Server struct {
	mu       sync.Mutex
	listener net.Listener
	config   Config
}

// NewServer returns a Server for cfg. The built-in HELP/?, EXIT/QUIT/
// BYE/LOGOUT and HISTORY commands are registered into cfg.Registry (a
// fresh one, if cfg.Registry is nil); an embedder registering the same
// name afterward overrides the built-in.
func NewServer(cfg Config) *Server {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Welcome == "" {
		cfg.Welcome = "You have connected to the server."
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}
	registerBuiltins(cfg.Registry)
	return &Server{config: cfg}
}

// ListenAndServe opens the listener and serves connections until Close is
// called or Listen/Accept fails.
func (srv *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", srv.config.Addr)
	if err != nil {
		return fmt.Errorf("telnetsrv: listen on %s: %w", srv.config.Addr, err)
	}

	srv.mu.Lock()
	srv.listener = ln
	srv.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go srv.handleConnection(conn)
	}
}

func (srv *Server) handleConnection(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			srvlog.Error("telnetsrv: recovered panic serving %s: %v", conn.RemoteAddr(), r)
			_ = conn.Close()
		}
	}()

	srv.mu.Lock()
	cfg := srv.config
	srv.mu.Unlock()

	sess := newSession(conn, &cfg)
	srvlog.Debug("telnetsrv: session %s started from %s", sess.id, conn.RemoteAddr())
	sess.run()
	srvlog.Debug("telnetsrv: session %s ended", sess.id)
}

// SetWelcome updates the banner written to sessions that connect after
// this call returns; it does not affect sessions already in progress.
func (srv *Server) SetWelcome(welcome string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.config.Welcome = welcome
}

// SetPrompt updates the command-loop prompt for sessions that connect
// after this call returns.
func (srv *Server) SetPrompt(prompt string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.config.Prompt = prompt
}

// Close stops accepting new connections. It does not affect sessions
// already in progress.
func (srv *Server) Close() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Close()
}
