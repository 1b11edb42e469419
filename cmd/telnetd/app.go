package main

import (
	"sync"

	"github.com/stlalpha/telnetsrv"
	"github.com/stlalpha/telnetsrv/internal/srvlog"
)

// app is the embedder-owned collaborator wired in as Config.App: state
// the engine itself has no opinion on, but that demo commands (INFO) and
// the session lifecycle hooks need access to.
type app struct {
	mu     sync.Mutex
	active int
	total  int
}

func newApp() *app {
	return &app{}
}

func (a *app) onSessionStart(s *telnetsrv.Session) {
	a.mu.Lock()
	a.active++
	a.total++
	a.mu.Unlock()
	srvlog.Debug("telnetd: session %s started (active=%d)", s.ID(), a.activeCount())
}

func (a *app) onSessionEnd(s *telnetsrv.Session) {
	a.mu.Lock()
	a.active--
	a.mu.Unlock()
	srvlog.Debug("telnetd: session %s ended (active=%d)", s.ID(), a.activeCount())
}

func (a *app) activeCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *app) totalCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// appFromSession recovers the *app a handler was wired with. Demo
// commands call this instead of threading it through every CommandFunc
// signature.
func appFromSession(s *telnetsrv.Session) *app {
	return s.App().(*app)
}
