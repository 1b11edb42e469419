// Package sessiontimer schedules one-shot, cancellable delayed callbacks
// for a session's asynchronous writemessage support (spec: TIMER/TIMEIT
// style handlers that fire a message after a delay). Each session owns a
// Set so that session teardown can cancel every outstanding timer in one
// call instead of leaking goroutines past disconnect.
package sessiontimer

import (
	"sync"
	"time"
)

// Timer is a single scheduled, cancellable callback.
type Timer struct {
	t *time.Timer
}

// Cancel prevents the callback from firing if it hasn't already.
func (tm *Timer) Cancel() {
	tm.t.Stop()
}

// Set tracks every timer scheduled for a session so they can all be
// cancelled together, e.g. on disconnect.
type Set struct {
	mu     sync.Mutex
	timers map[*Timer]struct{}
}

// NewSet returns an empty timer set.
func NewSet() *Set {
	return &Set{timers: make(map[*Timer]struct{})}
}

// After schedules fn to run after d, tracked in the set. fn runs on its
// own goroutine (time.AfterFunc's usual guarantee); callers that touch
// shared session state from fn must synchronize the same way any other
// asynchronous writer does.
func (s *Set) After(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, tm)
		s.mu.Unlock()
		fn()
	})

	s.mu.Lock()
	s.timers[tm] = struct{}{}
	s.mu.Unlock()
	return tm
}

// CancelAll stops every timer still outstanding in the set. Safe to call
// more than once.
func (s *Set) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tm := range s.timers {
		tm.t.Stop()
	}
	s.timers = make(map[*Timer]struct{})
}
