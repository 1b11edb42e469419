// Package srvconfig loads the JSON configuration an embedder ships
// alongside a telnetsrv listener (listen address, banner text, prompt
// string, debug toggle) and, optionally, watches it for edits so a long
// running process can pick up changes without a restart.
package srvconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stlalpha/telnetsrv/internal/srvlog"
)

// Config is the on-disk shape of a telnetsrv listener's configuration.
type Config struct {
	Addr         string `json:"addr"`
	WelcomeText  string `json:"welcome_text"`
	PromptText   string `json:"prompt_text"`
	AuthRequired bool   `json:"auth_required"`
	Debug        bool   `json:"debug"`
}

// Load reads and parses the JSON config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("srvconfig: reading %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("srvconfig: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// Watcher reloads a Config from disk whenever its file changes and hands
// the new value to OnReload. Writes land as multiple filesystem events
// in quick succession (editors often write-then-rename); reloads are
// debounced so OnReload fires once per edit rather than once per event.
type Watcher struct {
	path      string
	debounce  time.Duration
	OnReload  func(*Config)
	OnError   func(error)
	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
}

// NewWatcher creates a Watcher for path, debouncing reloads by debounce
// (the teacher's config watcher uses 500ms; callers with no strong
// opinion should do the same).
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("srvconfig: creating watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("srvconfig: watching %s: %w", path, err)
	}
	return &Watcher{path: path, debounce: debounce, fsWatcher: fw}, nil
}

// Run processes filesystem events until stopped via Close. Intended to
// be run on its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.OnError != nil {
				w.OnError(fmt.Errorf("srvconfig: watch error: %w", err))
			}
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		srvlog.Error("srvconfig: reload of %s failed: %v", w.path, err)
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	srvlog.Debug("srvconfig: reloaded %s", w.path)
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}

// Close stops watching and releases the underlying inotify/kqueue
// handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
