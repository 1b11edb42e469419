package telnetsrv

import (
	"sort"
	"strings"
	"sync"
)

// Context carries per-invocation state passed to a registered command
// handler.
type Context struct {
	Session *Session
}

// CommandFunc is a registered command's handler body.
type CommandFunc func(ctx *Context, params []string) error

// Command describes one registered command and its HELP metadata.
type Command struct {
	// Names lists every name this command answers to, upper-cased at
	// registration. Names[0] is canonical: the name HELP's overview and
	// per-command help display.
	Names []string
	// Params is a one-line parameter syntax, shown after the name in
	// HELP output. May be empty.
	Params string
	// Short is a one-line summary, shown in HELP's overview.
	Short string
	// Long is shown by "HELP <name>"; may span multiple lines. When it is
	// empty, "HELP <name>" shows Short instead.
	Long string
	// Hidden commands are omitted from HELP's overview but still
	// addressable by exact name.
	Hidden  bool
	Handler CommandFunc
}

func (c *Command) canonical() string {
	if len(c.Names) == 0 {
		return ""
	}
	return c.Names[0]
}

// Registry holds the commands a session dispatches against.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd under every name in cmd.Names. Registering a name
// that already exists replaces it outright: last registration wins, and
// this is how an embedder overrides a built-in.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cmd
	stored.Names = make([]string, len(cmd.Names))
	for i, name := range cmd.Names {
		stored.Names[i] = strings.ToUpper(name)
		r.byName[stored.Names[i]] = &stored
	}
}

func (r *Registry) lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[strings.ToUpper(name)]
	return cmd, ok
}

// overview returns the distinct, non-hidden commands in ascending
// alphabetic order by canonical name, for HELP with no argument.
func (r *Registry) overview() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Command]bool)
	var out []*Command
	for _, cmd := range r.byName {
		if cmd.Hidden || seen[cmd] {
			continue
		}
		seen[cmd] = true
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].canonical() < out[j].canonical() })
	return out
}
