package telnetsrv

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

type syncBuf struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuf) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForContains(t *testing.T, b *syncBuf, substr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Contains([]byte(b.String()), []byte(substr)) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output, got:\n%q", substr, b.String())
}

// TestSessionEndToEndShellLoop drives a whole session over a net.Pipe:
// initial negotiation settles, the welcome banner and prompt appear, a
// registered command round-trips, an unknown command reports itself,
// and EXIT ends the session.
func TestSessionEndToEndShellLoop(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	r := NewRegistry()
	r.Register(Command{
		Names: []string{"PING"},
		Short: "ping",
		Handler: func(ctx *Context, params []string) error {
			return ctx.Session.WriteLine("PONG")
		},
	})
	cfg := &Config{
		Registry: r,
		Welcome:  "Welcome aboard",
		Prompt:   "tty> ",
	}
	registerBuiltins(cfg.Registry)

	sess := newSession(server, cfg)

	out := &syncBuf{}
	go io.Copy(out, client)

	done := make(chan struct{})
	go func() {
		sess.run()
		close(done)
	}()

	waitForContains(t, out, "Welcome aboard")
	waitForContains(t, out, "tty> ")

	if _, err := client.Write([]byte("PING\r\n")); err != nil {
		t.Fatalf("write PING: %v", err)
	}
	waitForContains(t, out, "PONG")

	if _, err := client.Write([]byte("NOSUCHCMD\r\n")); err != nil {
		t.Fatalf("write NOSUCHCMD: %v", err)
	}
	waitForContains(t, out, "Unknown command 'NOSUCHCMD'")

	if _, err := client.Write([]byte("EXIT\r\n")); err != nil {
		t.Fatalf("write EXIT: %v", err)
	}
	waitForContains(t, out, "Goodbye")

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for session to end after EXIT")
	}
}

// TestSessionAuthenticationRejectsBadCredentials verifies a failed login
// closes the session without ever reaching the welcome banner.
func TestSessionAuthenticationRejectsBadCredentials(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	cfg := &Config{
		Registry:        NewRegistry(),
		RequireUsername: true,
		RequirePassword: true,
		Welcome:         "Welcome aboard",
		Prompt:          "> ",
		Auth: func(username, password string) (bool, error) {
			return username == "guest" && password == "guest", nil
		},
	}
	registerBuiltins(cfg.Registry)
	sess := newSession(server, cfg)

	out := &syncBuf{}
	go io.Copy(out, client)

	done := make(chan struct{})
	go func() {
		sess.run()
		close(done)
	}()

	waitForContains(t, out, "Username:")
	if _, err := client.Write([]byte("guest\r\n")); err != nil {
		t.Fatalf("write username: %v", err)
	}
	waitForContains(t, out, "Password:")
	if _, err := client.Write([]byte("wrong\r\n")); err != nil {
		t.Fatalf("write password: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for session to end after failed auth")
	}
	if bytes.Contains([]byte(out.String()), []byte("Welcome aboard")) {
		t.Fatalf("expected no welcome banner after failed auth, got:\n%q", out.String())
	}
}
