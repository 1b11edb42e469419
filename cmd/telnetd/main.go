// Command telnetd is a minimal example embedder: it wires up Server with
// a handful of demo commands, optional bcrypt-backed authentication, and
// an optional hot-reloadable JSON config file. It is not the library;
// it exists to show what wiring one looks like.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/stlalpha/telnetsrv"
	"github.com/stlalpha/telnetsrv/internal/authutil"
	"github.com/stlalpha/telnetsrv/internal/srvconfig"
	"github.com/stlalpha/telnetsrv/internal/srvlog"
)

func main() {
	addr := flag.String("addr", ":2323", "listen address")
	configPath := flag.String("config", "", "optional JSON config file to load and watch for changes")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	srvlog.DebugEnabled = *debug

	validator := authutil.NewBcryptValidator()
	if err := validator.SetPassword("guest", "guest"); err != nil {
		log.Fatalf("telnetd: seeding demo account: %v", err)
	}

	registry := telnetsrv.NewRegistry()
	registerDemoCommands(registry)

	theApp := newApp()

	cfg := telnetsrv.Config{
		Addr:            *addr,
		Registry:        registry,
		Auth:            validator.Validate,
		RequireUsername: true,
		RequirePassword: true,
		Welcome:         "Welcome to the telnetsrv demo shell. Try HELP.",
		Prompt:          "demo> ",
		App:             theApp,
		SessionStart:    theApp.onSessionStart,
		SessionEnd:      theApp.onSessionEnd,
		WriteError:      writeANSIError,
	}

	srv := telnetsrv.NewServer(cfg)

	if *configPath != "" {
		loaded, err := srvconfig.Load(*configPath)
		if err != nil {
			log.Fatalf("telnetd: loading config: %v", err)
		}
		applyConfig(srv, loaded)

		watcher, err := srvconfig.NewWatcher(*configPath, 500*time.Millisecond)
		if err != nil {
			log.Fatalf("telnetd: watching config: %v", err)
		}
		watcher.OnReload = func(c *srvconfig.Config) { applyConfig(srv, c) }
		watcher.OnError = func(err error) { srvlog.Error("telnetd: config watch: %v", err) }
		go watcher.Run()
		defer watcher.Close()
	}

	fmt.Printf("telnetd: listening on %s\n", *addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("telnetd: %v", err)
	}
}

func applyConfig(srv *telnetsrv.Server, c *srvconfig.Config) {
	if c.WelcomeText != "" {
		srv.SetWelcome(c.WelcomeText)
	}
	if c.PromptText != "" {
		srv.SetPrompt(c.PromptText)
	}
	srvlog.DebugEnabled = c.Debug
}

func writeANSIError(s *telnetsrv.Session, err error) error {
	return s.WriteLine(fmt.Sprintf("\x1b[31mError: %v\x1b[0m", err))
}
