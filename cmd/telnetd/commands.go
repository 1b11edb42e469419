package main

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/creack/pty"

	"github.com/stlalpha/telnetsrv"
)

// registerDemoCommands adds the example application's commands on top of
// the engine's built-in HELP/EXIT/HISTORY. These mirror the kind of
// handlers a real embedder writes: some trivial, some exercising
// asynchronous writes, masked input, and hidden/aliased registration.
func registerDemoCommands(r *telnetsrv.Registry) {
	r.Register(telnetsrv.Command{
		Names:   []string{"ECHO", "REPEAT"},
		Params:  "<text>",
		Short:   "Echo the given text back",
		Handler: cmdEcho,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"TIMER", "TIMEIT"},
		Params:  "<seconds> <message>",
		Short:   "Schedule an asynchronous message",
		Long:    "Delivers <message> out of band after <seconds>. Use quotes for a multi-word message, e.g. TIMER 5 \"hello world\".",
		Handler: cmdTimer,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"DEBUG"},
		Short:   "Show session debug information",
		Handler: cmdDebug,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"INFO"},
		Short:   "Show connection counts",
		Handler: cmdInfo,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"PARAMS"},
		Params:  "[args...]",
		Short:   "Show how the shell tokenized your arguments",
		Handler: cmdParams,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"PASSWD"},
		Short:   "Change your password (demo only, nothing is persisted)",
		Handler: cmdPasswd,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"SHELL"},
		Short:   "Drop into a pty-backed subshell",
		Handler: cmdShell,
	})
	r.Register(telnetsrv.Command{
		Names:   []string{"TERM"},
		Hidden:  true,
		Handler: cmdTerm,
	})
	for _, name := range []string{"HIDE-ME", "HIDE-ME-TOO", "ALSO-ME"} {
		r.Register(telnetsrv.Command{
			Names:   []string{name},
			Hidden:  true,
			Handler: cmdNoop,
		})
	}
}

func cmdEcho(ctx *telnetsrv.Context, params []string) error {
	return ctx.Session.WriteLine(strings.Join(params, " "))
}

func cmdTimer(ctx *telnetsrv.Context, params []string) error {
	s := ctx.Session
	if len(params) < 2 {
		return s.WriteLine("Need both a time and a message")
	}
	secs, err := strconv.Atoi(params[0])
	if err != nil {
		return s.WriteLine("Need both a time and a message")
	}
	msg := strings.Join(params[1:], " ")
	s.ScheduleMessage(time.Duration(secs)*time.Second, msg)
	return s.WriteLine(fmt.Sprintf("Waiting %d seconds...", secs))
}

func cmdDebug(ctx *telnetsrv.Context, params []string) error {
	s := ctx.Session
	if err := s.WriteLine(fmt.Sprintf("user    : %s", s.Username())); err != nil {
		return err
	}
	if err := s.WriteLine(fmt.Sprintf("term    : %s", s.TERM())); err != nil {
		return err
	}
	return s.WriteLine(fmt.Sprintf("history : %d line(s)", len(s.History())))
}

func cmdInfo(ctx *telnetsrv.Context, params []string) error {
	a := appFromSession(ctx.Session)
	return ctx.Session.WriteLine(fmt.Sprintf("active sessions: %d, total since startup: %d", a.activeCount(), a.totalCount()))
}

func cmdParams(ctx *telnetsrv.Context, params []string) error {
	return ctx.Session.WriteLine(fmt.Sprintf("%d argument(s): %q", len(params), params))
}

// cmdPasswd changes the demo password two ways: typed inline as a
// parameter ("PASSWD hunter2"), in which case the plaintext already
// landed in history as part of the command line the shell echoed back,
// so the command redacts that entry before returning; or typed
// interactively at a masked, non-history prompt, which never touches
// history at all.
func cmdPasswd(ctx *telnetsrv.Context, params []string) error {
	s := ctx.Session

	if len(params) > 0 {
		s.RedactLastHistory("PASSWD ********")
		return s.WriteLine("Password updated (demo only, not actually persisted).")
	}

	pw, err := s.ReadLine("New password: ", false, false)
	if err != nil {
		return err
	}
	if pw == "" {
		return s.WriteLine("Password unchanged.")
	}
	return s.WriteLine("Password updated (demo only, not actually persisted).")
}

func cmdTerm(ctx *telnetsrv.Context, params []string) error {
	return ctx.Session.WriteLine(ctx.Session.TERM())
}

func cmdNoop(ctx *telnetsrv.Context, params []string) error {
	return nil
}

// cmdShell bridges a pty-backed subprocess to the session one line at a
// time: the shell's own input path is cooked and line-oriented (that's
// the whole point of the line editor), so this isn't a raw passthrough
// terminal, just a demonstration of wiring a pty into a handler.
func cmdShell(ctx *telnetsrv.Context, params []string) error {
	s := ctx.Session

	c := exec.Command("/bin/sh")
	f, err := pty.Start(c)
	if err != nil {
		return fmt.Errorf("starting subshell: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = c.Process.Kill()
		_ = c.Wait()
	}()

	if err := s.WriteLine("Entering subshell. Type 'exit' to return."); err != nil {
		return err
	}

	go func() {
		buf := make([]byte, 512)
		for {
			n, err := f.Read(buf)
			if n > 0 {
				_ = s.WriteResponse(string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		line, err := s.ReadLine("", true, false)
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "exit" {
			return nil
		}
		if _, err := f.Write([]byte(line + "\n")); err != nil {
			return nil
		}
	}
}
