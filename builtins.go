package telnetsrv

import (
	"fmt"
	"strings"
)

// registerBuiltins installs HELP/?, EXIT/QUIT/BYE/LOGOUT, and HISTORY.
// Called once by NewServer on the registry from Config, after whatever
// that registry already holds, so a built-in replaces a same-named
// command registered before NewServer; an embedder registering the same
// name after NewServer overrides the built-in (last registration wins).
func registerBuiltins(r *Registry) {
	r.Register(Command{
		Names:   []string{"HELP", "?"},
		Params:  "[command]",
		Short:   "List commands, or show help for one command",
		Long:    "With no argument, lists every non-hidden command and its summary.\nWith a command name, shows that command's parameter syntax and full help text.",
		Handler: cmdHelp,
	})
	r.Register(Command{
		Names:   []string{"EXIT", "QUIT", "BYE", "LOGOUT"},
		Short:   "End the session",
		Handler: cmdExit,
	})
	r.Register(Command{
		Names:   []string{"HISTORY"},
		Short:   "Show command history",
		Handler: cmdHistory,
	})
}

func cmdHelp(ctx *Context, params []string) error {
	s := ctx.Session

	if len(params) == 0 {
		if err := s.WriteResponse("Help on built in commands\n\n"); err != nil {
			return err
		}
		for _, cmd := range s.cfg.Registry.overview() {
			line := cmd.canonical()
			if cmd.Params != "" {
				line += " " + cmd.Params
			}
			line += " - " + cmd.Short + "\n"
			if err := s.WriteResponse(line); err != nil {
				return err
			}
		}
		return nil
	}

	name := strings.ToUpper(params[0])
	cmd, ok := s.cfg.Registry.lookup(name)
	if !ok {
		return s.WriteResponse(fmt.Sprintf("Command '%s' not known\n", params[0]))
	}

	header := cmd.canonical()
	if cmd.Params != "" {
		header += " " + cmd.Params
	}
	text := cmd.Long
	if text == "" {
		text = cmd.Short
	}
	return s.WriteResponse(header + "\n\n" + text + "\n")
}

func cmdExit(ctx *Context, params []string) error {
	s := ctx.Session
	if err := s.WriteResponse("Goodbye"); err != nil {
		return err
	}
	s.Stop()
	return nil
}

func cmdHistory(ctx *Context, params []string) error {
	s := ctx.Session
	if err := s.WriteResponse("Command history\n\n"); err != nil {
		return err
	}
	for i, line := range s.History() {
		if err := s.WriteResponse(fmt.Sprintf("%5d : %s\n", i+1, line)); err != nil {
			return err
		}
	}
	return nil
}
