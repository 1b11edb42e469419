package telnetsrv

import (
	"fmt"
	"strings"
)

// tokenizeQuoted splits a trimmed command line on whitespace, then merges
// quoted runs back together: a token starting with ' or " absorbs
// following tokens (rejoined with a single space) until the accumulated
// text ends with that same quote character, which is then stripped from
// both ends. A quote that's never closed absorbs every remaining token.
//
// This intentionally only looks at the first and last character of the
// accumulated token, not at whether interior content plausibly belongs
// inside the quotes — a single-character token consisting of just the
// opening quote satisfies both checks at once and is treated as already
// terminated, same as a real close would be.
func tokenizeQuoted(line string) []string {
	fields := strings.Fields(line)
	out := make([]string, 0, len(fields))

	for i := 0; i < len(fields); {
		tok := fields[i]
		if len(tok) == 0 || (tok[0] != '\'' && tok[0] != '"') {
			out = append(out, tok)
			i++
			continue
		}

		quote := tok[0]
		acc := tok
		j := i
		for !endsInQuote(acc, quote) && j+1 < len(fields) {
			j++
			acc += " " + fields[j]
		}
		acc = acc[1:]
		if endsInQuote(acc, quote) {
			acc = acc[:len(acc)-1]
		}
		out = append(out, acc)
		i = j + 1
	}
	return out
}

func endsInQuote(s string, quote byte) bool {
	return len(s) > 0 && s[len(s)-1] == quote
}

// dispatch looks up name in the session's registry and invokes it,
// writing "Unknown command" for a miss and recovering a handler panic
// into a reported error rather than taking the connection down with it.
func (s *Session) dispatch(name string, params []string) {
	cmd, ok := s.cfg.Registry.lookup(name)
	if !ok {
		_ = s.WriteResponse(fmt.Sprintf("Unknown command '%s'\n", name))
		return
	}
	if err := s.invoke(cmd, params); err != nil {
		_ = s.WriteError(err)
	}
}

func (s *Session) invoke(cmd *Command, params []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return cmd.Handler(&Context{Session: s}, params)
}
