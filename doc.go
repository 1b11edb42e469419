// Package telnetsrv is a reusable TELNET server framework: per-connection
// option negotiation, an input-cooking pipeline that turns raw socket
// bytes into a line-editable token stream, a line editor with history and
// masked entry, and a small command shell with built-in HELP/HISTORY/EXIT
// commands.
//
// The package deliberately stops at the application boundary. It has no
// opinion on how connections are accepted beyond Server, a minimal
// net.Listener wrapper (sessions are started only through Server; no
// exported entry point runs a session on a connection accepted elsewhere),
// how a process is bootstrapped or its logs routed (see internal/srvlog
// for the debug-logging convention the engine itself uses), or what
// commands an application registers beyond the three built-ins.
package telnetsrv
