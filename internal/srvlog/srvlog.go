// Package srvlog provides the package-wide debug logging switch used
// across the engine: off by default, toggled on by an embedder that wants
// a trace of negotiation and session lifecycle events on stderr.
package srvlog

import "log"

// DebugEnabled gates Debug output. Embedders flip this on for
// troubleshooting; it is false by default so a production listener stays
// quiet.
var DebugEnabled bool

// Debug logs a formatted message prefixed "DEBUG: " when DebugEnabled is
// true, and is a no-op otherwise.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// Error logs a formatted message prefixed "ERROR: " unconditionally.
// Errors are always worth surfacing regardless of the debug switch.
func Error(format string, args ...any) {
	log.Printf("ERROR: "+format, args...)
}
