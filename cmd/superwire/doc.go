// Package main hosts the superwire CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server, triggers one-off
// episode runs, lists published episodes and ledger history, prints the
// persona cast, tails the log file and scaffolds configuration. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on output.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through a command or flag here.
package main
