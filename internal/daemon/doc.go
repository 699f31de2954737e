// Package daemon runs the long-lived "superwire serve" process.
//
// It wires the pipeline runtime to the HTTP API under a single lifecycle
// with flock-based locking to prevent two servers sharing one state
// directory. Startup housekeeping marks interrupted ledger runs as failed,
// sweeps stale working files and logs failed preflight checks. Shutdown
// cancels an in-flight run so the ledger records it as failed.
//
// Keep orchestration logic in internal/pipeline: the daemon focuses on
// startup, shutdown and request handling.
package daemon
