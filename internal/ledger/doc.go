// Package ledger records the status of every generation run in SQLite.
//
// The ledger is diagnostic: it answers "what happened to run X" and backs
// the `superwire runs` command. Published episodes are always listed from
// durable storage, never from the ledger.
//
// A run row moves pending -> published or pending -> failed. The stage column
// mirrors the orchestrator state the run last entered.
package ledger
