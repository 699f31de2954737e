// Package api defines the wire-format types shared by the HTTP server and the
// CLI's --json output. Converters translate ledger rows, published episodes
// and readiness checks into transport-friendly DTOs so consumers never import
// internal packages.
//
// The episode listing keeps the original front-end contract: a top-level
// "episodes" array of {name, url}. Everything else uses camelCase keys and
// RFC3339 timestamps with milliseconds.
package api
