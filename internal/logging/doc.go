// Package logging builds the slog loggers used across Super Wire.
//
// Two formats are supported: a compact console line that lifts the component,
// run id and stage to the front, and JSON for log shippers. Context helpers
// stamp run, stage and request identifiers carried by the services package.
package logging
