// Package notifications delivers run events to ntfy.
//
// NewService returns a no-op when no topic is configured. Events that are
// too chatty for a phone (run started) are accepted and dropped so callers
// can publish unconditionally.
package notifications
