// Package config loads, normalizes, and validates Super Wire configuration.
//
// It supplies repository defaults (including the built-in cast of hosts),
// expands user paths, reads TOML files, and honours environment fallbacks
// such as NEWS_API_KEY, OPENAI_API_KEY and ELEVEN_LABS_API_KEY for values the
// file leaves empty.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
