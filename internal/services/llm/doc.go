// Package llm provides a thin client for OpenAI-compatible completion APIs.
//
// The script writer uses it to turn a filled prompt template into narration.
// Complete issues exactly one request and returns every non-blank choice; the
// caller owns retry policy and uses IsRetryable to tell throttling and server
// failures apart from bad credentials or malformed requests.
package llm
