// Package ffprobe wraps the ffprobe binary for inspecting audio clips.
//
// Inspect shells out with JSON output and decodes streams and container
// metadata. AudioSignature reduces a result to the fields that must agree
// before clips can be joined with a stream copy.
package ffprobe
