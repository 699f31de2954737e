// Package stitch joins a run's audio clips into one episode artifact.
//
// Clips are ordered by ordinal and appended at the stream level with no
// re-encoding. Every non-empty clip must share the same audio format or the
// join fails with *FormatMismatchError. Two modes are available:
//
//   - Native appends MP3 bytes after comparing each clip's first frame header.
//   - FFmpeg verifies clips with ffprobe and runs an ffmpeg concat stream copy.
//
// Start runs a Stitcher in the background and returns a Job whose Done
// channel closes when the artifact is complete. Publishing waits on it.
package stitch
