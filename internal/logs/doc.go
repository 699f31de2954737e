// Package logs reads the superwire log file for the `superwire logs`
// command and the daemon's /logs endpoint.
//
// Last returns the trailing lines of the file, Since returns whatever was
// appended after a byte offset, and Follow polls for new lines until its
// context ends. A Matcher narrows any of them to the lines of a single run.
// Truncation or rotation of the file resets the offset to zero.
package logs
