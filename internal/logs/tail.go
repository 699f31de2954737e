package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	// DefaultLines is how many trailing lines Last returns when n <= 0.
	DefaultLines = 100

	// DefaultPoll is the Follow polling interval when none is given.
	DefaultPoll = 500 * time.Millisecond

	readChunk = 64 * 1024
)

// Matcher reports whether a log line should be returned.
type Matcher func(line string) bool

// Chunk is a batch of lines together with the byte offset just past them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// RunMatcher matches lines emitted for runID in either log format. An empty
// runID matches everything.
func RunMatcher(runID string) Matcher {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	console := "[run=" + runID
	jsonKey := `"run_id":"` + runID + `"`
	return func(line string) bool {
		return strings.Contains(line, console) || strings.Contains(line, jsonKey)
	}
}

// Last returns up to n matching lines from the end of the file. A missing
// file yields an empty chunk.
func Last(path string, n int, match Matcher) (Chunk, error) {
	if n <= 0 {
		n = DefaultLines
	}
	file, size, err := open(path)
	if err != nil || file == nil {
		return Chunk{}, err
	}
	defer file.Close()

	if match == nil {
		lines, err := lastLines(file, size, n)
		if err != nil {
			return Chunk{}, err
		}
		return Chunk{Lines: lines, Offset: size}, nil
	}

	// Filtered reads scan the whole file since matching lines may be sparse.
	lines := make([]string, 0, n)
	scanner := newScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !match(line) {
			continue
		}
		if len(lines) == n {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read log file: %w", err)
	}
	return Chunk{Lines: lines, Offset: size}, nil
}

// Since returns the complete lines appended after offset. A partial trailing
// line is left for the next call.
func Since(path string, offset int64, match Matcher) (Chunk, error) {
	file, size, err := open(path)
	if err != nil || file == nil {
		return Chunk{Offset: 0}, err
	}
	defer file.Close()

	if offset < 0 || offset > size {
		offset = 0
	}
	if offset == size {
		return Chunk{Offset: offset}, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(file, size-offset))
	if err != nil {
		return Chunk{Offset: offset}, fmt.Errorf("read log file: %w", err)
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return Chunk{Offset: offset}, nil
	}
	chunk := Chunk{Offset: offset + int64(end) + 1}
	for _, line := range strings.Split(string(data[:end]), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if match != nil && !match(line) {
			continue
		}
		chunk.Lines = append(chunk.Lines, line)
	}
	return chunk, nil
}

// Follow polls the file from offset and hands each new matching line to emit
// until ctx is done.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, match Matcher, emit func(string)) error {
	if emit == nil {
		return errors.New("follow log: emit callback is required")
	}
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		chunk, err := Since(path, offset, match)
		if err != nil {
			return err
		}
		offset = chunk.Offset
		for _, line := range chunk.Lines {
			emit(line)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	return file, info.Size(), nil
}

// lastLines walks backwards in fixed-size blocks until it has seen n line
// breaks or reached the start of the file.
func lastLines(file *os.File, size int64, n int) ([]string, error) {
	if size == 0 {
		return nil, nil
	}
	var (
		buf    []byte
		pos    = size
		breaks int
	)
	for pos > 0 && breaks <= n {
		step := int64(readChunk)
		if pos < step {
			step = pos
		}
		pos -= step
		block := make([]byte, step)
		if _, err := file.ReadAt(block, pos); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read log file: %w", err)
		}
		breaks += bytes.Count(block, []byte{'\n'})
		buf = append(block, buf...)
	}
	text := strings.TrimRight(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, readChunk), 1024*1024)
	return scanner
}
