package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// MP3Frame is a minimal MPEG-1 layer III frame header (44.1kHz, joint stereo).
var MP3Frame = []byte{0xFF, 0xFB, 0x90, 0x64}

// MP3Clip returns a fake clip: a valid frame header followed by marker bytes,
// so stitched output can be checked for order.
func MP3Clip(marker string) []byte {
	return append(append([]byte(nil), MP3Frame...), []byte(marker)...)
}

// WriteFile fills the target path with size bytes of a repeating pattern.
// A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ListDir returns the names in dir, failing the test on error other than absence.
func ListDir(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
