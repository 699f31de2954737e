// Package workspace owns the per-run working files: clip and artifact
// naming, durable clip writes and post-publish cleanup.
//
// Every working file of a run lives flat in the work directory and starts
// with the run id, an ISO-8601 UTC timestamp with millisecond precision:
//
//	<id>-00-intro.<ext>
//	<id>-0<i>-segment.<ext>
//	<id>-99-conclusion.<ext>
//	<id>-episode.<ext>
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/fileutil"
)

// RunIDLayout formats run ids (JavaScript toISOString style).
const RunIDLayout = "2006-01-02T15:04:05.000Z"

// NewRunID formats t as a run id.
func NewRunID(t time.Time) string {
	return t.UTC().Format(RunIDLayout)
}

// ParseRunID recovers the timestamp from a run id.
func ParseRunID(id string) (time.Time, error) {
	return time.Parse(RunIDLayout, id)
}

// ArtifactSuffix returns the suffix every published episode key ends with.
func ArtifactSuffix(ext string) string {
	return "-episode." + ext
}

// ArtifactKey returns the durable key for a run's merged episode.
func ArtifactKey(runID, ext string) string {
	return runID + ArtifactSuffix(ext)
}

// ParseArtifactKey splits a published key into its run id and timestamp.
func ParseArtifactKey(key, ext string) (string, time.Time, bool) {
	base := filepath.Base(key)
	if !strings.HasSuffix(base, ArtifactSuffix(ext)) {
		return "", time.Time{}, false
	}
	id := strings.TrimSuffix(base, ArtifactSuffix(ext))
	ts, err := ParseRunID(id)
	if err != nil {
		return id, time.Time{}, false
	}
	return id, ts, true
}

// Run is the working area for one generation run.
type Run struct {
	dir string
	id  string
	ext string
}

// Reserve creates the work directory if needed and picks a run id for now
// that no existing working file uses and taken, when non-nil, does not
// report. Colliding ids move forward a millisecond at a time.
func Reserve(dir string, now time.Time, ext string, taken func(id string) bool) (*Run, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	t := now.UTC().Truncate(time.Millisecond)
	for range 1000 {
		id := NewRunID(t)
		if taken != nil && taken(id) {
			t = t.Add(time.Millisecond)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, globEscape(id)+"-*"))
		if err != nil {
			return nil, fmt.Errorf("scan work dir: %w", err)
		}
		if len(matches) == 0 {
			return &Run{dir: dir, id: id, ext: ext}, nil
		}
		t = t.Add(time.Millisecond)
	}
	return nil, errors.New("reserve run id: too many collisions")
}

// Open returns the working area for an existing run id.
func Open(dir, runID, ext string) *Run {
	return &Run{dir: dir, id: runID, ext: ext}
}

// ID returns the run id.
func (r *Run) ID() string { return r.id }

// Dir returns the work directory.
func (r *Run) Dir() string { return r.dir }

// Ext returns the clip extension.
func (r *Run) Ext() string { return r.ext }

// IntroClip returns the intro clip file name.
func (r *Run) IntroClip() string { return fmt.Sprintf("%s-00-intro.%s", r.id, r.ext) }

// StoryClip returns the clip file name for the story at zero-based position i.
func (r *Run) StoryClip(i int) string { return fmt.Sprintf("%s-0%d-segment.%s", r.id, i, r.ext) }

// ConclusionClip returns the conclusion clip file name.
func (r *Run) ConclusionClip() string { return fmt.Sprintf("%s-99-conclusion.%s", r.id, r.ext) }

// Artifact returns the merged episode file name, which is also its durable key.
func (r *Run) Artifact() string { return ArtifactKey(r.id, r.ext) }

// Path joins a working file name onto the work directory.
func (r *Run) Path(name string) string { return filepath.Join(r.dir, name) }

// WriteClip writes a clip and confirms it is durable (written, fsynced,
// closed) before returning its path.
func (r *Run) WriteClip(name string, data []byte) (string, error) {
	if !strings.HasPrefix(name, r.id+"-") {
		return "", fmt.Errorf("clip %q does not belong to run %s", name, r.id)
	}
	path := r.Path(name)
	if err := fileutil.WriteFileSync(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write clip %s: %w", name, err)
	}
	return path, nil
}

// Files lists every working file of the run, sorted by name.
func (r *Run) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, globEscape(r.id)+"-*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// FileError pairs a working file with the error that kept it from being removed.
type FileError struct {
	Path string
	Err  error
}

// CleanupError reports working files that could not be removed. It never
// implies the published artifact is affected.
type CleanupError struct {
	RunID    string
	Failures []FileError
}

func (e *CleanupError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", filepath.Base(f.Path), f.Err))
	}
	return fmt.Sprintf("cleanup run %s: %d file(s) not removed: %s", e.RunID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *CleanupError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Cleanup removes every working file of the run. All files are attempted;
// any failures are collected into a *CleanupError.
func (r *Run) Cleanup() error {
	files, err := r.Files()
	if err != nil {
		return &CleanupError{RunID: r.id, Failures: []FileError{{Path: r.dir, Err: err}}}
	}
	var failures []FileError
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failures = append(failures, FileError{Path: path, Err: err})
		}
	}
	if len(failures) > 0 {
		return &CleanupError{RunID: r.id, Failures: failures}
	}
	return nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
