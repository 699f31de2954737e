package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/logging"
)

// CleanStaleResult contains the outcome of a stale working file sweep.
type CleanStaleResult struct {
	Removed []string
	Errors  []FileError
}

// CleanStale removes working files left behind by runs that started more
// than maxAge ago (for example a crash before cleanup). Files whose name
// does not start with a run id are ignored. Runs listed in active are kept.
func CleanStale(dir string, maxAge time.Duration, now time.Time, active map[string]struct{}, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, FileError{Path: dir, Err: err})
		}
		return result
	}

	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) <= len(RunIDLayout) || name[len(RunIDLayout)] != '-' {
			continue
		}
		runID := name[:len(RunIDLayout)]
		started, err := ParseRunID(runID)
		if err != nil {
			continue
		}
		if _, ok := active[runID]; ok {
			continue
		}
		if !started.Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, FileError{Path: path, Err: err})
			logging.WarnWithContext(logger, "failed to remove stale working file", "workspace_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale working file",
				logging.String("path", path),
				logging.String(logging.FieldRunID, runID),
				logging.Duration("age", now.Sub(started)),
				logging.String(logging.FieldEventType, "workspace_cleanup"),
			)
		}
	}
	return result
}
