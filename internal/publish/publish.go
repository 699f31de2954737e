// Package publish uploads a stitched episode and then clears the run's
// working files.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/stitch"
	"github.com/phrazzld/super-wire/internal/storage"
	"github.com/phrazzld/super-wire/internal/workspace"
)

// ErrNotStitched is returned when Publish is asked to upload a job whose
// artifact was never completed.
var ErrNotStitched = errors.New("stitch did not complete")

// PublishError reports a failed upload. Working files are left in place.
type PublishError struct {
	Key     string
	Backend string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s to %s: %v", e.Key, e.Backend, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher moves completed artifacts into durable storage.
type Publisher struct {
	bucket storage.Bucket
	logger *slog.Logger
}

// New returns a Publisher writing to bucket.
func New(bucket storage.Bucket, logger *slog.Logger) *Publisher {
	return &Publisher{bucket: bucket, logger: logging.NewComponentLogger(logger, "publish")}
}

// Bucket returns the storage backend.
func (p *Publisher) Bucket() storage.Bucket { return p.bucket }

// Publish waits for job's completion event and uploads the artifact under
// run's durable key. A failed stitch is never uploaded.
func (p *Publisher) Publish(ctx context.Context, job *stitch.Job, run *workspace.Run) (storage.Object, error) {
	result, err := job.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return storage.Object{}, err
		}
		return storage.Object{}, fmt.Errorf("%w: %w", ErrNotStitched, err)
	}
	key := run.Artifact()
	if filepath.Base(result.Path) != key {
		return storage.Object{}, fmt.Errorf("%w: artifact %s does not match key %s", ErrNotStitched, filepath.Base(result.Path), key)
	}

	logger := logging.WithContext(ctx, p.logger)
	obj, err := p.bucket.Upload(ctx, key, result.Path)
	if err != nil {
		return storage.Object{}, &PublishError{Key: key, Backend: p.bucket.Name(), Err: err}
	}
	logger.Info("episode published",
		logging.String("key", obj.Key),
		logging.String("url", obj.URL),
		logging.String("backend", p.bucket.Name()),
		logging.Int64("bytes", result.Bytes),
	)
	return obj, nil
}

// Cleanup removes every working file of run. Call only after Publish
// succeeded. A returned *workspace.CleanupError never retracts the publish.
func (p *Publisher) Cleanup(ctx context.Context, run *workspace.Run) error {
	logger := logging.WithContext(ctx, p.logger)
	if err := run.Cleanup(); err != nil {
		logging.WarnWithContext(logger, "working files not removed",
			"cleanup_incomplete",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the listed files from the work directory by hand"),
			logging.String(logging.FieldImpact, "episode is published; stale files remain on disk"),
		)
		return err
	}
	logger.Debug("working files removed")
	return nil
}
