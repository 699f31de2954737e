package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/super-wire/internal/stitch"
	"github.com/phrazzld/super-wire/internal/storage"
	"github.com/phrazzld/super-wire/internal/testsupport"
	"github.com/phrazzld/super-wire/internal/workspace"
)

type failingBucket struct {
	*storage.Local
}

func (failingBucket) Upload(context.Context, string, string) (storage.Object, error) {
	return storage.Object{}, errors.New("bucket unavailable")
}

func reserveRun(t *testing.T) *workspace.Run {
	t.Helper()
	run, err := workspace.Reserve(t.TempDir(), time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC), "mp3", nil)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	for i, name := range []string{run.IntroClip(), run.StoryClip(0), run.ConclusionClip()} {
		if _, err := run.WriteClip(name, testsupport.MP3Clip(string(rune('a'+i)))); err != nil {
			t.Fatalf("WriteClip: %v", err)
		}
	}
	return run
}

func stitchRun(t *testing.T, run *workspace.Run) *stitch.Job {
	t.Helper()
	clips := []stitch.Clip{
		{Ordinal: 0, Path: run.Path(run.IntroClip())},
		{Ordinal: 1, Path: run.Path(run.StoryClip(0))},
		{Ordinal: 2, Path: run.Path(run.ConclusionClip())},
	}
	return stitch.Start(context.Background(), stitch.NewNative(nil), clips, run.Path(run.Artifact()))
}

func TestPublishThenCleanup(t *testing.T) {
	run := reserveRun(t)
	bucketDir := t.TempDir()
	bucket, err := storage.NewLocal(bucketDir, "https://cdn.test")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	p := New(bucket, nil)

	obj, err := p.Publish(context.Background(), stitchRun(t, run), run)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if obj.Key != "2026-10-17T08:00:00.000Z-episode.mp3" {
		t.Fatalf("unexpected key %q", obj.Key)
	}
	if _, err := os.Stat(filepath.Join(bucketDir, obj.Key)); err != nil {
		t.Fatalf("artifact not in bucket: %v", err)
	}

	if err := p.Cleanup(context.Background(), run); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if left := testsupport.ListDir(t, run.Dir()); len(left) != 0 {
		t.Fatalf("expected no working files, got %v", left)
	}
}

func TestPublishFailureKeepsWorkingFiles(t *testing.T) {
	run := reserveRun(t)
	local, err := storage.NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	p := New(failingBucket{local}, nil)

	_, err = p.Publish(context.Background(), stitchRun(t, run), run)
	var publishErr *PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if publishErr.Key != run.Artifact() || publishErr.Backend != "local" {
		t.Fatalf("unexpected error detail: %+v", publishErr)
	}
	files, err := run.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 3 clips and the artifact to remain, got %v", files)
	}
}

type failedStitcher struct{}

func (failedStitcher) Stitch(context.Context, []stitch.Clip, string) (stitch.Result, error) {
	return stitch.Result{}, &stitch.FormatMismatchError{Clip: "x.mp3", Expected: "a", Actual: "b"}
}

func TestPublishRefusesFailedStitch(t *testing.T) {
	run := reserveRun(t)
	bucketDir := t.TempDir()
	bucket, err := storage.NewLocal(bucketDir, "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	job := stitch.Start(context.Background(), failedStitcher{}, nil, run.Path(run.Artifact()))

	_, err = New(bucket, nil).Publish(context.Background(), job, run)
	if !errors.Is(err, ErrNotStitched) {
		t.Fatalf("expected ErrNotStitched, got %v", err)
	}
	if left := testsupport.ListDir(t, bucketDir); len(left) != 0 {
		t.Fatalf("expected empty bucket, got %v", left)
	}
}
