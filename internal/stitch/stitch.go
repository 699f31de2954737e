package stitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/phrazzld/super-wire/internal/fileutil"
	"github.com/phrazzld/super-wire/internal/logging"
)

// ErrNoAudio is returned when every clip of a run is empty.
var ErrNoAudio = errors.New("stitch: no audio to join")

// Clip is one synthesized segment on disk. VoiceID is the voice the audio
// was requested with, or "" for an empty narration that was never sent.
type Clip struct {
	Ordinal int
	Path    string
	VoiceID string
}

// Result describes a completed artifact.
type Result struct {
	Path   string
	Bytes  int64
	Clips  int
	Format string

	// Duration is only known when the stitcher can inspect the artifact.
	Duration time.Duration
}

// Stitcher joins clips into a single file at out.
type Stitcher interface {
	Stitch(ctx context.Context, clips []Clip, out string) (Result, error)
}

// FormatMismatchError reports a clip whose format differs from the first clip.
type FormatMismatchError struct {
	Clip     string
	Ordinal  int
	Expected string
	Actual   string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("clip %s (ordinal %d) format %s does not match %s", filepath.Base(e.Clip), e.Ordinal, e.Actual, e.Expected)
}

// Ordered returns clips sorted by ordinal. Duplicate ordinals are an error.
func Ordered(clips []Clip) ([]Clip, error) {
	sorted := append([]Clip(nil), clips...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Ordinal == sorted[i-1].Ordinal {
			return nil, fmt.Errorf("duplicate clip ordinal %d", sorted[i].Ordinal)
		}
	}
	return sorted, nil
}

// Native appends MP3 clips byte for byte after checking frame headers agree.
type Native struct {
	logger *slog.Logger
}

// NewNative builds the native stitcher.
func NewNative(logger *slog.Logger) *Native {
	return &Native{logger: logging.NewComponentLogger(logger, "stitch")}
}

// Stitch writes clips to out in ordinal order. Zero-length clips are skipped.
func (n *Native) Stitch(ctx context.Context, clips []Clip, out string) (Result, error) {
	ordered, err := Ordered(clips)
	if err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, n.logger)

	var (
		reference   *Format
		referenceAt string
		nonEmpty    []Clip
	)
	for _, clip := range ordered {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		data, err := os.ReadFile(clip.Path)
		if err != nil {
			return Result{}, fmt.Errorf("read clip: %w", err)
		}
		if len(data) == 0 {
			logger.Debug("skipping empty clip", logging.String("clip", filepath.Base(clip.Path)))
			continue
		}
		format, err := SniffMP3(data)
		if err != nil {
			return Result{}, fmt.Errorf("clip %s: %w", filepath.Base(clip.Path), err)
		}
		if reference == nil {
			reference = &format
			referenceAt = clip.Path
		} else if format != *reference {
			return Result{}, &FormatMismatchError{
				Clip:     clip.Path,
				Ordinal:  clip.Ordinal,
				Expected: fmt.Sprintf("%s (from %s)", reference, filepath.Base(referenceAt)),
				Actual:   format.String(),
			}
		}
		nonEmpty = append(nonEmpty, clip)
	}
	if len(nonEmpty) == 0 {
		return Result{}, ErrNoAudio
	}

	written, err := appendFiles(ctx, nonEmpty, out)
	if err != nil {
		return Result{}, err
	}
	logger.Info("episode stitched",
		logging.String("artifact", filepath.Base(out)),
		logging.Int("clips", len(nonEmpty)),
		logging.Int64("bytes", written),
		logging.String("format", reference.String()),
	)
	return Result{Path: out, Bytes: written, Clips: len(nonEmpty), Format: reference.String()}, nil
}

func appendFiles(ctx context.Context, clips []Clip, out string) (int64, error) {
	f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create artifact: %w", err)
	}
	var total int64
	fail := func(err error) (int64, error) {
		_ = f.Close()
		_ = os.Remove(out)
		return 0, err
	}
	for _, clip := range clips {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		in, err := os.Open(clip.Path)
		if err != nil {
			return fail(fmt.Errorf("open clip: %w", err))
		}
		n, err := io.Copy(f, in)
		_ = in.Close()
		if err != nil {
			return fail(fmt.Errorf("append %s: %w", filepath.Base(clip.Path), err))
		}
		total += n
	}
	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("sync artifact: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(out)
		return 0, fmt.Errorf("close artifact: %w", err)
	}
	if err := fileutil.SyncDir(filepath.Dir(out)); err != nil {
		return 0, fmt.Errorf("sync work dir: %w", err)
	}
	return total, nil
}
