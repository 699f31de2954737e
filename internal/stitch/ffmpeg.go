package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/deps"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/media/ffprobe"
	"github.com/phrazzld/super-wire/internal/services"
)

// FFmpeg joins clips with the ffmpeg concat protocol and a stream copy.
type FFmpeg struct {
	ffmpegBinary  string
	ffprobeBinary string
	run           ffprobe.Runner
	logger        *slog.Logger
}

// FFmpegOption customizes the ffmpeg stitcher.
type FFmpegOption func(*FFmpeg)

// WithRunner overrides how ffmpeg and ffprobe are executed.
func WithRunner(run ffprobe.Runner) FFmpegOption {
	return func(f *FFmpeg) {
		if run != nil {
			f.run = run
		}
	}
}

// NewFFmpeg builds the ffmpeg stitcher. Empty binary names fall back to PATH lookups.
func NewFFmpeg(ffmpegBinary, ffprobeBinary string, logger *slog.Logger, opts ...FFmpegOption) *FFmpeg {
	f := &FFmpeg{
		ffmpegBinary:  firstNonEmpty(ffmpegBinary, "ffmpeg"),
		ffprobeBinary: firstNonEmpty(ffprobeBinary, "ffprobe"),
		run:           ffprobe.ExecRunner,
		logger:        logging.NewComponentLogger(logger, "stitch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stitch inspects every non-empty clip with ffprobe, then concatenates them into out.
func (f *FFmpeg) Stitch(ctx context.Context, clips []Clip, out string) (Result, error) {
	ordered, err := Ordered(clips)
	if err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, f.logger)

	var (
		reference   ffprobe.AudioSignature
		referenceAt string
		inputs      []string
	)
	for _, clip := range ordered {
		info, err := os.Stat(clip.Path)
		if err != nil {
			return Result{}, fmt.Errorf("stat clip: %w", err)
		}
		if info.Size() == 0 {
			logger.Debug("skipping empty clip", logging.String("clip", filepath.Base(clip.Path)))
			continue
		}
		meta, err := ffprobe.Inspect(ctx, f.run, f.ffprobeBinary, clip.Path)
		if err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, "stitch", "ffprobe", filepath.Base(clip.Path), err)
		}
		sig, ok := meta.AudioSignature()
		if !ok {
			return Result{}, fmt.Errorf("clip %s: no audio stream", filepath.Base(clip.Path))
		}
		if referenceAt == "" {
			reference = sig
			referenceAt = clip.Path
		} else if sig != reference {
			return Result{}, &FormatMismatchError{
				Clip:     clip.Path,
				Ordinal:  clip.Ordinal,
				Expected: fmt.Sprintf("%s (from %s)", reference, filepath.Base(referenceAt)),
				Actual:   sig.String(),
			}
		}
		abs, err := filepath.Abs(clip.Path)
		if err != nil {
			return Result{}, fmt.Errorf("resolve clip path: %w", err)
		}
		inputs = append(inputs, abs)
	}
	if len(inputs) == 0 {
		return Result{}, ErrNoAudio
	}

	// Run ids contain ':', so relative names would be read as protocol
	// prefixes by ffmpeg. Absolute paths start with '/'.
	absOut, err := filepath.Abs(out)
	if err != nil {
		return Result{}, fmt.Errorf("resolve artifact path: %w", err)
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", "concat:" + strings.Join(inputs, "|"), "-c", "copy", absOut}
	logger.Debug("running ffmpeg concat", logging.Int("clips", len(inputs)))
	if output, err := f.run(ctx, f.ffmpegBinary, args...); err != nil {
		_ = os.Remove(out)
		return Result{}, services.Wrap(services.ErrExternalTool, "stitch", "ffmpeg concat", strings.TrimSpace(string(output)), err)
	}

	size, err := syncFile(out)
	if err != nil {
		return Result{}, err
	}
	var duration time.Duration
	if meta, err := ffprobe.Inspect(ctx, f.run, f.ffprobeBinary, out); err == nil {
		duration = time.Duration(meta.DurationSeconds() * float64(time.Second))
	} else {
		logger.Debug("could not read artifact duration", logging.Error(err))
	}
	logger.Info("episode stitched",
		logging.String("artifact", filepath.Base(out)),
		logging.Int("clips", len(inputs)),
		logging.Int64("bytes", size),
		logging.Duration("duration", duration),
		logging.String("format", reference.String()),
	)
	return Result{Path: out, Bytes: size, Clips: len(inputs), Format: reference.String(), Duration: duration}, nil
}

func syncFile(path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync artifact: %w", err)
	}
	return info.Size(), nil
}

// New selects a stitcher for the configured concat mode. The ffmpeg mode
// fails fast when its binaries are not on PATH.
func New(cfg config.Audio, logger *slog.Logger) (Stitcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ConcatMode)) {
	case "", config.ConcatNative:
		return NewNative(logger), nil
	case config.ConcatFFmpeg:
		err := deps.Require(
			deps.Requirement{Name: "FFmpeg", Command: cfg.FFmpegBinary, Description: "Joins clips with a stream copy"},
			deps.Requirement{Name: "FFprobe", Command: cfg.FFprobeBinary, Description: "Verifies clip formats"},
		)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "stitch", "init", "ffmpeg concat mode", err)
		}
		return NewFFmpeg(cfg.FFmpegBinary, cfg.FFprobeBinary, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "stitch", "init", fmt.Sprintf("unknown concat mode %q", cfg.ConcatMode), nil)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
