package stitch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/super-wire/internal/config"
)

var (
	frame44kJoint = []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x00}
	frame44kMono  = []byte{0xFF, 0xFB, 0x90, 0xC4, 0x00, 0x00}
	frame48kJoint = []byte{0xFF, 0xFB, 0x94, 0x64, 0x00, 0x00}
)

func writeClip(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func clipData(frame []byte, marker string) []byte {
	return append(append([]byte(nil), frame...), []byte(marker)...)
}

func TestSniffMP3(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    Format
		wantErr bool
	}{
		{name: "plain frame", data: frame44kJoint, want: Format{Version: "1", Layer: 3, SampleRate: 44100, ChannelMode: "joint_stereo"}},
		{name: "mono", data: frame44kMono, want: Format{Version: "1", Layer: 3, SampleRate: 44100, ChannelMode: "mono"}},
		{name: "48k", data: frame48kJoint, want: Format{Version: "1", Layer: 3, SampleRate: 48000, ChannelMode: "joint_stereo"}},
		{name: "mpeg2", data: []byte{0xFF, 0xF3, 0x90, 0xC4}, want: Format{Version: "2", Layer: 3, SampleRate: 22050, ChannelMode: "mono"}},
		{
			name: "after id3 tag",
			data: append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 3, 0xFF, 0xFF, 0xFF}, frame44kMono...),
			want: Format{Version: "1", Layer: 3, SampleRate: 44100, ChannelMode: "mono"},
		},
		{name: "leading padding", data: append([]byte{0, 0, 0}, frame44kJoint...), want: Format{Version: "1", Layer: 3, SampleRate: 44100, ChannelMode: "joint_stereo"}},
		{name: "not audio", data: []byte("<html>nope</html>"), wantErr: true},
		{name: "too short", data: []byte{0xFF}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffMP3(tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrNoFrame) {
					t.Fatalf("expected ErrNoFrame, got %v (%+v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("SniffMP3: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNativeStitchAppendsInOrdinalOrder(t *testing.T) {
	dir := t.TempDir()
	intro := clipData(frame44kJoint, "intro")
	seg0 := clipData(frame44kJoint, "seg0")
	seg1 := clipData(frame44kJoint, "seg1")
	outro := clipData(frame44kJoint, "outro")
	clips := []Clip{
		{Ordinal: 3, Path: writeClip(t, dir, "run-99-conclusion.mp3", outro)},
		{Ordinal: 1, Path: writeClip(t, dir, "run-00-segment.mp3", seg0)},
		{Ordinal: 0, Path: writeClip(t, dir, "run-00-intro.mp3", intro)},
		{Ordinal: 2, Path: writeClip(t, dir, "run-01-segment.mp3", seg1)},
	}
	out := filepath.Join(dir, "run-episode.mp3")

	result, err := NewNative(nil).Stitch(context.Background(), clips, out)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	want := bytes.Join([][]byte{intro, seg0, seg1, outro}, nil)
	if !bytes.Equal(got, want) {
		t.Fatalf("artifact bytes out of order:\n got %q\nwant %q", got, want)
	}
	if result.Bytes != int64(len(want)) || result.Clips != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestNativeStitchSkipsEmptyClips(t *testing.T) {
	dir := t.TempDir()
	intro := clipData(frame44kJoint, "intro")
	outro := clipData(frame44kJoint, "outro")
	clips := []Clip{
		{Ordinal: 0, Path: writeClip(t, dir, "a.mp3", intro)},
		{Ordinal: 1, Path: writeClip(t, dir, "b.mp3", nil)},
		{Ordinal: 2, Path: writeClip(t, dir, "c.mp3", outro)},
	}
	out := filepath.Join(dir, "out.mp3")
	result, err := NewNative(nil).Stitch(context.Background(), clips, out)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	if result.Clips != 2 {
		t.Fatalf("expected 2 joined clips, got %d", result.Clips)
	}
	got, _ := os.ReadFile(out)
	if !bytes.Equal(got, append(append([]byte(nil), intro...), outro...)) {
		t.Fatalf("unexpected artifact %q", got)
	}
}

func TestNativeStitchRejectsFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	clips := []Clip{
		{Ordinal: 0, Path: writeClip(t, dir, "a.mp3", clipData(frame44kJoint, "a"))},
		{Ordinal: 1, Path: writeClip(t, dir, "b.mp3", clipData(frame48kJoint, "b"))},
	}
	out := filepath.Join(dir, "out.mp3")
	_, err := NewNative(nil).Stitch(context.Background(), clips, out)
	var mismatch *FormatMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected FormatMismatchError, got %v", err)
	}
	if mismatch.Ordinal != 1 || filepath.Base(mismatch.Clip) != "b.mp3" {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected no artifact after mismatch, stat err=%v", err)
	}
}

func TestNativeStitchAllEmpty(t *testing.T) {
	dir := t.TempDir()
	clips := []Clip{{Ordinal: 0, Path: writeClip(t, dir, "a.mp3", nil)}}
	if _, err := NewNative(nil).Stitch(context.Background(), clips, filepath.Join(dir, "out.mp3")); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestOrderedRejectsDuplicateOrdinals(t *testing.T) {
	if _, err := Ordered([]Clip{{Ordinal: 1, Path: "a"}, {Ordinal: 1, Path: "b"}}); err == nil {
		t.Fatal("expected duplicate ordinal error")
	}
}

func TestFFmpegStitchVerifiesThenConcats(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", []byte("aaa"))
	empty := writeClip(t, dir, "b.mp3", nil)
	c := writeClip(t, dir, "c.mp3", []byte("ccc"))
	out := filepath.Join(dir, "out.mp3")

	var ffmpegArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "ffprobe":
			return []byte(`{"streams":[{"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":2}],"format":{"duration":"1.5"}}`), nil
		case "ffmpeg":
			ffmpegArgs = args
			return nil, os.WriteFile(out, []byte("aaaccc"), 0o644)
		}
		return nil, errors.New("unexpected binary " + name)
	}
	s := NewFFmpeg("", "", nil, WithRunner(run))
	result, err := s.Stitch(context.Background(), []Clip{{Ordinal: 2, Path: c}, {Ordinal: 1, Path: empty}, {Ordinal: 0, Path: a}}, out)
	if err != nil {
		t.Fatalf("Stitch: %v", err)
	}
	joined := strings.Join(ffmpegArgs, " ")
	if !strings.Contains(joined, "concat:"+a+"|"+c) {
		t.Fatalf("expected ordered concat input, got %q", joined)
	}
	if !strings.Contains(joined, "-c copy") {
		t.Fatalf("expected stream copy, got %q", joined)
	}
	if result.Bytes != 6 || result.Clips != 2 || result.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFFmpegStitchRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	a := writeClip(t, dir, "a.mp3", []byte("a"))
	b := writeClip(t, dir, "b.mp3", []byte("b"))
	ffmpegCalled := false
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name == "ffmpeg" {
			ffmpegCalled = true
			return nil, nil
		}
		rate := "44100"
		if args[len(args)-1] == b {
			rate = "22050"
		}
		return []byte(`{"streams":[{"codec_name":"mp3","codec_type":"audio","sample_rate":"` + rate + `","channels":1}]}`), nil
	}
	_, err := NewFFmpeg("", "", nil, WithRunner(run)).Stitch(context.Background(), []Clip{{Ordinal: 0, Path: a}, {Ordinal: 1, Path: b}}, filepath.Join(dir, "out.mp3"))
	var mismatch *FormatMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected FormatMismatchError, got %v", err)
	}
	if ffmpegCalled {
		t.Fatal("ffmpeg must not run after a mismatch")
	}
}

func TestFFmpegStitchPassesAbsolutePaths(t *testing.T) {
	t.Chdir(t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	intro := writeClip(t, ".", "2026-03-04T05:06:07.891Z-00-intro.mp3", []byte("aaa"))
	outro := writeClip(t, ".", "2026-03-04T05:06:07.891Z-99-conclusion.mp3", []byte("ccc"))
	out := "2026-03-04T05:06:07.891Z-episode.mp3"

	var inspected, ffmpegArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		switch name {
		case "ffprobe":
			inspected = append(inspected, args[len(args)-1])
			return []byte(`{"streams":[{"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":1}],"format":{}}`), nil
		case "ffmpeg":
			ffmpegArgs = args
			return nil, os.WriteFile(out, []byte("aaaccc"), 0o644)
		}
		return nil, errors.New("unexpected binary " + name)
	}
	if _, err := NewFFmpeg("", "", nil, WithRunner(run)).Stitch(context.Background(),
		[]Clip{{Ordinal: 0, Path: intro}, {Ordinal: 1, Path: outro}}, out); err != nil {
		t.Fatalf("Stitch: %v", err)
	}

	for _, path := range inspected {
		if !filepath.IsAbs(path) {
			t.Fatalf("ffprobe got relative path %q", path)
		}
	}
	wantInput := "concat:" + filepath.Join(wd, intro) + "|" + filepath.Join(wd, outro)
	if !strings.Contains(strings.Join(ffmpegArgs, " "), wantInput) {
		t.Fatalf("expected %q in args %q", wantInput, ffmpegArgs)
	}
	if got := ffmpegArgs[len(ffmpegArgs)-1]; got != filepath.Join(wd, out) {
		t.Fatalf("expected absolute output path, got %q", got)
	}
}

type blockingStitcher struct {
	release chan struct{}
}

func (b blockingStitcher) Stitch(ctx context.Context, clips []Clip, out string) (Result, error) {
	<-b.release
	return Result{Path: out, Clips: len(clips)}, nil
}

func TestJobSignalsCompletion(t *testing.T) {
	release := make(chan struct{})
	job := Start(context.Background(), blockingStitcher{release: release}, []Clip{{Ordinal: 0}}, "out.mp3")

	select {
	case <-job.Done():
		t.Fatal("job finished before the stitcher returned")
	default:
	}

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := job.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to time out, got %v", err)
	}

	close(release)
	result, err := job.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result.Path != "out.mp3" || result.Clips != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	<-job.Done()
}

func TestNewSelectsMode(t *testing.T) {
	s, err := New(configAudio("native"), nil)
	if err != nil {
		t.Fatalf("New native: %v", err)
	}
	if _, ok := s.(*Native); !ok {
		t.Fatalf("expected *Native, got %T", s)
	}
	if _, err := New(configAudio("sox"), nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func configAudio(mode string) config.Audio {
	return config.Audio{Extension: "mp3", ConcatMode: mode}
}
