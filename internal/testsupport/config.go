package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/super-wire/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test,
// placeholder credentials and local storage. Retry delays are zeroed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.News.APIKey = "test-news"
	cfgVal.LLM.APIKey = "test-llm"
	cfgVal.TTS.APIKey = "test-tts"
	cfgVal.Retry.DelaySeconds = 0
	cfgVal.Storage.Backend = config.StorageLocal
	cfgVal.Storage.Local.Dir = filepath.Join(base, "episodes")
	cfgVal.Storage.Local.PublicBaseURL = "https://cdn.test/episodes"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithNewsEndpoint points the NewsAPI provider at url.
func WithNewsEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.News.BaseURL = url
	}
}

// WithLLMEndpoint points the generative backend at url.
func WithLLMEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithTTSEndpoint points the voice backend at url.
func WithTTSEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.BaseURL = url
	}
}

// WithSerializedRuns toggles the generation lock.
func WithSerializedRuns(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.SerializeRuns = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
