package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/phrazzld/super-wire/internal/config"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEWS_API_KEY",
		"OPENAI_API_KEY",
		"ELEVEN_LABS_API_KEY",
		"AZURE_STORAGE_CONNECTION_STRING",
		"SUPABASE_URL",
		"SUPABASE_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPathsAndUsesEnvKeys(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("NEWS_API_KEY", "news-key")
	t.Setenv("OPENAI_API_KEY", "llm-key")
	t.Setenv("ELEVEN_LABS_API_KEY", "tts-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "superwire", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.Storage.Local.Dir != filepath.Join(tempHome, ".local", "share", "superwire", "episodes") {
		t.Fatalf("unexpected storage dir: %q", cfg.Storage.Local.Dir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7490" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.News.APIKey != "news-key" || cfg.LLM.APIKey != "llm-key" || cfg.TTS.APIKey != "tts-key" {
		t.Fatalf("expected keys from env, got news=%q llm=%q tts=%q", cfg.News.APIKey, cfg.LLM.APIKey, cfg.TTS.APIKey)
	}
	if cfg.News.PageSize != 3 {
		t.Fatalf("expected page size 3, got %d", cfg.News.PageSize)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.DelaySeconds != 5 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.LLM.ContextLimit != 4000 {
		t.Fatalf("unexpected context limit: %d", cfg.LLM.ContextLimit)
	}
	if cfg.Audio.ConcatMode != config.ConcatNative {
		t.Fatalf("unexpected concat mode: %q", cfg.Audio.ConcatMode)
	}
	if !cfg.Pipeline.SerializeRuns {
		t.Fatal("expected runs to be serialized by default")
	}
	if err := cfg.RequireGenerationCredentials(); err != nil {
		t.Fatalf("expected credentials to be satisfied: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "custom.toml")
	content := `[paths]
work_dir = "~/wire/work"
state_dir = "~/wire/state"
api_bind = "0.0.0.0:9000"

[news]
provider = "rss"
feeds = ["https://example.com/feed.xml", "https://example.com/feed.xml"]
page_size = 5

[llm]
api_key = "file-llm"

[storage]
backend = "local"

[storage.local]
dir = "~/wire/public"
public_base_url = "https://cdn.example.com/episodes/"

[hosts]
anchor = "kai"
field_a = "lee"
field_b = "max"

[[personas]]
id = "Kai"
name = "Kai"
voice_id = "voice-kai"
personality = "  calm  "

[[personas]]
id = "lee"
name = "Lee"
voice_id = "voice-lee"

[[personas]]
id = "max"
name = "Max"
voice_id = "voice-max"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempHome, "wire", "work") {
		t.Fatalf("unexpected work dir: %q", cfg.Paths.WorkDir)
	}
	if cfg.Storage.Local.PublicBaseURL != "https://cdn.example.com/episodes" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Storage.Local.PublicBaseURL)
	}
	if got := cfg.News.Feeds; len(got) != 1 || got[0] != "https://example.com/feed.xml" {
		t.Fatalf("expected deduplicated feeds, got %v", got)
	}
	if cfg.News.PageSize != 5 {
		t.Fatalf("unexpected page size: %d", cfg.News.PageSize)
	}
	if len(cfg.Personas) != 3 {
		t.Fatalf("expected file personas to replace defaults, got %d", len(cfg.Personas))
	}
	kai, ok := cfg.PersonaByID("KAI")
	if !ok {
		t.Fatal("expected persona lookup to be case insensitive")
	}
	if kai.ID != "kai" || kai.Personality != "calm" {
		t.Fatalf("unexpected normalized persona: %+v", kai)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.LLM.APIKey != "file-llm" {
		t.Fatalf("unexpected llm key: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != config.Default().LLM.Model {
		t.Fatalf("expected default model to survive partial file, got %q", cfg.LLM.Model)
	}
}

func TestFileValueWinsOverEnvFallback(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "env-llm")
	t.Setenv("ELEVEN_LABS_API_KEY", "env-tts")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[llm]
api_key = "file-llm"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-llm" {
		t.Errorf("expected file llm key, got %q", cfg.LLM.APIKey)
	}
	if cfg.TTS.APIKey != "env-tts" {
		t.Errorf("expected tts key from env, got %q", cfg.TTS.APIKey)
	}
	if err := cfg.RequireGenerationCredentials(); err == nil || !strings.Contains(err.Error(), "news.api_key") {
		t.Fatalf("expected missing news key error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if len(cfg.Personas) != 3 {
		t.Fatalf("expected three sample personas, got %d", len(cfg.Personas))
	}
	if !strings.HasPrefix(cfg.Personas[0].Personality, "Consider a news reporter") {
		t.Fatalf("unexpected sample personality: %q", cfg.Personas[0].Personality)
	}
	if cfg.Hosts.Anchor != "adam" {
		t.Fatalf("unexpected sample anchor: %q", cfg.Hosts.Anchor)
	}

	defaults := config.Default()
	if cfg.LLM.Model != defaults.LLM.Model || cfg.News.BaseURL != defaults.News.BaseURL {
		t.Fatal("expected sample to mirror defaults")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	if err := func() error { cfg := config.Default(); return cfg.Validate() }(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown provider", func(c *config.Config) { c.News.Provider = "carrier-pigeon" }, "news.provider"},
		{"rss without feeds", func(c *config.Config) { c.News.Provider = config.NewsProviderRSS }, "news.feeds"},
		{"zero page size", func(c *config.Config) { c.News.PageSize = 0 }, "news.page_size"},
		{"zero attempts", func(c *config.Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"bad concat mode", func(c *config.Config) { c.Audio.ConcatMode = "reencode" }, "audio.concat_mode"},
		{"native needs mp3", func(c *config.Config) { c.Audio.Extension = "wav" }, "audio.concat_mode"},
		{"azure without credentials", func(c *config.Config) { c.Storage.Backend = config.StorageAzure }, "storage.azure"},
		{"supabase without key", func(c *config.Config) {
			c.Storage.Backend = config.StorageSupabase
			c.Storage.Supabase.URL = "https://project.supabase.co"
		}, "storage.supabase"},
		{"duplicate host slots", func(c *config.Config) { c.Hosts.FieldB = c.Hosts.FieldA }, "must name different personas"},
		{"unknown host", func(c *config.Config) { c.Hosts.Anchor = "nobody" }, "unknown persona"},
		{"persona without voice", func(c *config.Config) { c.Personas[1].VoiceID = "" }, "voice_id"},
		{"bad bind", func(c *config.Config) { c.Paths.APIBind = "localhost" }, "paths.api_bind"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesLocalStorage(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Storage.Local.Dir = filepath.Join(base, "episodes")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Storage.Local.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
