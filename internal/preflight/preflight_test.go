package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCredentialNeverEchoesSecret(t *testing.T) {
	result := CheckCredential("LLM API key", "sk-secret", "llm.api_key")
	if !result.Passed || strings.Contains(result.Detail, "sk-secret") {
		t.Fatalf("unexpected result %+v", result)
	}
	if missing := CheckCredential("LLM API key", "  ", "llm.api_key"); missing.Passed {
		t.Fatal("expected blank credential to fail")
	}
}

func TestCheckNewsCredentials(t *testing.T) {
	cases := []struct {
		name string
		news config.News
		want bool
	}{
		{"newsapi with key", config.News{Provider: config.NewsProviderNewsAPI, APIKey: "k"}, true},
		{"newsapi without key", config.News{Provider: config.NewsProviderNewsAPI}, false},
		{"rss with feeds", config.News{Provider: config.NewsProviderRSS, Feeds: []string{"https://feed.test/rss"}}, true},
		{"rss without feeds", config.News{Provider: config.NewsProviderRSS}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckNewsCredentials(tc.news); got.Passed != tc.want {
				t.Fatalf("passed = %v, want %v (%s)", got.Passed, tc.want, got.Detail)
			}
		})
	}
}

func TestCheckStorage(t *testing.T) {
	azure := config.Storage{Backend: config.StorageAzure}
	if CheckStorage(azure).Passed {
		t.Fatal("azure without credentials should fail")
	}
	azure.Azure.ConnectionString = "UseDevelopmentStorage=true"
	azure.Azure.Container = "episodes"
	if !CheckStorage(azure).Passed {
		t.Fatal("azure with connection string should pass")
	}
	supa := config.Storage{Backend: config.StorageSupabase}
	supa.Supabase.URL = "https://project.supabase.co"
	if CheckStorage(supa).Passed {
		t.Fatal("supabase without key should fail")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"text": "pong", "message": map[string]string{"content": "pong"}}},
		})
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), config.LLM{APIKey: "good-key", BaseURL: srv.URL, Model: "test"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), config.LLM{APIKey: "bad-key", BaseURL: srv.URL, Model: "test"})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "auth failed") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	if CheckLLM(context.Background(), config.LLM{}).Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	// work, state, log and episode directories plus news, llm, tts and storage
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesBinariesInFFmpegMode(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	cfg.Audio.ConcatMode = config.ConcatFFmpeg
	cfg.Audio.FFmpegBinary = "ffmpeg"
	cfg.Audio.FFprobeBinary = "ffprobe"

	found := map[string]bool{}
	for _, r := range RunAll(context.Background(), cfg) {
		if r.Name == "FFmpeg" || r.Name == "FFprobe" {
			found[r.Name] = r.Passed
		}
	}
	if !found["FFmpeg"] || !found["FFprobe"] {
		t.Fatalf("expected passing binary checks, got %v", found)
	}
}
