package preflight

import (
	"context"
	"strings"

	"github.com/phrazzld/super-wire/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the offline checks for cfg: directories, credentials,
// storage settings and, in ffmpeg concat mode, the external binaries.
// Network reachability is left to CheckLLM.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Episode directory", cfg.Storage.Local.Dir))
	}

	results = append(results,
		CheckNewsCredentials(cfg.News),
		CheckCredential("LLM API key", cfg.LLM.APIKey, "llm.api_key or OPENAI_API_KEY"),
		CheckCredential("TTS API key", cfg.TTS.APIKey, "tts.api_key or ELEVEN_LABS_API_KEY"),
		CheckStorage(cfg.Storage),
	)

	if cfg.Audio.ConcatMode == config.ConcatFFmpeg {
		for _, status := range CheckSystemDeps(ctx, cfg) {
			r := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
			if status.Optional && !status.Available {
				r.Passed = true
			}
			if r.Passed && r.Detail == "" {
				r.Detail = status.Path
			}
			results = append(results, r)
		}
	}
	return results
}

// Failed returns only the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// CheckCredential reports whether a secret is present without revealing it.
func CheckCredential(name, value, hint string) Result {
	if strings.TrimSpace(value) == "" {
		return Result{Name: name, Detail: "missing (set " + hint + ")"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckNewsCredentials validates the headline provider settings.
func CheckNewsCredentials(news config.News) Result {
	const name = "News provider"
	switch news.Provider {
	case config.NewsProviderRSS:
		if len(news.Feeds) == 0 {
			return Result{Name: name, Detail: "rss provider has no news.feeds"}
		}
		return Result{Name: name, Passed: true, Detail: "rss"}
	default:
		if strings.TrimSpace(news.APIKey) == "" {
			return Result{Name: name, Detail: "newsapi key missing (set news.api_key or NEWS_API_KEY)"}
		}
		return Result{Name: name, Passed: true, Detail: "newsapi"}
	}
}

// CheckStorage validates that the selected backend has what it needs to
// connect. It does not contact the backend.
func CheckStorage(storage config.Storage) Result {
	name := "Storage (" + storage.Backend + ")"
	switch storage.Backend {
	case config.StorageAzure:
		if storage.Azure.ConnectionString == "" && storage.Azure.AccountURL == "" {
			return Result{Name: name, Detail: "set storage.azure.connection_string or storage.azure.account_url"}
		}
		if storage.Azure.Container == "" {
			return Result{Name: name, Detail: "storage.azure.container is empty"}
		}
		return Result{Name: name, Passed: true, Detail: "container " + storage.Azure.Container}
	case config.StorageSupabase:
		if storage.Supabase.URL == "" || storage.Supabase.Key == "" {
			return Result{Name: name, Detail: "set storage.supabase.url and storage.supabase.key"}
		}
		return Result{Name: name, Passed: true, Detail: "bucket " + storage.Supabase.Bucket}
	default:
		if storage.Local.PublicBaseURL == "" {
			return Result{Name: name, Passed: true, Detail: "file URLs (no public_base_url)"}
		}
		return Result{Name: name, Passed: true, Detail: storage.Local.PublicBaseURL}
	}
}
