package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by RequireGenerationCredentials so read-only commands
// such as listing episodes work without generation keys.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNews(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCast(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireGenerationCredentials reports the first missing API key needed to
// produce an episode.
func (c *Config) RequireGenerationCredentials() error {
	if c.News.Provider == NewsProviderNewsAPI && c.News.APIKey == "" {
		return missingKey("news.api_key", "NEWS_API_KEY")
	}
	if c.LLM.APIKey == "" {
		return missingKey("llm.api_key", "OPENAI_API_KEY")
	}
	if c.TTS.APIKey == "" {
		return missingKey("tts.api_key", "ELEVEN_LABS_API_KEY")
	}
	return nil
}

func missingKey(key, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("%s is required. Set %s env var or edit %s (create with 'superwire config init')", key, env, defaultPath)
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateNews() error {
	switch c.News.Provider {
	case NewsProviderNewsAPI:
		if len(c.News.Sources) == 0 {
			return errors.New("news.sources must list at least one source for the newsapi provider")
		}
		if err := validateURL("news.base_url", c.News.BaseURL); err != nil {
			return err
		}
	case NewsProviderRSS:
		if len(c.News.Feeds) == 0 {
			return errors.New("news.feeds must list at least one feed for the rss provider")
		}
		for _, feed := range c.News.Feeds {
			if err := validateURL("news.feeds", feed); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("news.provider must be %q or %q, got %q", NewsProviderNewsAPI, NewsProviderRSS, c.News.Provider)
	}
	if c.News.PageSize <= 0 {
		return errors.New("news.page_size must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if c.LLM.ContextLimit < 100 {
		return errors.New("llm.context_limit must be at least 100")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.DelaySeconds < 0 {
		return errors.New("retry.delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateTTS() error {
	return validateURL("tts.base_url", c.TTS.BaseURL)
}

func (c *Config) validateAudio() error {
	switch c.Audio.ConcatMode {
	case ConcatNative:
		if c.Audio.Extension != "mp3" {
			return fmt.Errorf("audio.concat_mode %q only supports mp3 clips, got extension %q", ConcatNative, c.Audio.Extension)
		}
	case ConcatFFmpeg:
	default:
		return fmt.Errorf("audio.concat_mode must be %q or %q, got %q", ConcatNative, ConcatFFmpeg, c.Audio.ConcatMode)
	}
	if strings.ContainsAny(c.Audio.Extension, `/\ `) {
		return fmt.Errorf("audio.extension %q is not a valid file extension", c.Audio.Extension)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Local.Dir == "" {
			return errors.New("storage.local.dir must be set")
		}
		if c.Storage.Local.PublicBaseURL != "" {
			if err := validateURL("storage.local.public_base_url", c.Storage.Local.PublicBaseURL); err != nil {
				return err
			}
		}
	case StorageAzure:
		if c.Storage.Azure.ConnectionString == "" && c.Storage.Azure.AccountURL == "" {
			return errors.New("storage.azure requires connection_string (or AZURE_STORAGE_CONNECTION_STRING) or account_url")
		}
		if c.Storage.Azure.Container == "" {
			return errors.New("storage.azure.container must be set")
		}
	case StorageSupabase:
		if c.Storage.Supabase.URL == "" || c.Storage.Supabase.Key == "" {
			return errors.New("storage.supabase requires url and key (or SUPABASE_URL and SUPABASE_KEY)")
		}
		if c.Storage.Supabase.Bucket == "" {
			return errors.New("storage.supabase.bucket must be set")
		}
	default:
		return fmt.Errorf("storage.backend must be one of %q, %q, %q; got %q", StorageLocal, StorageAzure, StorageSupabase, c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateCast() error {
	seen := make(map[string]struct{}, len(c.Personas))
	for i, p := range c.Personas {
		if p.ID == "" {
			return fmt.Errorf("personas[%d].id must be set", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("personas[%d].id %q is duplicated", i, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Name == "" {
			return fmt.Errorf("personas[%d].name must be set", i)
		}
		if p.VoiceID == "" {
			return fmt.Errorf("personas[%d].voice_id must be set", i)
		}
	}
	slots := []struct {
		key string
		id  string
	}{
		{"hosts.anchor", c.Hosts.Anchor},
		{"hosts.field_a", c.Hosts.FieldA},
		{"hosts.field_b", c.Hosts.FieldB},
	}
	assigned := make(map[string]string, len(slots))
	for _, slot := range slots {
		if slot.id == "" {
			return fmt.Errorf("%s must be set", slot.key)
		}
		if _, ok := seen[slot.id]; !ok {
			return fmt.Errorf("%s references unknown persona %q", slot.key, slot.id)
		}
		if other, dup := assigned[slot.id]; dup {
			return fmt.Errorf("%s and %s must name different personas", other, slot.key)
		}
		assigned[slot.id] = slot.key
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s %q: %w", key, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s %q must be an http(s) URL", key, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s %q is missing a host", key, raw)
	}
	return nil
}
