package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNews()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeAudio()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizePersonas()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = envFallback(c.Paths.APIToken, "SUPERWIRE_API_TOKEN")
	return nil
}

func (c *Config) normalizeNews() {
	c.News.Provider = strings.ToLower(strings.TrimSpace(c.News.Provider))
	if c.News.Provider == "" {
		c.News.Provider = defaultNewsProvider
	}
	c.News.APIKey = envFallback(c.News.APIKey, "NEWS_API_KEY")
	c.News.BaseURL = strings.TrimSpace(c.News.BaseURL)
	if c.News.BaseURL == "" {
		c.News.BaseURL = defaultNewsBaseURL
	}
	c.News.Sources = compactStrings(c.News.Sources)
	if len(c.News.Sources) == 0 {
		c.News.Sources = append([]string(nil), defaultNewsSources...)
	}
	c.News.Feeds = compactStrings(c.News.Feeds)
	if c.News.TimeoutSeconds <= 0 {
		c.News.TimeoutSeconds = defaultNewsTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envFallback(c.LLM.APIKey, "OPENAI_API_KEY")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = envFallback(c.TTS.APIKey, "ELEVEN_LABS_API_KEY")
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.ModelID = strings.TrimSpace(c.TTS.ModelID)
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Extension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Audio.Extension)), ".")
	if c.Audio.Extension == "" {
		c.Audio.Extension = defaultAudioExtension
	}
	c.Audio.ConcatMode = strings.ToLower(strings.TrimSpace(c.Audio.ConcatMode))
	if c.Audio.ConcatMode == "" {
		c.Audio.ConcatMode = defaultConcatMode
	}
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Audio.FFprobeBinary) == "" {
		c.Audio.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	var err error
	if strings.TrimSpace(c.Storage.Local.Dir) == "" {
		c.Storage.Local.Dir = defaultLocalStorageDir
	}
	if c.Storage.Local.Dir, err = expandPath(c.Storage.Local.Dir); err != nil {
		return fmt.Errorf("storage.local.dir: %w", err)
	}
	c.Storage.Local.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.Local.PublicBaseURL), "/")

	c.Storage.Azure.ConnectionString = envFallback(c.Storage.Azure.ConnectionString, "AZURE_STORAGE_CONNECTION_STRING")
	c.Storage.Azure.AccountURL = strings.TrimSpace(c.Storage.Azure.AccountURL)
	c.Storage.Azure.Container = strings.TrimSpace(c.Storage.Azure.Container)
	if c.Storage.Azure.Container == "" {
		c.Storage.Azure.Container = defaultAzureContainer
	}

	c.Storage.Supabase.URL = envFallback(c.Storage.Supabase.URL, "SUPABASE_URL")
	c.Storage.Supabase.Key = envFallback(c.Storage.Supabase.Key, "SUPABASE_KEY")
	c.Storage.Supabase.Bucket = strings.TrimSpace(c.Storage.Supabase.Bucket)
	if c.Storage.Supabase.Bucket == "" {
		c.Storage.Supabase.Bucket = defaultSupabaseBucket
	}
	return nil
}

func (c *Config) normalizePersonas() {
	if len(c.Personas) == 0 {
		c.Personas = DefaultPersonas()
	}
	for i := range c.Personas {
		c.Personas[i].ID = strings.ToLower(strings.TrimSpace(c.Personas[i].ID))
		c.Personas[i].Name = strings.TrimSpace(c.Personas[i].Name)
		c.Personas[i].VoiceID = strings.TrimSpace(c.Personas[i].VoiceID)
		c.Personas[i].Personality = strings.TrimSpace(c.Personas[i].Personality)
	}
	c.Hosts.Anchor = strings.ToLower(strings.TrimSpace(c.Hosts.Anchor))
	c.Hosts.FieldA = strings.ToLower(strings.TrimSpace(c.Hosts.FieldA))
	c.Hosts.FieldB = strings.ToLower(strings.TrimSpace(c.Hosts.FieldB))
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func compactStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
