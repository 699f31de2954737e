package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on POST /episodes.
	APIToken string `toml:"api_token"`
}

// News contains configuration for the headline source.
type News struct {
	Provider       string   `toml:"provider"`
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Sources        []string `toml:"sources"`
	Feeds          []string `toml:"feeds"`
	PageSize       int      `toml:"page_size"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// LLM contains the generative text backend settings.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	ContextLimit   int     `toml:"context_limit"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Retry controls the fixed-delay retry policy applied to script generation.
type Retry struct {
	MaxAttempts  int `toml:"max_attempts"`
	DelaySeconds int `toml:"delay_seconds"`
}

// TTS contains the voice synthesis backend settings.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio controls clip naming and stitching.
type Audio struct {
	Extension     string `toml:"extension"`
	ConcatMode    string `toml:"concat_mode"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// LocalStorage publishes episodes into a directory served elsewhere.
type LocalStorage struct {
	Dir           string `toml:"dir"`
	PublicBaseURL string `toml:"public_base_url"`
}

// AzureStorage publishes episodes into an Azure Blob Storage container.
type AzureStorage struct {
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	Container        string `toml:"container"`
}

// SupabaseStorage publishes episodes into a Supabase storage bucket.
type SupabaseStorage struct {
	URL    string `toml:"url"`
	Key    string `toml:"key"`
	Bucket string `toml:"bucket"`
}

// Storage selects and configures the durable episode store.
type Storage struct {
	Backend  string          `toml:"backend"`
	Local    LocalStorage    `toml:"local"`
	Azure    AzureStorage    `toml:"azure"`
	Supabase SupabaseStorage `toml:"supabase"`
}

// Pipeline contains run-level behaviour switches.
type Pipeline struct {
	SerializeRuns bool `toml:"serialize_runs"`
}

// Persona describes one on-air host.
type Persona struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	VoiceID     string `toml:"voice_id"`
	Personality string `toml:"personality"`
}

// Hosts assigns persona IDs to the anchor and the two alternating field slots.
type Hosts struct {
	Anchor string `toml:"anchor"`
	FieldA string `toml:"field_a"`
	FieldB string `toml:"field_b"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Super Wire.
//
// Configuration sections by subsystem:
//   - Paths: working, state and log directories plus the API bind address
//   - News: headline provider (NewsAPI or RSS feeds)
//   - LLM: generative text backend used to write the script
//   - Retry: fixed-delay retry policy around generation
//   - TTS: voice synthesis backend
//   - Audio: clip extension and stitching mode
//   - Storage: durable episode store (local, azure, supabase)
//   - Pipeline: run serialization
//   - Personas/Hosts: the cast and who reads which segment
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	News          News          `toml:"news"`
	LLM           LLM           `toml:"llm"`
	Retry         Retry         `toml:"retry"`
	TTS           TTS           `toml:"tts"`
	Audio         Audio         `toml:"audio"`
	Storage       Storage       `toml:"storage"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Personas      []Persona     `toml:"personas"`
	Hosts         Hosts         `toml:"hosts"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// List values in the file replace the defaults rather than merge with them.
		cfg.Personas = nil
		cfg.News.Sources = nil

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("superwire.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageLocal && strings.TrimSpace(c.Storage.Local.Dir) != "" {
		if err := os.MkdirAll(c.Storage.Local.Dir, 0o755); err != nil {
			return fmt.Errorf("create storage directory %q: %w", c.Storage.Local.Dir, err)
		}
	}
	return nil
}

// PersonaByID returns the configured persona with the given id.
func (c *Config) PersonaByID(id string) (Persona, bool) {
	id = strings.TrimSpace(id)
	for _, p := range c.Personas {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return Persona{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
