// Package tts is a thin ElevenLabs-compatible text-to-speech client.
//
// Synthesize posts narration text for one voice and returns the raw audio
// bytes. There is no retry: a failed call aborts the run so segments are
// never skipped or reordered.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.elevenlabs.io/v1/text-to-speech"
	defaultHTTPTimeout = 120 * time.Second
	maxAudioBytes      = 64 << 20
)

// Config captures the voice backend settings.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	TimeoutSeconds int
}

// Client calls the text-to-speech endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	maxAudio   int64
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxAudioBytes caps the accepted response size. Larger responses fail
// instead of being truncated.
func WithMaxAudioBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAudio = n
		}
	}
}

// NewClient constructs a client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ModelID: strings.TrimSpace(cfg.ModelID),
		},
		httpClient: &http.Client{Timeout: timeout},
		maxAudio:   maxAudioBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	return c
}

// SynthesisError reports a failed synthesis call.
type SynthesisError struct {
	VoiceID    string
	StatusCode int
	Body       string
	Err        error
}

func (e *SynthesisError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("synthesize voice %s: http %d: %s", e.VoiceID, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("synthesize voice %s: %v", e.VoiceID, e.Err)
	default:
		return fmt.Sprintf("synthesize voice %s: failed", e.VoiceID)
	}
}

func (e *SynthesisError) Unwrap() error { return e.Err }

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize converts text to audio in the given voice.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return nil, &SynthesisError{Err: fmt.Errorf("voice id required")}
	}
	if c.cfg.APIKey == "" {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("api key required")}
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, url.PathEscape(voiceID))
	if err != nil {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("build url: %w", err)}
	}
	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.cfg.ModelID})
	if err != nil {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("encode body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &SynthesisError{VoiceID: voiceID, Err: err}
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{VoiceID: voiceID, Err: err}
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(io.LimitReader(resp.Body, c.maxAudio+1))
	if err != nil {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("read audio: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SynthesisError{VoiceID: voiceID, StatusCode: resp.StatusCode, Body: snippet(audio)}
	}
	if int64(len(audio)) > c.maxAudio {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("audio response exceeds %d bytes", c.maxAudio)}
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{VoiceID: voiceID, Err: fmt.Errorf("empty audio response")}
	}
	return audio, nil
}

func snippet(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	if len(clean) > 160 {
		return clean[:160] + "..."
	}
	return clean
}
