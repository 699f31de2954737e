package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/super-wire/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	defaultBaseURL     = "https://api.openai.com/v1/completions"
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible completion endpoint. Endpoints whose path
// ends in /chat/completions receive the chat schema; anything else receives
// the text completion schema.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Temperature:    cfg.Temperature,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Request is a single completion call.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Completion holds the usable (non-blank) choices returned by the backend.
type Completion struct {
	Choices      []string
	FinishReason string
}

// Text returns the first usable choice.
func (c Completion) Text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0]
}

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

// Complete issues one completion request. It performs no retries; callers
// wrap it in a retry policy and use IsRetryable as the classifier.
func (c *Client) Complete(ctx context.Context, req Request) (Completion, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Completion{}, services.Wrap(services.ErrValidation, "llm", "complete", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return Completion{}, services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}
	if req.MaxTokens <= 0 {
		return Completion{}, services.Wrap(services.ErrValidation, "llm", "complete", "max tokens must be positive", nil)
	}

	var payload any
	if c.chatEndpoint() {
		payload = chatCompletionRequest{
			Model:       c.cfg.Model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   req.MaxTokens,
			Temperature: c.cfg.Temperature,
		}
	} else {
		payload = textCompletionRequest{
			Model:       c.cfg.Model,
			Prompt:      prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: c.cfg.Temperature,
		}
	}

	completion, err := c.send(ctx, payload)
	if err != nil {
		return Completion{}, err
	}
	out := Completion{}
	for _, choice := range completion.Choices {
		if out.FinishReason == "" {
			out.FinishReason = strings.TrimSpace(choice.FinishReason)
		}
		if text := firstNonEmpty(choice.Text, choice.Message.Content, choice.Delta.Content); text != "" {
			out.Choices = append(out.Choices, text)
		}
	}
	return out, nil
}

func (c *Client) chatEndpoint() bool {
	parsed, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.TrimRight(parsed.Path, "/"), "/chat/completions")
}

type textCompletionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Text         string      `json:"text"`
		Message      chatMessage `json:"message"`
		Delta        chatMessage `json:"delta"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) send(ctx context.Context, payload any) (completionResponse, error) {
	var completion completionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, fmt.Errorf("llm request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return completion, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, fmt.Errorf("llm request: decode response (%s): %w", summarizePayloadSnippet(string(body)), err)
	}
	if completion.Error != nil {
		return completion, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, nil
}

// IsRetryable classifies a Complete error. Throttling, server errors,
// timeouts, transport failures and malformed bodies are retryable; client
// errors such as bad credentials, missing configuration and cancellation are
// not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || (errors.Is(err, context.DeadlineExceeded) && !isTimeout(err)) {
		return false
	}
	if !services.IsRetryable(err) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusConflict,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	return true
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
