package headlines

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NewsAPIConfig configures the NewsAPI top-headlines source.
type NewsAPIConfig struct {
	APIKey  string
	BaseURL string
	Sources []string
}

// NewsAPI reads top headlines from newsapi.org (or a compatible endpoint).
type NewsAPI struct {
	cfg    NewsAPIConfig
	client *http.Client
}

// NewNewsAPI constructs the source. A nil client uses http.DefaultClient.
func NewNewsAPI(cfg NewsAPIConfig, client *http.Client) *NewsAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &NewsAPI{cfg: cfg, client: client}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch returns up to pageSize headlines in provider rank order.
func (n *NewsAPI) Fetch(ctx context.Context, pageSize int) ([]Headline, error) {
	endpoint, err := url.Parse(n.cfg.BaseURL)
	if err != nil {
		return nil, &FetchError{Provider: "newsapi", Err: err}
	}
	query := endpoint.Query()
	query.Set("sources", strings.Join(n.cfg.Sources, ","))
	query.Set("pageSize", strconv.Itoa(pageSize))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &FetchError{Provider: "newsapi", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &FetchError{Provider: "newsapi", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &FetchError{Provider: "newsapi", StatusCode: resp.StatusCode, Err: err}
	}

	var payload newsAPIResponse
	decodeErr := json.Unmarshal(body, &payload)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{
			Provider:   "newsapi",
			StatusCode: resp.StatusCode,
			Code:       payload.Code,
			Message:    payload.Message,
		}
	}
	if decodeErr != nil {
		return nil, &FetchError{Provider: "newsapi", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if payload.Status != "ok" {
		return nil, &FetchError{
			Provider:   "newsapi",
			StatusCode: resp.StatusCode,
			Code:       firstNonEmpty(payload.Code, payload.Status),
			Message:    payload.Message,
		}
	}

	out := make([]Headline, 0, len(payload.Articles))
	for _, article := range payload.Articles {
		published, _ := time.Parse(time.RFC3339, article.PublishedAt)
		out = append(out, Headline{
			Source:      firstNonEmpty(article.Source.Name, article.Source.ID),
			Title:       strings.TrimSpace(article.Title),
			Description: strings.TrimSpace(article.Description),
			URL:         strings.TrimSpace(article.URL),
			PublishedAt: published,
		})
	}
	if pageSize > 0 && len(out) > pageSize {
		out = out[:pageSize]
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
