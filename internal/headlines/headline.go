// Package headlines fetches the ranked list of current news headlines that
// seeds an episode.
package headlines

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Headline is one ranked news item as reported by the provider.
type Headline struct {
	Source      string
	Title       string
	Description string
	URL         string
	PublishedAt time.Time
}

// Story is a headline with its extracted article body. Stories are read-only
// once extraction finishes.
type Story struct {
	Headline
	Content string
}

// Line renders the headline the way prompts list it.
func (h Headline) Line() string {
	return strings.TrimSpace(h.Title) + " :: " + strings.TrimSpace(h.Description)
}

// Source returns the ranked headlines for one run.
type Source interface {
	Fetch(ctx context.Context, pageSize int) ([]Headline, error)
}

// FetchError reports a failed or non-success upstream response. It is fatal
// to the run.
type FetchError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fetch headlines from %s", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, ": %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Lines renders headlines one per line for prompt bindings.
func Lines(items []Headline) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.Line())
	}
	return strings.Join(lines, "\n")
}
