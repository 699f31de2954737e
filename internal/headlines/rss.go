package headlines

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/phrazzld/super-wire/internal/httpclient"
)

// RSS reads headlines from RSS or Atom feeds. Items are taken feed by feed in
// configured order until the page is full. Stories repeated across feeds are
// kept only once.
type RSS struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewRSS constructs a feed source that fetches through client.
func NewRSS(feeds []string, client *httpclient.Client) *RSS {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client.HTTPClient()
		parser.UserAgent = client.UserAgent()
	}
	return &RSS{feeds: append([]string(nil), feeds...), parser: parser}
}

// Fetch returns up to pageSize items. Any feed that cannot be fetched or
// parsed fails the whole fetch.
func (r *RSS) Fetch(ctx context.Context, pageSize int) ([]Headline, error) {
	var out []Headline
	seen := newDeduper()
	for _, feedURL := range r.feeds {
		if pageSize > 0 && len(out) >= pageSize {
			break
		}
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			fetchErr := &FetchError{Provider: "rss", Message: feedURL, Err: err}
			var httpErr gofeed.HTTPError
			if errors.As(err, &httpErr) {
				fetchErr.StatusCode = httpErr.StatusCode
			}
			return nil, fetchErr
		}
		source := strings.TrimSpace(feed.Title)
		for _, item := range feed.Items {
			if pageSize > 0 && len(out) >= pageSize {
				break
			}
			if item == nil || strings.TrimSpace(item.Link) == "" {
				continue
			}
			headline := Headline{
				Source:      source,
				Title:       strings.TrimSpace(item.Title),
				Description: strings.TrimSpace(item.Description),
				URL:         strings.TrimSpace(item.Link),
				PublishedAt: publishedAt(item),
			}
			if !seen.keep(headline) {
				continue
			}
			out = append(out, headline)
		}
	}
	return out, nil
}

func publishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}
