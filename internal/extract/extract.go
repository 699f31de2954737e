// Package extract pulls best-effort article text out of a headline's page.
//
// Extraction never fails a run. The selector cascade is tried first, then a
// readability pass, then the caller's fallback text (the headline
// description). Every degradation is logged.
package extract

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/phrazzld/super-wire/internal/logging"
)

// Selectors is the article container cascade, most specific page layouts last.
var Selectors = []string{"article", ".Article", ".article", ".ArticleBody", ".article-body"}

// Fetcher downloads a page body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Method records which step produced the text.
type Method string

const (
	MethodSelector    Method = "selector"
	MethodReadability Method = "readability"
	MethodFallback    Method = "fallback"
)

// Result is the normalized text plus how it was obtained.
type Result struct {
	Text     string
	Method   Method
	Selector string
}

// Extractor turns article URLs into plain text.
type Extractor struct {
	fetcher Fetcher
	logger  *slog.Logger
	// Readability enables the readability pass between the selector cascade
	// and the fallback.
	Readability bool
}

// New constructs an extractor.
func New(fetcher Fetcher, logger *slog.Logger) *Extractor {
	return &Extractor{
		fetcher:     fetcher,
		logger:      logging.NewComponentLogger(logger, "extract"),
		Readability: true,
	}
}

// Extract returns normalized article text for rawURL, degrading to fallback.
func (e *Extractor) Extract(ctx context.Context, rawURL, fallback string) string {
	return e.ExtractDetailed(ctx, rawURL, fallback).Text
}

// ExtractDetailed is Extract with provenance.
func (e *Extractor) ExtractDetailed(ctx context.Context, rawURL, fallback string) Result {
	logger := logging.WithContext(ctx, e.logger).With(logging.String("url", rawURL))

	if strings.TrimSpace(rawURL) == "" || e.fetcher == nil {
		logging.WarnWithContext(logger, "no article url; using description", "extract_fallback",
			logging.String(logging.FieldErrorHint, "headline had no link"),
			logging.String(logging.FieldImpact, "story segment is written from the description"))
		return Result{Text: Normalize(fallback), Method: MethodFallback}
	}

	page, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		logging.WarnWithContext(logger, "article fetch failed; using description", "extract_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "publisher may block automated clients"),
			logging.String(logging.FieldImpact, "story segment is written from the description"))
		return Result{Text: Normalize(fallback), Method: MethodFallback}
	}

	if text, selector, ok := cascade(page); ok {
		if normalized := Normalize(text); normalized != "" {
			logger.Debug("article extracted", logging.String("selector", selector), logging.Int("chars", len(normalized)))
			return Result{Text: normalized, Method: MethodSelector, Selector: selector}
		}
	}

	if e.Readability {
		if text, ok := readable(page, rawURL); ok {
			logger.Info("selector cascade missed; readability succeeded",
				logging.String(logging.FieldEventType, "extract_readability"),
				logging.Int("chars", len(text)))
			return Result{Text: text, Method: MethodReadability}
		}
	}

	logging.WarnWithContext(logger, "no article content found; using description", "extract_fallback",
		logging.String(logging.FieldErrorHint, "page layout not covered by selectors"),
		logging.String(logging.FieldImpact, "story segment is written from the description"))
	return Result{Text: Normalize(fallback), Method: MethodFallback}
}

func cascade(page []byte) (string, string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", "", false
	}
	for _, selector := range Selectors {
		if text := doc.Find(selector).Text(); strings.TrimSpace(text) != "" {
			return text, selector, true
		}
	}
	return "", "", false
}

func readable(page []byte, rawURL string) (string, bool) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return "", false
	}
	text := Normalize(article.TextContent)
	return text, text != ""
}
