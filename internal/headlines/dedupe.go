package headlines

import (
	"math"
	"regexp"
	"strings"
)

// duplicateTitleSimilarity is the cosine similarity at which two titles are
// treated as the same story.
const duplicateTitleSimilarity = 0.8

var titleSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// titleVector is a term-frequency vector over a headline title.
type titleVector struct {
	terms map[string]float64
	norm  float64
}

func newTitleVector(title string) *titleVector {
	terms := make(map[string]float64)
	for _, token := range titleSplitPattern.Split(strings.ToLower(title), -1) {
		if len(token) < 3 {
			continue
		}
		terms[token]++
	}
	if len(terms) == 0 {
		return nil
	}
	var sum float64
	for _, count := range terms {
		sum += count * count
	}
	return &titleVector{terms: terms, norm: math.Sqrt(sum)}
}

func (v *titleVector) similarity(other *titleVector) float64 {
	if v == nil || other == nil {
		return 0
	}
	var dot float64
	for term, count := range v.terms {
		dot += count * other.terms[term]
	}
	return dot / (v.norm * other.norm)
}

// deduper drops headlines whose URL was already seen or whose title closely
// matches one already kept. Wire services syndicate the same story across
// feeds under near-identical titles.
type deduper struct {
	urls   map[string]struct{}
	titles []*titleVector
}

func newDeduper() *deduper {
	return &deduper{urls: make(map[string]struct{})}
}

// keep reports whether h is new and records it when it is.
func (d *deduper) keep(h Headline) bool {
	url := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h.URL)), "/")
	if _, seen := d.urls[url]; seen {
		return false
	}
	vector := newTitleVector(h.Title)
	for _, kept := range d.titles {
		if vector.similarity(kept) >= duplicateTitleSimilarity {
			return false
		}
	}
	d.urls[url] = struct{}{}
	if vector != nil {
		d.titles = append(d.titles, vector)
	}
	return true
}
