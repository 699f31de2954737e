package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	lineBreaks      = regexp.MustCompile(`\r\n|\n|\r`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	markupTags      = regexp.MustCompile(`<[^>]*>`)
	boilerplateText = []string{"ADVERTISEMENT"}
)

// Normalize flattens extracted article text for prompting: compatibility
// forms are folded (NFKC), line breaks removed, markup tags and boilerplate
// tokens stripped, whitespace runs collapsed to one space, and the result
// trimmed. Collapsing runs last so a stripped token leaves no double space.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = lineBreaks.ReplaceAllString(text, "")
	text = markupTags.ReplaceAllString(text, "")
	for _, token := range boilerplateText {
		text = strings.ReplaceAll(text, token, "")
	}
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
