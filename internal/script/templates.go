package script

import (
	_ "embed"
	"strings"
)

// Template placeholders.
const (
	PlaceholderPersonality = "{HOST_PERSONALITY}"
	PlaceholderName        = "{HOST_NAME}"
	PlaceholderHeadlines   = "{HEADLINES}"
	PlaceholderStory       = "{STORY}"
	PlaceholderDate        = "{DATE}"
	placeholderShow        = "{SHOW}"
)

var (
	//go:embed prompts/show.txt
	showDescription string
	//go:embed prompts/intro.txt
	introTemplate string
	//go:embed prompts/segment.txt
	segmentTemplate string
	//go:embed prompts/outro.txt
	outroTemplate string
)

// Templates holds the prompt text for each segment kind.
type Templates struct {
	Intro      string
	Segment    string
	Conclusion string
}

// DefaultTemplates returns the built-in prompts.
func DefaultTemplates() Templates {
	show := strings.TrimSpace(showDescription)
	expand := func(t string) string {
		return strings.TrimSpace(strings.ReplaceAll(t, placeholderShow, show))
	}
	return Templates{
		Intro:      expand(introTemplate),
		Segment:    expand(segmentTemplate),
		Conclusion: expand(outroTemplate),
	}
}

// Bindings maps placeholders (e.g. "{HEADLINES}") to their values.
type Bindings map[string]string

// Render substitutes the persona and bindings into template. Persona
// placeholders are replaced first so a binding value can never inject one.
func Render(template string, persona Persona, bindings Bindings) string {
	out := strings.NewReplacer(
		PlaceholderPersonality, persona.Personality,
		PlaceholderName, persona.Name,
	).Replace(template)
	if len(bindings) == 0 {
		return out
	}
	pairs := make([]string, 0, len(bindings)*2)
	for key, value := range bindings {
		pairs = append(pairs, key, value)
	}
	return strings.NewReplacer(pairs...).Replace(out)
}
