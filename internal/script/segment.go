package script

import (
	"fmt"
	"sort"

	"github.com/phrazzld/super-wire/internal/headlines"
)

// Kind identifies the role a segment plays in an episode.
type Kind string

const (
	KindIntro      Kind = "intro"
	KindStory      Kind = "story"
	KindConclusion Kind = "conclusion"
)

// Stage returns the generation stage label used in errors and logs.
func (k Kind) Stage() string {
	if k == KindStory {
		return "segment"
	}
	return string(k)
}

// Segment is one scripted part of an episode. Ordinals are 0 for the intro,
// 1..N for stories in headline order and N+1 for the conclusion.
type Segment struct {
	Kind    Kind
	Ordinal int
	// StoryIndex is the zero-based headline position; -1 for intro and conclusion.
	StoryIndex int
	Persona    Persona
	Text       string
	Story      *headlines.Story
}

// Draft is the ordered script of one run. It is never persisted.
type Draft struct {
	RunID    string
	Segments []Segment
}

// StoryOrdinal returns the ordinal of the story at position i.
func StoryOrdinal(i int) int { return i + 1 }

// ConclusionOrdinal returns the ordinal of the conclusion for n stories.
func ConclusionOrdinal(n int) int { return n + 1 }

// Ordered returns the segments sorted by ordinal.
func (d Draft) Ordered() []Segment {
	out := append([]Segment(nil), d.Segments...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

// Validate checks the ordinal invariants: exactly one intro at 0, stories at
// 1..N in order, and one conclusion at N+1.
func (d Draft) Validate() error {
	segments := d.Ordered()
	if len(segments) < 2 {
		return fmt.Errorf("draft: expected intro and conclusion, got %d segments", len(segments))
	}
	n := len(segments) - 2
	for i, seg := range segments {
		if seg.Ordinal != i {
			return fmt.Errorf("draft: ordinal gap at %d (found %d)", i, seg.Ordinal)
		}
		want := KindStory
		switch i {
		case 0:
			want = KindIntro
		case n + 1:
			want = KindConclusion
		}
		if seg.Kind != want {
			return fmt.Errorf("draft: segment %d is %s, want %s", i, seg.Kind, want)
		}
	}
	return nil
}
