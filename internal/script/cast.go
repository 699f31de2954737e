package script

import (
	"fmt"
	"strings"

	"github.com/phrazzld/super-wire/internal/config"
)

// Persona is an on-air host.
type Persona struct {
	ID          string
	Name        string
	VoiceID     string
	Personality string
}

// Cast assigns personas to segments. The anchor reads the intro and the
// conclusion; story segments alternate between the two field reporters,
// starting with FieldA. The same assignment drives voice selection.
type Cast struct {
	Anchor Persona
	FieldA Persona
	FieldB Persona
}

// NewCast validates and builds a cast.
func NewCast(anchor, fieldA, fieldB Persona) (Cast, error) {
	cast := Cast{Anchor: anchor, FieldA: fieldA, FieldB: fieldB}
	seen := map[string]string{}
	for _, slot := range []struct {
		name string
		p    Persona
	}{{"anchor", anchor}, {"field_a", fieldA}, {"field_b", fieldB}} {
		id := strings.TrimSpace(slot.p.ID)
		if id == "" {
			return Cast{}, fmt.Errorf("cast: %s persona has no id", slot.name)
		}
		if strings.TrimSpace(slot.p.VoiceID) == "" {
			return Cast{}, fmt.Errorf("cast: %s persona %q has no voice id", slot.name, id)
		}
		if other, dup := seen[id]; dup {
			return Cast{}, fmt.Errorf("cast: %s and %s both use persona %q", other, slot.name, id)
		}
		seen[id] = slot.name
	}
	return cast, nil
}

// CastFromConfig resolves the configured host slots against the persona list.
func CastFromConfig(cfg *config.Config) (Cast, error) {
	lookup := func(slot, id string) (Persona, error) {
		p, ok := cfg.PersonaByID(id)
		if !ok {
			return Persona{}, fmt.Errorf("cast: %s references unknown persona %q", slot, id)
		}
		return Persona{ID: p.ID, Name: p.Name, VoiceID: p.VoiceID, Personality: p.Personality}, nil
	}
	anchor, err := lookup("hosts.anchor", cfg.Hosts.Anchor)
	if err != nil {
		return Cast{}, err
	}
	fieldA, err := lookup("hosts.field_a", cfg.Hosts.FieldA)
	if err != nil {
		return Cast{}, err
	}
	fieldB, err := lookup("hosts.field_b", cfg.Hosts.FieldB)
	if err != nil {
		return Cast{}, err
	}
	return NewCast(anchor, fieldA, fieldB)
}

// ForStory returns the persona for the story at zero-based position i.
func (c Cast) ForStory(i int) Persona {
	if i%2 == 0 {
		return c.FieldA
	}
	return c.FieldB
}
