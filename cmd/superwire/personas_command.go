package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/script"
)

type personaView struct {
	Role        string `json:"role"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	VoiceID     string `json:"voiceId"`
	Reads       string `json:"reads"`
	Personality string `json:"personality,omitempty"`
}

func newPersonasCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "Show the cast and which segments each persona reads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cast, err := script.CastFromConfig(cfg)
			if err != nil {
				return err
			}
			views := []personaView{
				castView("anchor", cast.Anchor, "intro, conclusion"),
				castView("field_a", cast.FieldA, "stories 1, 3, 5, ..."),
				castView("field_b", cast.FieldB, "stories 2, 4, 6, ..."),
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Role, v.ID, v.Name, v.VoiceID, v.Reads})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Role", "ID", "Name", "Voice", "Reads"}, rows, nil))
			return nil
		},
	}
}

func castView(role string, p script.Persona, reads string) personaView {
	return personaView{
		Role:        role,
		ID:          p.ID,
		Name:        p.Name,
		VoiceID:     p.VoiceID,
		Reads:       reads,
		Personality: p.Personality,
	}
}
