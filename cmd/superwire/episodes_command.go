package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/storage"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List published episodes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			bucket, err := storage.Open(cmd.Context(), cfg, logging.NewComponentLogger(logger, "cli"))
			if err != nil {
				return err
			}
			episodes, err := storage.Episodes(cmd.Context(), bucket, cfg.Audio.Extension)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, api.FromEpisodes(episodes))
			}
			out := cmd.OutOrStdout()
			if len(episodes) == 0 {
				fmt.Fprintln(out, "No episodes published")
				return nil
			}
			rows := make([][]string, 0, len(episodes))
			for _, ep := range episodes {
				published := "unknown"
				if !ep.PublishedAt.IsZero() {
					published = ep.PublishedAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{ep.Name, published, ep.URL})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Episode", "Published", "URL"}, rows, nil))
			return nil
		},
	}
}
