package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statuses []string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent pipeline runs from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			filters := make([]ledger.Status, 0, len(statuses))
			for _, raw := range statuses {
				status := ledger.Status(strings.ToLower(strings.TrimSpace(raw)))
				switch status {
				case ledger.StatusPending, ledger.StatusPublished, ledger.StatusFailed:
					filters = append(filters, status)
				case "":
				default:
					return fmt.Errorf("unknown status %q (want pending, published or failed)", raw)
				}
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit, filters...)
			if err != nil {
				return err
			}
			resp := api.FromRuns(runs)
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(resp.Runs))
			for _, run := range resp.Runs {
				detail := run.ArtifactKey
				if run.ErrorMessage != "" {
					detail = run.ErrorMessage
				}
				rows = append(rows, []string{
					run.ID,
					run.Status,
					run.StageLabel,
					strconv.Itoa(run.StoryCount),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Run", "Status", "Stage", "Stories", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, published, failed)")
	return cmd
}
