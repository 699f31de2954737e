package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/api"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once and publish an episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, _, err := ctx.buildRuntime(runCtx)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.Generate(runCtx)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.FromResult(result))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Key)
			fmt.Fprintf(out, "URL: %s\n", result.URL)
			fmt.Fprintf(out, "Stories: %d\n", result.Stories)
			if result.CleanupErr != nil {
				fmt.Fprintf(out, "Cleanup incomplete: %v\n", result.CleanupErr)
			}
			return nil
		},
	}
}
