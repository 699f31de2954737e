package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/daemon"
	"github.com/phrazzld/super-wire/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkLLM bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, credentials and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if checkLLM {
				results = append(results, preflight.CheckLLM(cmd.Context(), cfg.LLM))
			}
			checks, ready := api.FromChecks(results)

			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					ConfigPath string            `json:"configPath"`
					ConfigFile bool              `json:"configFile"`
					Ready      bool              `json:"ready"`
					Checks     []api.CheckResult `json:"checks"`
				}{ctx.configPath, ctx.configSeen, ready, checks})
			}

			out := cmd.OutOrStdout()
			colorize := isTerminal(out)
			fmt.Fprintf(out, "Config: %s (file present: %s)\n", ctx.configPath, yesNo(ctx.configSeen))
			fmt.Fprintf(out, "Concat mode: %s, storage: %s\n", cfg.Audio.ConcatMode, cfg.Storage.Backend)
			for _, c := range checks {
				fmt.Fprintln(out, renderCheckLine(c.Name, c.Passed, c.Detail, colorize))
			}
			fmt.Fprintf(out, "Ready: %s\n", yesNo(ready))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkLLM, "check-llm", false, "Also send a one-token request to the LLM backend")
	return cmd
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sent, message, err := daemon.SendTestNotification(cmd.Context(), cfg)
			if message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), message)
			} else if !sent {
				fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
			}
			return err
		},
	}
}
