package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phrazzld/super-wire/internal/daemon"
	"github.com/phrazzld/super-wire/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the episodes HTTP API",
		Long: "Serve GET /episodes (published episodes) and POST /episodes (run the\n" +
			"pipeline once). Runs until interrupted; an in-flight run is cancelled\n" +
			"and recorded as failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if trimmed := strings.TrimSpace(bind); trimmed != "" {
				cfg.Paths.APIBind = trimmed
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, logger, err := ctx.buildRuntime(runCtx)
			if err != nil {
				return err
			}
			d, err := daemon.New(cfg, rt, logger)
			if err != nil {
				_ = rt.Close()
				return err
			}
			defer d.Close()

			if ctx.configSeen {
				logger.Info("configuration loaded", logging.String("path", ctx.configPath))
			} else {
				logger.Info("no configuration file found; using defaults", logging.String("expected", ctx.configPath))
			}

			if err := d.Serve(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("superwire shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind (host:port)")
	return cmd
}
