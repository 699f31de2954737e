package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/phrazzld/super-wire/internal/api"
	"github.com/phrazzld/super-wire/internal/config"
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/logging"
	"github.com/phrazzld/super-wire/internal/notifications"
	"github.com/phrazzld/super-wire/internal/pipeline"
	"github.com/phrazzld/super-wire/internal/preflight"
	"github.com/phrazzld/super-wire/internal/storage"
)

// LockFile is the single-instance lock name under the state directory.
const LockFile = "superwire.lock"

// EpisodeService is the part of the pipeline the API serves.
type EpisodeService interface {
	Generate(ctx context.Context) (pipeline.Result, error)
	ListEpisodes(ctx context.Context) ([]storage.Episode, error)
}

// RunLister reads the run ledger.
type RunLister interface {
	List(ctx context.Context, limit int, statuses ...ledger.Status) ([]*ledger.Run, error)
}

// Daemon owns the serve lifecycle.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	runtime *pipeline.Runtime
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon over an already built runtime.
func New(cfg *config.Config, rt *pipeline.Runtime, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || rt == nil {
		return nil, errors.New("daemon requires config and pipeline runtime")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	lockPath := filepath.Join(cfg.Paths.StateDir, LockFile)
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		runtime:  rt,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	var runs RunLister
	if rt.Ledger != nil {
		runs = rt.Ledger
	}
	d.api = newAPIServer(cfg.Paths.APIBind, cfg.Paths.APIToken, rt, runs, d.Status, logger)
	d.api.logPath = logging.FilePath(cfg)
	return d, nil
}

// Start acquires the instance lock and performs startup housekeeping.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another superwire server is already running for this state directory")
	}

	d.housekeeping(ctx)
	d.running.Store(true)
	d.logger.Info("superwire daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Serve starts the daemon and the HTTP API and blocks until ctx is done
// or the listener fails. The lock is released on return.
func (d *Daemon) Serve(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()
	return d.api.serve(ctx)
}

// Stop releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("superwire daemon stopped")
}

// Close stops the daemon and releases the runtime.
func (d *Daemon) Close() error {
	d.Stop()
	return d.runtime.Close()
}

// Addr returns the bound API address once Serve is listening.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

func (d *Daemon) housekeeping(ctx context.Context) {
	if d.runtime.Ledger != nil {
		n, err := d.runtime.Ledger.FailInterrupted(ctx)
		switch {
		case err != nil:
			logging.WarnWithContext(d.logger, "could not close interrupted runs", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		case n > 0:
			d.logger.Info("marked interrupted runs as failed", logging.Int64("runs", n))
		}
	}

	swept := d.runtime.SweepStale()
	if len(swept.Removed) > 0 || len(swept.Errors) > 0 {
		d.logger.Info("stale working files swept",
			logging.Int("removed", len(swept.Removed)),
			logging.Int("errors", len(swept.Errors)),
		)
	}

	for _, failed := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run superwire status for details"),
			logging.String(logging.FieldImpact, "episode generation may fail"),
		)
	}
	if d.runtime.CredentialsErr != nil {
		logging.WarnWithContext(d.logger, "generation disabled until credentials are configured", "credentials_missing",
			logging.Error(d.runtime.CredentialsErr),
			logging.String(logging.FieldErrorHint, "set the news, llm and tts api keys"),
			logging.String(logging.FieldImpact, "POST /episodes returns 500; listing still works"),
		)
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	checks, ready := api.FromChecks(preflight.RunAll(ctx, d.cfg))
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		WorkDir:      d.cfg.Paths.WorkDir,
		Storage:      d.cfg.Storage.Backend,
		Ready:        ready,
		Checks:       checks,
	}
	if d.runtime.Ledger != nil {
		status.LedgerPath = d.runtime.Ledger.Path()
	}
	return status
}

// SendTestNotification publishes a low-priority test event to the
// configured ntfy topic.
func SendTestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, notifications.Payload{}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
