package daemon_test

import (
	"context"
	"testing"

	"github.com/phrazzld/super-wire/internal/daemon"
	"github.com/phrazzld/super-wire/internal/ledger"
	"github.com/phrazzld/super-wire/internal/pipeline"
	"github.com/phrazzld/super-wire/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := pipeline.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("pipeline.Build: %v", err)
	}
	testsupport.BeginRun(t, rt.Ledger, "2026-03-14T09:30:00.000Z")

	d, err := daemon.New(cfg, rt, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LedgerPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected paths in status: %+v", status)
	}

	run, err := rt.Ledger.Get(ctx, "2026-03-14T09:30:00.000Z")
	if err != nil {
		t.Fatalf("ledger get: %v", err)
	}
	if run.Status != ledger.StatusFailed || run.ErrorMessage != ledger.InterruptedReason {
		t.Fatalf("interrupted run not closed at startup: %+v", run)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondDaemonRefusesSameStateDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	ctx := context.Background()

	first, err := pipeline.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("pipeline.Build: %v", err)
	}
	d1, err := daemon.New(cfg, first, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d1.Close() })
	if err := d1.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}

	second, err := pipeline.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("pipeline.Build: %v", err)
	}
	d2, err := daemon.New(cfg, second, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d2.Close() })
	if err := d2.Start(ctx); err == nil {
		t.Fatal("expected second daemon to be refused")
	}
}

func TestSendTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ok, msg, err := daemon.SendTestNotification(context.Background(), cfg)
	if ok || err != nil {
		t.Fatalf("expected skip without topic, got ok=%v err=%v", ok, err)
	}
	if msg != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", msg)
	}
}
