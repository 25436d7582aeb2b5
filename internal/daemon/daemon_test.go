package daemon_test

import (
	"context"
	"errors"
	"testing"

	"ytscribe/internal/daemon"
	"ytscribe/internal/logging"
	"ytscribe/internal/queue"
	"ytscribe/internal/services"
	"ytscribe/internal/testsupport"
	"ytscribe/internal/workflow"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, logging.NewNop(), nil, nil, nil)
	d, err := daemon.New(cfg, store, logging.NewNop(), manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start on the same daemon must fail")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
	// Stopping twice is harmless.
	d.Stop()
}

func TestDaemonEnqueueResolvesReference(t *testing.T) {
	d := newDaemon(t)
	job, err := d.Enqueue(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.VideoID != "dQw4w9WgXcQ" || job.Status != queue.StatusQueued {
		t.Fatalf("job = %+v", job)
	}

	if _, err := d.Enqueue(context.Background(), "not a video"); !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
