package daemon_test

import (
	"context"
	"testing"

	"barista/internal/blend"
	"barista/internal/daemon"
	"barista/internal/machine"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/recommend"
	machinectl "barista/internal/services/machine"
	"barista/internal/testsupport"
	"barista/internal/workflow"
)

type idleCompleter struct{}

func (idleCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return "{}", nil
}

func (idleCompleter) HealthCheck(context.Context) error { return nil }

type idleRunner struct{}

func (idleRunner) Run(_ context.Context, _ int64, commands []string) ([]machinectl.Ack, error) {
	acks := make([]machinectl.Ack, len(commands))
	for i, cmd := range commands {
		acks[i] = machinectl.Ack{Command: cmd, Status: "ok"}
	}
	return acks, nil
}

func (idleRunner) HealthCheck(context.Context) error { return nil }

func newTestDaemon(t *testing.T, store *queue.Store) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if store == nil {
		store = testsupport.MustOpenStore(t, cfg)
	}

	profiles := profile.NewService(store, cfg, nil)
	manager := workflow.NewManager(cfg, store, nil)
	manager.Configure(workflow.StageSet{
		Profiler:    profile.NewProfiler(profiles, nil),
		Recommender: recommend.NewRecommender(idleCompleter{}, cfg, nil),
		Blender:     blend.NewBlender(store, cfg, nil),
		Compiler:    machine.NewCompiler(nil),
		Dispatcher:  machine.NewDispatcher(idleRunner{}, nil),
	})

	d, err := daemon.New(cfg, store, nil, manager)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running daemon after Start")
	}

	status := d.Status(context.Background())
	if !status.Running || status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if !status.Health.Ready {
		t.Fatalf("expected healthy pipeline, got %+v", status.Health)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped daemon after Stop")
	}
}

func TestDaemonRejectsDoubleStart(t *testing.T) {
	d := newTestDaemon(t, nil)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected error starting an already-running daemon")
	}
}
