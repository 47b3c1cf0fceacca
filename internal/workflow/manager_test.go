package workflow_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"barista/internal/blend"
	"barista/internal/config"
	"barista/internal/machine"
	"barista/internal/params"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/recommend"
	machinectl "barista/internal/services/machine"
	"barista/internal/testsupport"
	"barista/internal/workflow"
)

type scriptedCompleter struct {
	response string
	calls    atomic.Int32
}

func (s *scriptedCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	s.calls.Add(1)
	return s.response, nil
}

func (s *scriptedCompleter) HealthCheck(context.Context) error { return nil }

type recordingRunner struct {
	programs atomic.Int32
	commands []string
}

func (r *recordingRunner) Run(_ context.Context, _ int64, commands []string) ([]machinectl.Ack, error) {
	r.programs.Add(1)
	r.commands = commands
	acks := make([]machinectl.Ack, len(commands))
	for i, cmd := range commands {
		acks[i] = machinectl.Ack{Command: cmd, Status: "ok"}
	}
	return acks, nil
}

func (r *recordingRunner) HealthCheck(context.Context) error { return nil }

func newTestManager(t *testing.T, cfg *config.Config, store *queue.Store, completer recommend.Completer, runner machine.Runner) *workflow.Manager {
	t.Helper()
	profiles := profile.NewService(store, cfg, nil)
	manager := workflow.NewManager(cfg, store, nil)
	manager.Configure(workflow.StageSet{
		Profiler:    profile.NewProfiler(profiles, nil),
		Recommender: recommend.NewRecommender(completer, cfg, nil),
		Blender:     blend.NewBlender(store, cfg, nil),
		Compiler:    machine.NewCompiler(nil),
		Dispatcher:  machine.NewDispatcher(runner, nil),
	})
	return manager
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Brew {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		brew, err := store.GetBrew(context.Background(), id)
		if err != nil {
			t.Fatalf("GetBrew failed: %v", err)
		}
		if brew != nil && brew.Status == want {
			return brew
		}
		if brew != nil && brew.Status == queue.StatusFailed && want != queue.StatusFailed {
			t.Fatalf("brew failed: %s", brew.ErrorMessage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("brew %d never reached %s", id, want)
	return nil
}

func TestManagerRunsBrewEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	completer := &scriptedCompleter{
		response: `{"grind_microns":300,"water_temp_c":94,"extraction_seconds":32,"pressure_bar":8,"dose_grams":19}`,
	}
	runner := &recordingRunner{}
	manager := newTestManager(t, cfg, store, completer, runner)

	brew, err := store.NewBrew(context.Background(), "zoe", "strong, low acidity", queue.ServingMedium)
	if err != nil {
		t.Fatalf("NewBrew failed: %v", err)
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	done := waitForStatus(t, store, brew.ID, queue.StatusCompleted)
	if done.ProfileJSON == "" || done.CandidateJSON == "" || done.FinalJSON == "" || done.ProgramJSON == "" {
		t.Fatalf("expected all stage artifacts, got %+v", done)
	}
	if done.DispatchedAt == nil {
		t.Fatal("expected dispatch timestamp")
	}
	if runner.programs.Load() != 1 {
		t.Fatalf("expected one dispatched program, got %d", runner.programs.Load())
	}
	if len(runner.commands) == 0 {
		t.Fatal("expected compiled commands at the machine")
	}

	values, err := params.DecodeValues(done.FinalJSON)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	if values[params.FieldTemp] != 94 {
		t.Fatalf("cold-start blend must pass candidate through, got %v", values)
	}
}

func TestManagerFallsBackWhenModelUnusable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	completer := &scriptedCompleter{response: "no json, only vibes"}
	runner := &recordingRunner{}
	manager := newTestManager(t, cfg, store, completer, runner)

	brew, err := store.NewBrew(context.Background(), "amy", "surprise me", queue.ServingSmall)
	if err != nil {
		t.Fatalf("NewBrew failed: %v", err)
	}
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	done := waitForStatus(t, store, brew.ID, queue.StatusCompleted)
	values, err := params.DecodeValues(done.FinalJSON)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	for _, field := range params.Schema() {
		if values[field.Name] != field.Default {
			t.Fatalf("expected baseline recipe after fallback, got %v", values)
		}
	}
	if int(completer.calls.Load()) != cfg.Recommendation.MaxInterpretAttempts {
		t.Fatalf("expected %d model attempts, got %d", cfg.Recommendation.MaxInterpretAttempts, completer.calls.Load())
	}
}

func TestManagerHonorsCancelBeforeDispatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	brew, err := store.NewBrew(ctx, "ben", "", queue.ServingMedium)
	if err != nil {
		t.Fatalf("NewBrew failed: %v", err)
	}
	if ok, err := store.RequestCancel(ctx, brew.ID); err != nil || !ok {
		t.Fatalf("RequestCancel failed: ok=%v err=%v", ok, err)
	}

	runner := &recordingRunner{}
	manager := newTestManager(t, cfg, store,
		&scriptedCompleter{response: `{"water_temp_c":92}`}, runner)
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	done := waitForStatus(t, store, brew.ID, queue.StatusFailed)
	if done.ErrorMessage != queue.CancelledReason {
		t.Fatalf("expected cancellation reason, got %q", done.ErrorMessage)
	}
	if runner.programs.Load() != 0 {
		t.Fatal("cancelled brew must never reach the machine")
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := workflow.NewManager(cfg, store, nil)
	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected error starting unconfigured manager")
	}
}

func TestManagerResetsStuckBrewsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	brew, err := store.NewBrew(ctx, "cleo", "", queue.ServingMedium)
	if err != nil {
		t.Fatalf("NewBrew failed: %v", err)
	}
	brew.Status = queue.StatusBlending // as if a previous daemon died mid-stage
	candidate, _, err := params.SanitizeValues(map[string]float64{params.FieldTemp: 91})
	if err != nil {
		t.Fatalf("SanitizeValues failed: %v", err)
	}
	brew.CandidateJSON, err = candidate.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	brew.ProfileJSON = mustNeutralProfile(t, "cleo")
	if err := store.UpdateBrew(ctx, brew); err != nil {
		t.Fatalf("UpdateBrew failed: %v", err)
	}

	runner := &recordingRunner{}
	manager := newTestManager(t, cfg, store,
		&scriptedCompleter{response: `{"water_temp_c":92}`}, runner)
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	done := waitForStatus(t, store, brew.ID, queue.StatusCompleted)
	if done.FinalJSON == "" {
		t.Fatal("expected reclaimed brew to finish the pipeline")
	}
}

func TestManagerHealthReportsStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := newTestManager(t, cfg, store,
		&scriptedCompleter{response: `{"water_temp_c":92}`}, &recordingRunner{})

	health := manager.Health(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy pipeline, got %+v", health)
	}
	if len(health.Stages) != 5 {
		t.Fatalf("expected 5 stage reports, got %d", len(health.Stages))
	}
}

func mustNeutralProfile(t *testing.T, userID string) string {
	t.Helper()
	encoded, err := profile.Neutral(userID).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return encoded
}
