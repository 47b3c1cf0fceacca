package profile_test

import (
	"context"
	"testing"

	"barista/internal/params"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/testsupport"
)

func seedRatedBrews(t *testing.T, store *queue.Store, userID string, ratings []int, times []float64) {
	t.Helper()
	ctx := context.Background()
	for i, rating := range ratings {
		brew, err := store.NewBrew(ctx, userID, "", queue.ServingMedium)
		if err != nil {
			t.Fatalf("NewBrew failed: %v", err)
		}
		set, _, err := params.SanitizeValues(map[string]float64{params.FieldTime: times[i]})
		if err != nil {
			t.Fatalf("SanitizeValues failed: %v", err)
		}
		encoded, err := set.JSON()
		if err != nil {
			t.Fatalf("JSON failed: %v", err)
		}
		brew.Status = queue.StatusCompleted
		brew.FinalJSON = encoded
		if err := store.UpdateBrew(ctx, brew); err != nil {
			t.Fatalf("UpdateBrew failed: %v", err)
		}
		if _, err := store.AddFeedback(ctx, brew.ID, rating, ""); err != nil {
			t.Fatalf("AddFeedback failed: %v", err)
		}
	}
}

func TestServiceLoadColdStartReturnsNeutral(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := profile.NewService(store, cfg, nil)

	p, err := svc.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !p.IsNeutral() {
		t.Fatalf("expected neutral profile, got %+v", p)
	}

	// Cold-start load caches the neutral snapshot.
	stored, err := store.GetProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if stored == "" {
		t.Fatal("expected cached snapshot after cold-start load")
	}
}

func TestServiceRecomputeStoresSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := profile.NewService(store, cfg, nil)

	seedRatedBrews(t, store, "kate",
		[]int{5, 5, 5, 2, 2, 2},
		[]float64{28, 28, 28, 38, 38, 38})

	p, err := svc.Recompute(context.Background(), "kate")
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if _, ok := p.Hints[params.FieldTime]; !ok {
		t.Fatalf("expected extraction hint, got %+v", p.Hints)
	}

	loaded, err := svc.Load(context.Background(), "kate")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Samples != p.Samples || len(loaded.Hints) != len(p.Hints) {
		t.Fatalf("loaded snapshot diverges: %+v vs %+v", loaded, p)
	}
}

func TestProfilerStageAttachesSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := profile.NewService(store, cfg, nil)
	profiler := profile.NewProfiler(svc, nil)

	ctx := context.Background()
	brew, err := store.NewBrew(ctx, "liam", "something fruity", queue.ServingMedium)
	if err != nil {
		t.Fatalf("NewBrew failed: %v", err)
	}
	brew.ProfileJSON = "stale"

	if err := profiler.Prepare(ctx, brew); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if brew.ProfileJSON != "" {
		t.Fatal("Prepare must clear stale snapshot")
	}
	if err := profiler.Execute(ctx, brew); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if brew.ProfileJSON == "" {
		t.Fatal("expected profile snapshot on brew")
	}
	p, err := profile.Decode(brew.ProfileJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.UserID != "liam" {
		t.Fatalf("expected profile for liam, got %q", p.UserID)
	}

	if health := profiler.HealthCheck(ctx); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
}
