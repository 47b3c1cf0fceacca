package blend_test

import (
	"math"
	"reflect"
	"testing"

	"barista/internal/blend"
	"barista/internal/params"
	"barista/internal/profile"
)

func mustSet(t *testing.T, values map[string]float64) params.Set {
	t.Helper()
	set, _, err := params.SanitizeValues(values)
	if err != nil {
		t.Fatalf("SanitizeValues failed: %v", err)
	}
	return set
}

func TestBlendNeutralProfileIsIdentity(t *testing.T) {
	candidate := mustSet(t, map[string]float64{
		params.FieldTemp: 92,
		params.FieldTime: 32,
	})
	final, adjustments, err := blend.Blend(candidate, profile.Neutral("quinn"), 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	if len(adjustments) != 0 {
		t.Fatalf("neutral profile must not adjust, got %v", adjustments)
	}
	if !reflect.DeepEqual(final.Values(), candidate.Values()) {
		t.Fatalf("values changed: %v vs %v", final.Values(), candidate.Values())
	}
	if !final.Validated() {
		t.Fatal("blended set must be validated")
	}
}

func TestBlendNudgesTowardHintWithinBound(t *testing.T) {
	candidate := mustSet(t, map[string]float64{params.FieldTime: 38})
	prof := profile.Profile{
		UserID: "rosa",
		Hints: map[string]profile.Hint{
			params.FieldTime: {Target: 22, Confidence: 1},
		},
	}
	final, adjustments, err := blend.Blend(candidate, prof, 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	// Range is 20, so the cap is 3 seconds: 38 -> 35, not all the way to 22.
	if v, _ := final.Value(params.FieldTime); v != 35 {
		t.Fatalf("expected bounded nudge to 35, got %v", v)
	}
	if len(adjustments) != 1 || adjustments[0].Field != params.FieldTime {
		t.Fatalf("unexpected adjustments: %v", adjustments)
	}
}

func TestBlendScalesByConfidence(t *testing.T) {
	candidate := mustSet(t, map[string]float64{params.FieldTime: 38})
	prof := profile.Profile{
		UserID: "sven",
		Hints: map[string]profile.Hint{
			params.FieldTime: {Target: 22, Confidence: 0.5},
		},
	}
	final, _, err := blend.Blend(candidate, prof, 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	if v, _ := final.Value(params.FieldTime); v != 36.5 {
		t.Fatalf("expected half-confidence nudge to 36.5, got %v", v)
	}
}

func TestBlendStopsAtTargetWhenCloser(t *testing.T) {
	candidate := mustSet(t, map[string]float64{params.FieldTime: 29})
	prof := profile.Profile{
		UserID: "tess",
		Hints: map[string]profile.Hint{
			params.FieldTime: {Target: 28, Confidence: 1},
		},
	}
	final, _, err := blend.Blend(candidate, prof, 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	if v, _ := final.Value(params.FieldTime); v != 28 {
		t.Fatalf("expected exact target when within bound, got %v", v)
	}
}

func TestBlendNeverLeavesLegalRange(t *testing.T) {
	candidate := mustSet(t, map[string]float64{params.FieldTemp: 85})
	prof := profile.Profile{
		UserID: "uma",
		Hints: map[string]profile.Hint{
			params.FieldTemp: {Target: 60, Confidence: 1}, // below legal range
		},
	}
	final, _, err := blend.Blend(candidate, prof, 0.5)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	field, _ := params.FieldByName(params.FieldTemp)
	if v, _ := final.Value(params.FieldTemp); v < field.Min || v > field.Max {
		t.Fatalf("blended value escaped range: %v", v)
	}
}

func TestBlendIdempotentOnConvergedRecipe(t *testing.T) {
	candidate := mustSet(t, map[string]float64{params.FieldTime: 28})
	prof := profile.Profile{
		UserID: "vic",
		Hints: map[string]profile.Hint{
			params.FieldTime: {Target: 28, Confidence: 1},
		},
	}
	once, _, err := blend.Blend(candidate, prof, 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	twice, adjustments, err := blend.Blend(once, prof, 0.15)
	if err != nil {
		t.Fatalf("Blend failed: %v", err)
	}
	if len(adjustments) != 0 {
		t.Fatalf("converged recipe must not adjust again, got %v", adjustments)
	}
	if !reflect.DeepEqual(once.Values(), twice.Values()) {
		t.Fatal("blend not idempotent at the hint target")
	}
}

func TestAdjustWindowClampsToRange(t *testing.T) {
	field, ok := params.FieldByName(params.FieldPressure)
	if !ok {
		t.Fatal("missing pressure field")
	}
	low, high := blend.AdjustWindow(field, field.Min, 0.5)
	if low != field.Min {
		t.Fatalf("expected window floor at range min, got %v", low)
	}
	if high <= field.Min || high > field.Max {
		t.Fatalf("unexpected window ceiling: %v", high)
	}
	if math.Abs(high-(field.Min+0.5*field.Range())) > 1e-9 {
		t.Fatalf("unexpected window width: %v", high)
	}
}
