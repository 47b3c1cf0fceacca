package recommend_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"barista/internal/params"
	"barista/internal/profile"
	"barista/internal/queue"
	"barista/internal/recommend"
	"barista/internal/testsupport"
)

type stubCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubCompleter) CompleteJSON(_ context.Context, _, userPrompt string) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, userPrompt)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

func (s *stubCompleter) HealthCheck(context.Context) error { return nil }

func TestRecommenderStoresCandidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{responses: []string{
		`{"grind_microns":300,"water_temp_c":94,"extraction_seconds":32,"pressure_bar":8,"dose_grams":19}`,
	}}
	rec := recommend.NewRecommender(completer, cfg, nil)

	brew := &queue.Brew{ID: 1, UserID: "mia", RequestText: "strong, low acidity"}
	if err := rec.Execute(context.Background(), brew); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if brew.CandidateJSON == "" {
		t.Fatal("expected candidate recipe on brew")
	}
	values, err := params.DecodeValues(brew.CandidateJSON)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	if values[params.FieldTemp] != 94 {
		t.Fatalf("unexpected candidate: %v", values)
	}
	if !strings.Contains(completer.prompts[0], "strong, low acidity") {
		t.Fatal("request text must appear verbatim in the prompt")
	}
}

func TestRecommenderRetriesMalformedThenSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{responses: []string{
		"sorry, here is some prose",
		"{not json",
		`{"water_temp_c":91}`,
	}}
	rec := recommend.NewRecommender(completer, cfg, nil)

	brew := &queue.Brew{ID: 2, UserID: "noah"}
	if err := rec.Execute(context.Background(), brew); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if completer.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", completer.calls)
	}
	values, err := params.DecodeValues(brew.CandidateJSON)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	if values[params.FieldTemp] != 91 {
		t.Fatalf("unexpected candidate: %v", values)
	}
}

func TestRecommenderFallsBackToBaselineAfterBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{responses: []string{
		"prose", "more prose", "still prose",
	}}
	rec := recommend.NewRecommender(completer, cfg, nil)

	brew := &queue.Brew{ID: 3, UserID: "olga", RequestText: "something odd"}
	if err := rec.Execute(context.Background(), brew); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if completer.calls != cfg.Recommendation.MaxInterpretAttempts {
		t.Fatalf("expected %d attempts, got %d", cfg.Recommendation.MaxInterpretAttempts, completer.calls)
	}
	values, err := params.DecodeValues(brew.CandidateJSON)
	if err != nil {
		t.Fatalf("DecodeValues failed: %v", err)
	}
	for _, field := range params.Schema() {
		if values[field.Name] != field.Default {
			t.Fatalf("expected baseline recipe, got %v", values)
		}
	}
}

func TestRecommenderIncludesProfileHintsInPrompt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	completer := &stubCompleter{responses: []string{`{"water_temp_c":90}`}}
	rec := recommend.NewRecommender(completer, cfg, nil)

	prof := profile.Profile{
		UserID:  "pia",
		Samples: 4,
		Hints: map[string]profile.Hint{
			params.FieldTime: {Target: 28, Confidence: 0.7, Label: "prefers extraction_seconds near 28 s"},
		},
	}
	encoded, err := prof.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	brew := &queue.Brew{ID: 4, UserID: "pia", ProfileJSON: encoded}
	if err := rec.Execute(context.Background(), brew); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(completer.prompts[0], "near 28") {
		t.Fatalf("expected hint in prompt, got %q", completer.prompts[0])
	}
}

func TestSystemPromptEnumeratesSchema(t *testing.T) {
	prompt := recommend.SystemPrompt()
	for _, field := range params.Schema() {
		if !strings.Contains(prompt, field.Name) {
			t.Fatalf("system prompt missing field %s", field.Name)
		}
	}
}
