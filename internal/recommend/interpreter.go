package recommend

import (
	"barista/internal/params"
	"barista/internal/services"
	"barista/internal/services/llm"
)

// Interpret extracts a candidate parameter set from a raw model response and
// sanitizes it against the schema. Model responses are treated as untrusted:
// fenced payloads, surrounding prose, wrapper objects, and unit-suffixed
// strings are all tolerated, and anything beyond repair surfaces as an
// interpretation failure so the caller can retry or fall back.
func Interpret(raw string) (params.Set, []params.Repair, error) {
	var payload map[string]any
	if err := llm.DecodeLLMJSON(raw, &payload); err != nil {
		return params.Set{}, nil, services.Wrap(
			services.ErrInterpretation, "recommender", "decode response",
			"Model response carried no JSON object", err)
	}
	payload = unwrapCandidate(payload)
	if len(payload) == 0 {
		return params.Set{}, nil, services.Wrap(
			services.ErrInterpretation, "recommender", "decode response",
			"Model response decoded to an empty object", nil)
	}

	set, repairs, err := params.Sanitize(payload)
	if err != nil {
		// The model produced a declared field we cannot coerce. That is an
		// interpretation problem, not a caller bug: retryable.
		return params.Set{}, nil, services.Wrap(
			services.ErrInterpretation, "recommender", "sanitize candidate",
			"Model response could not be coerced to the parameter schema", err)
	}
	return set, repairs, nil
}

// unwrapCandidate unnests common wrapper shapes such as
// {"parameters": {...}} or {"recipe": {...}}.
func unwrapCandidate(payload map[string]any) map[string]any {
	for _, key := range []string{"parameters", "params", "recipe", "result"} {
		if nested, ok := payload[key].(map[string]any); ok && len(nested) > 0 {
			return nested
		}
	}
	return payload
}
