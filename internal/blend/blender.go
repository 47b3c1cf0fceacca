package blend

import (
	"fmt"
	"math"

	"barista/internal/params"
	"barista/internal/profile"
)

// Adjustment records one per-field nudge applied while blending.
type Adjustment struct {
	Field  string  `json:"field"`
	From   float64 `json:"from"`
	To     float64 `json:"to"`
	Reason string  `json:"reason"`
}

// Blend pulls a candidate recipe toward a user's learned preferences. Each
// hinted field moves toward its hint target, capped at maxAdjustFraction of
// the field's legal range scaled by hint confidence. A neutral profile
// returns the candidate unchanged. The result is re-sanitized, so blending
// can never produce an out-of-range value.
func Blend(candidate params.Set, prof profile.Profile, maxAdjustFraction float64) (params.Set, []Adjustment, error) {
	values := candidate.Values()
	if maxAdjustFraction < 0 {
		maxAdjustFraction = 0
	}

	var adjustments []Adjustment
	if !prof.IsNeutral() && maxAdjustFraction > 0 {
		for _, field := range params.Schema() {
			hint, ok := prof.Hints[field.Name]
			if !ok {
				continue
			}
			current, ok := values[field.Name]
			if !ok {
				current = field.Default
			}
			confidence := math.Min(1, math.Max(0, hint.Confidence))
			limit := maxAdjustFraction * field.Range() * confidence
			delta := hint.Target - current
			if delta > limit {
				delta = limit
			}
			if delta < -limit {
				delta = -limit
			}
			if delta == 0 {
				continue
			}
			nudged := field.Clamp(current + delta)
			if nudged == current {
				continue
			}
			values[field.Name] = nudged
			adjustments = append(adjustments, Adjustment{
				Field:  field.Name,
				From:   current,
				To:     nudged,
				Reason: fmt.Sprintf("toward preferred %g (confidence %.2f)", hint.Target, confidence),
			})
		}
	}

	blended, _, err := params.SanitizeValues(values)
	if err != nil {
		return params.Set{}, nil, err
	}
	return blended, adjustments, nil
}

// AdjustWindow returns the inclusive bounds blending is allowed to move a
// field away from its candidate value, before range clamping.
func AdjustWindow(field params.Field, candidate, maxAdjustFraction float64) (float64, float64) {
	limit := maxAdjustFraction * field.Range()
	low := field.Clamp(candidate - limit)
	high := field.Clamp(candidate + limit)
	return low, high
}
