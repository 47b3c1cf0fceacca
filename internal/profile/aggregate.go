package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"barista/internal/params"
	"barista/internal/queue"
)

const hintBuckets = 5

// Hint expresses a learned preference for one brewing parameter: the value
// the user's best-rated brews cluster around and how strongly the data
// supports it.
type Hint struct {
	Target     float64 `json:"target"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

// Profile is the aggregated taste summary for one user. A profile with no
// hints is neutral: downstream stages treat it as "no adjustment".
type Profile struct {
	UserID     string          `json:"user_id"`
	Samples    int             `json:"samples"`
	MeanRating float64         `json:"mean_rating"`
	Hints      map[string]Hint `json:"hints,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Neutral returns an empty profile for a user with no usable history.
func Neutral(userID string) Profile {
	return Profile{UserID: userID, UpdatedAt: time.Now().UTC()}
}

// IsNeutral reports whether the profile carries no learned preferences.
func (p Profile) IsNeutral() bool {
	return len(p.Hints) == 0
}

// Encode serializes the profile for storage.
func (p Profile) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored profile snapshot.
func Decode(raw string) (Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// Aggregate distills a user's rated brew history into per-parameter hints.
// History is expected newest first; ratings decay exponentially with recency
// rank so recent feedback dominates. For each parameter the observed values
// are split into equal-width buckets across the legal range, and the bucket
// with the best weighted rating becomes a hint when it beats the user's
// overall mean. Brews whose stored parameters no longer parse are skipped.
func Aggregate(userID string, history []queue.RatedBrew, decay float64, window int) Profile {
	if decay <= 0 || decay > 1 {
		decay = 1
	}
	if window > 0 && len(history) > window {
		history = history[:window]
	}

	type sample struct {
		values map[string]float64
		rating float64
		weight float64
	}
	var samples []sample
	for rank, rated := range history {
		values, err := params.DecodeValues(rated.FinalJSON)
		if err != nil {
			continue
		}
		samples = append(samples, sample{
			values: values,
			rating: float64(rated.Rating),
			weight: math.Pow(decay, float64(rank)),
		})
	}
	if len(samples) == 0 {
		return Neutral(userID)
	}

	var totalWeight, weightedRating float64
	for _, s := range samples {
		totalWeight += s.weight
		weightedRating += s.weight * s.rating
	}
	overallMean := weightedRating / totalWeight

	p := Profile{
		UserID:     userID,
		Samples:    len(samples),
		MeanRating: overallMean,
		Hints:      make(map[string]Hint),
		UpdatedAt:  time.Now().UTC(),
	}

	for _, field := range params.Schema() {
		width := (field.Max - field.Min) / hintBuckets

		var bucketWeight, bucketRating, bucketValue [hintBuckets]float64
		for _, s := range samples {
			value, ok := s.values[field.Name]
			if !ok {
				continue
			}
			idx := int((value - field.Min) / width)
			if idx < 0 {
				idx = 0
			}
			if idx >= hintBuckets {
				idx = hintBuckets - 1
			}
			bucketWeight[idx] += s.weight
			bucketRating[idx] += s.weight * s.rating
			bucketValue[idx] += s.weight * value
		}

		best := -1
		bestMean := overallMean
		for i := 0; i < hintBuckets; i++ {
			if bucketWeight[i] == 0 {
				continue
			}
			mean := bucketRating[i] / bucketWeight[i]
			if mean > bestMean {
				best = i
				bestMean = mean
			}
		}
		if best < 0 {
			continue
		}

		target := field.Clamp(bucketValue[best] / bucketWeight[best])
		lift := (bestMean - overallMean) / 4
		coverage := bucketWeight[best] / totalWeight
		confidence := math.Min(1, math.Max(0, lift)*2+coverage/2)

		p.Hints[field.Name] = Hint{
			Target:     target,
			Confidence: confidence,
			Label:      fmt.Sprintf("prefers %s near %.0f %s", field.Name, target, field.Unit),
		}
	}

	if len(p.Hints) == 0 {
		p.Hints = nil
	}
	return p
}
