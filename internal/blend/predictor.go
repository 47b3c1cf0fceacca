package blend

import (
	"barista/internal/params"
	"barista/internal/queue"
)

// ridgeLambda regularizes the least-squares fit so sparse histories produce
// small weights instead of wild extrapolations.
const ridgeLambda = 1.0

// Predictor estimates the rating a user would give a parameter set, fit from
// their rated brew history with ridge-regularized least squares. It exists to
// break ties inside the blending window, not to forecast: with fewer samples
// than the configured minimum it stays untrained and scoring is disabled.
type Predictor struct {
	weights []float64
	trained bool
}

// Trained reports whether the predictor has enough history to score.
func (p *Predictor) Trained() bool {
	return p != nil && p.trained
}

// TrainPredictor fits a linear model of rating over normalized parameters.
// History rows whose parameters no longer parse are skipped.
func TrainPredictor(history []queue.RatedBrew, minSamples int) *Predictor {
	if minSamples < 1 {
		minSamples = 1
	}
	schema := params.Schema()
	dims := len(schema) + 1 // +1 intercept

	var rows [][]float64
	var targets []float64
	for _, rated := range history {
		values, err := params.DecodeValues(rated.FinalJSON)
		if err != nil {
			continue
		}
		row := make([]float64, dims)
		row[0] = 1
		for i, field := range schema {
			value, ok := values[field.Name]
			if !ok {
				value = field.Default
			}
			row[i+1] = normalize(field, value)
		}
		rows = append(rows, row)
		targets = append(targets, float64(rated.Rating))
	}
	if len(rows) < minSamples {
		return &Predictor{}
	}

	// Normal equations: (X'X + lambda*I) w = X'y.
	gram := make([][]float64, dims)
	for i := range gram {
		gram[i] = make([]float64, dims+1)
	}
	for i := 0; i < dims; i++ {
		for j := 0; j < dims; j++ {
			var sum float64
			for _, row := range rows {
				sum += row[i] * row[j]
			}
			if i == j {
				sum += ridgeLambda
			}
			gram[i][j] = sum
		}
		var sum float64
		for k, row := range rows {
			sum += row[i] * targets[k]
		}
		gram[i][dims] = sum
	}

	weights, ok := solve(gram)
	if !ok {
		return &Predictor{}
	}
	return &Predictor{weights: weights, trained: true}
}

// Score predicts a rating for the given parameter values. Untrained
// predictors score everything at zero.
func (p *Predictor) Score(values map[string]float64) float64 {
	if !p.Trained() {
		return 0
	}
	score := p.weights[0]
	for i, field := range params.Schema() {
		value, ok := values[field.Name]
		if !ok {
			value = field.Default
		}
		score += p.weights[i+1] * normalize(field, value)
	}
	return score
}

// Refine searches the blending window around the candidate for the set the
// predictor scores highest, moving one field at a time in schema order so the
// result is deterministic. The candidate itself is always in the running, so
// refinement never does worse than no refinement.
func (p *Predictor) Refine(blended params.Set, candidate params.Set, maxAdjustFraction float64) (params.Set, error) {
	if !p.Trained() || maxAdjustFraction <= 0 {
		return blended, nil
	}
	current := blended.Values()
	base := candidate.Values()

	for _, field := range params.Schema() {
		anchor, ok := base[field.Name]
		if !ok {
			anchor = field.Default
		}
		low, high := AdjustWindow(field, anchor, maxAdjustFraction)

		best := current[field.Name]
		bestScore := p.Score(current)
		for _, probe := range []float64{low, (low + high) / 2, high} {
			current[field.Name] = probe
			if score := p.Score(current); score > bestScore {
				best = probe
				bestScore = score
			}
		}
		current[field.Name] = best
	}

	refined, _, err := params.SanitizeValues(current)
	if err != nil {
		return params.Set{}, err
	}
	return refined, nil
}

func normalize(field params.Field, value float64) float64 {
	span := field.Range()
	if span <= 0 {
		return 0
	}
	return (field.Clamp(value) - field.Min) / span
}

// solve runs Gaussian elimination with partial pivoting on an augmented
// matrix and returns the solution vector.
func solve(matrix [][]float64) ([]float64, bool) {
	n := len(matrix)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if abs(matrix[row][col]) > abs(matrix[pivot][col]) {
				pivot = row
			}
		}
		if abs(matrix[pivot][col]) < 1e-12 {
			return nil, false
		}
		matrix[col], matrix[pivot] = matrix[pivot], matrix[col]
		for row := col + 1; row < n; row++ {
			factor := matrix[row][col] / matrix[col][col]
			for k := col; k <= n; k++ {
				matrix[row][k] -= factor * matrix[col][k]
			}
		}
	}
	solution := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := matrix[row][n]
		for col := row + 1; col < n; col++ {
			sum -= matrix[row][col] * solution[col]
		}
		solution[row] = sum / matrix[row][row]
	}
	return solution, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
