package stage

import (
	"barista/internal/params"
	"barista/internal/services"
)

// DecodeParams revalidates a stored parameter payload and returns the
// resulting set. Stored payloads lose their validated mark on the way through
// SQLite, so every stage consuming one goes back through sanitization.
// On failure it returns a services.ErrSchemaViolation suitable for stage
// Execute methods.
func DecodeParams(raw string) (params.Set, error) {
	values, err := params.DecodeValues(raw)
	if err != nil {
		return params.Set{}, services.Wrap(
			services.ErrSchemaViolation, "stage", "decode parameters",
			"Stored parameter payload missing or invalid; rerun the brew", err)
	}
	set, _, err := params.SanitizeValues(values)
	if err != nil {
		return params.Set{}, err
	}
	return set, nil
}
