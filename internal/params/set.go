package params

import (
	"encoding/json"
	"fmt"
)

// Set is a complete brewing parameter set. A Set is only marked validated by
// Sanitize; nothing else in the repository can produce a final set.
type Set struct {
	values    map[string]float64
	validated bool
}

// Validated reports whether this set came out of the sanitizer.
func (s Set) Validated() bool {
	return s.validated
}

// Value returns the named field's value. The second result is false for
// undeclared or absent fields.
func (s Set) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of the field values.
func (s Set) Values() map[string]float64 {
	cp := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return cp
}

// JSON encodes the set's values as a JSON object in schema order.
func (s Set) JSON() (string, error) {
	ordered := make(map[string]float64, len(s.values))
	for _, field := range schema {
		if v, ok := s.values[field.Name]; ok {
			ordered[field.Name] = v
		}
	}
	encoded, err := json.Marshal(ordered)
	if err != nil {
		return "", fmt.Errorf("encode parameter set: %w", err)
	}
	return string(encoded), nil
}

// DecodeValues parses a JSON object of field values without validating it.
// The result must go back through Sanitize before it counts as final.
func DecodeValues(payload string) (map[string]float64, error) {
	var values map[string]float64
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("decode parameter set: %w", err)
	}
	return values, nil
}

// Default returns the documented baseline recipe, already validated. It is
// the fallback when recommendation output cannot be interpreted.
func Default() Set {
	values := make(map[string]float64, len(schema))
	for _, field := range schema {
		values[field.Name] = field.Default
	}
	return Set{values: values, validated: true}
}
