package params

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"barista/internal/services"
)

// Repair describes one silent fix applied while sanitizing a candidate set.
type Repair struct {
	Field  string
	Action string
	Detail string
}

const (
	RepairClamped   = "clamped"
	RepairDefaulted = "defaulted"
	RepairDropped   = "dropped"
)

// Sanitize turns an arbitrary candidate mapping into a validated Set: every
// declared field present, in bounds, extraneous fields dropped, missing
// fields defaulted, out-of-range values clamped. Recommendation sources are
// expected to be noisy, so all of that is repaired silently and reported in
// the repair list for the caller to log. The only hard failure is a declared
// field whose value cannot be coerced to a number at all.
func Sanitize(candidate map[string]any) (Set, []Repair, error) {
	values := make(map[string]float64, len(schema))
	var repairs []Repair

	normalized := make(map[string]any, len(candidate))
	for name, raw := range candidate {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, declared := schemaByName[key]; !declared {
			repairs = append(repairs, Repair{Field: name, Action: RepairDropped, Detail: "not in schema"})
			continue
		}
		normalized[key] = raw
	}

	for _, field := range schema {
		raw, present := normalized[field.Name]
		if !present {
			values[field.Name] = field.Default
			repairs = append(repairs, Repair{
				Field:  field.Name,
				Action: RepairDefaulted,
				Detail: formatFloat(field.Default),
			})
			continue
		}

		value, ok := coerceNumber(raw)
		if !ok {
			return Set{}, nil, services.Wrap(
				services.ErrSchemaViolation,
				"", "sanitize",
				field.Name+": value is not coercible to a number",
				nil,
			)
		}

		clamped := field.Clamp(value)
		if clamped != value {
			repairs = append(repairs, Repair{
				Field:  field.Name,
				Action: RepairClamped,
				Detail: formatFloat(value) + " -> " + formatFloat(clamped),
			})
		}
		values[field.Name] = clamped
	}

	sort.Slice(repairs, func(i, j int) bool {
		if repairs[i].Field != repairs[j].Field {
			return repairs[i].Field < repairs[j].Field
		}
		return repairs[i].Action < repairs[j].Action
	})

	return Set{values: values, validated: true}, repairs, nil
}

// SanitizeValues is Sanitize for an already-numeric mapping, used when
// re-validating blended output.
func SanitizeValues(candidate map[string]float64) (Set, []Repair, error) {
	raw := make(map[string]any, len(candidate))
	for name, value := range candidate {
		raw[name] = value
	}
	return Sanitize(raw)
}

func coerceNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		return parsed, err == nil
	case string:
		return parseNumericText(v)
	default:
		return 0, false
	}
}

// parseNumericText accepts plain numbers plus the unit-suffixed strings
// models like to emit ("92C", "30 seconds", "9 bar").
func parseNumericText(text string) (float64, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return parsed, true
	}
	end := 0
	for end < len(trimmed) {
		c := trimmed[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(trimmed[:end], 64)
	return parsed, err == nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
