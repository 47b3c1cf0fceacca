package params

// Canonical field names for the brewing parameter schema.
const (
	FieldGrind    = "grind_microns"
	FieldTemp     = "water_temp_c"
	FieldTime     = "extraction_seconds"
	FieldPressure = "pressure_bar"
	FieldDose     = "dose_grams"
)

// Field declares one brewing parameter: its bounds, default, and unit.
type Field struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Unit    string
}

// Range returns the width of the field's valid interval.
func (f Field) Range() float64 {
	return f.Max - f.Min
}

// Clamp returns value limited to the field's bounds.
func (f Field) Clamp(value float64) float64 {
	if value < f.Min {
		return f.Min
	}
	if value > f.Max {
		return f.Max
	}
	return value
}

// schema is the declared parameter space. Bounds and defaults follow the
// machine's reference brewing envelope.
var schema = []Field{
	{Name: FieldGrind, Min: 100, Max: 1000, Default: 400, Unit: "microns"},
	{Name: FieldTemp, Min: 85, Max: 96, Default: 93, Unit: "celsius"},
	{Name: FieldTime, Min: 20, Max: 40, Default: 30, Unit: "seconds"},
	{Name: FieldPressure, Min: 1, Max: 10, Default: 7, Unit: "bar"},
	{Name: FieldDose, Min: 15, Max: 25, Default: 20, Unit: "grams"},
}

var schemaByName = func() map[string]Field {
	m := make(map[string]Field, len(schema))
	for _, field := range schema {
		m[field.Name] = field
	}
	return m
}()

// Schema returns the ordered list of declared fields.
func Schema() []Field {
	cp := make([]Field, len(schema))
	copy(cp, schema)
	return cp
}

// FieldByName looks up a declared field.
func FieldByName(name string) (Field, bool) {
	field, ok := schemaByName[name]
	return field, ok
}

// FieldNames returns the declared field names in schema order.
func FieldNames() []string {
	names := make([]string, len(schema))
	for i, field := range schema {
		names[i] = field.Name
	}
	return names
}
