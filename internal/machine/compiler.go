package machine

import (
	"encoding/json"
	"fmt"

	"barista/internal/params"
	"barista/internal/queue"
	"barista/internal/services"
)

// servingSpec carries the per-cup constants the firmware sequence is built
// from: water volume, pump flow, base grind duration, and drum speed.
type servingSpec struct {
	waterML    int
	flowMLPS   float64
	grindMS    int
	drumRPM    int
	minFinalMS int
}

var servingSpecs = map[queue.ServingSize]servingSpec{
	queue.ServingSmall:  {waterML: 89, flowMLPS: 2.0, grindMS: 3000, drumRPM: 3600, minFinalMS: 45000},
	queue.ServingMedium: {waterML: 207, flowMLPS: 3.0, grindMS: 6000, drumRPM: 3300, minFinalMS: 60000},
	queue.ServingLarge:  {waterML: 296, flowMLPS: 4.0, grindMS: 9000, drumRPM: 3000, minFinalMS: 75000},
}

// Program is a compiled, machine-ready command sequence.
type Program struct {
	Commands []string          `json:"commands"`
	Serving  queue.ServingSize `json:"serving"`
	WaterML  int               `json:"water_ml"`
}

// JSON serializes the program for storage on the brew.
func (p Program) JSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode program: %w", err)
	}
	return string(data), nil
}

// DecodeProgram parses a stored program payload.
func DecodeProgram(raw string) (Program, error) {
	var p Program
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Program{}, fmt.Errorf("decode program: %w", err)
	}
	return p, nil
}

// Compile translates a validated parameter set into the firmware command
// sequence. Handing it an unvalidated set is a caller bug and fails with a
// compilation error rather than risking raw values on the hardware.
//
// Command grammar: G-<setting> grinder, D-<ms> delay, R-<rpm> drum motor,
// H-<pct> heater power, P-<ml>-<mlps> pump volume and flow.
func Compile(set params.Set, serving queue.ServingSize) (Program, error) {
	if !set.Validated() {
		return Program{}, services.Wrap(
			services.ErrCompilation, "compiler", "compile program",
			"Parameter set was not validated before compilation", nil)
	}
	spec, ok := servingSpecs[serving]
	if !ok {
		spec = servingSpecs[queue.ServingMedium]
		serving = queue.ServingMedium
	}

	grind := mustValue(set, params.FieldGrind)
	temp := mustValue(set, params.FieldTemp)
	extraction := mustValue(set, params.FieldTime)
	pressure := mustValue(set, params.FieldPressure)
	dose := mustValue(set, params.FieldDose)

	// Finer grinds get a higher setting on the 1-10 grinder scale.
	grindSetting := clampInt(int(10-(grind-100)/90), 1, 10)
	// Grind duration scales with dose around the 20 g baseline.
	grindMS := int(float64(spec.grindMS) * dose / 20)
	// Heater power tracks target water temperature.
	heatPower := clampInt(int((temp-88)*(30.0/8)+70), 0, 100)
	// Pump flow scales with extraction pressure around the 7 bar baseline.
	flow := spec.flowMLPS * pressure / 7
	pumpMS := int(float64(spec.waterML) / flow * 1000)
	extractMS := int(extraction * 1000)
	finalMS := spec.minFinalMS
	if pumpMS+extractMS > finalMS {
		finalMS = pumpMS + extractMS
	}

	commands := []string{
		fmt.Sprintf("G-%d", grindSetting),
		fmt.Sprintf("D-%d", grindMS),
		fmt.Sprintf("R-%d", spec.drumRPM),
		"D-3000", // drum spin-up
		fmt.Sprintf("H-%d", heatPower),
		"D-100", // heater warmup
		fmt.Sprintf("P-%d-%.1f", spec.waterML, flow),
		fmt.Sprintf("D-%d", finalMS),
		"H-0",
		"R-0",
	}

	return Program{
		Commands: commands,
		Serving:  serving,
		WaterML:  spec.waterML,
	}, nil
}

func mustValue(set params.Set, field string) float64 {
	value, ok := set.Value(field)
	if !ok {
		// Unreachable for validated sets: sanitization fills every field.
		f, _ := params.FieldByName(field)
		return f.Default
	}
	return value
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
