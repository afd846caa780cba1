package params

import "strings"

// DefaultPreset is used for empty or unrecognised preset names.
const DefaultPreset = "balanced"

// Hardcoded fallbacks for high-res settings a preset leaves unset.
const (
	DefaultHRScale           = 1.5
	DefaultHRUpscaler        = "R-ESRGAN 4x+"
	DefaultDenoisingStrength = 0.4
	DefaultHRSecondPassSteps = 12
)

// Preset is a named baseline of generation settings. Presets are values:
// Lookup hands out copies, so nothing a caller does can change the catalog.
type Preset struct {
	Name        string
	Steps       int
	SamplerName string
	CFGScale    float64
	EnableHR    bool
	// Zero means "not set by this preset".
	HRScale           float64
	HRSecondPassSteps int
	DenoisingStrength float64
	HRUpscaler        string
}

var presets = [...]Preset{
	{Name: "fast", Steps: 20, SamplerName: "Euler a", CFGScale: 6.5},
	{Name: "balanced", Steps: 24, SamplerName: "DPM++ 2M", CFGScale: 7.0},
	{
		Name: "high", Steps: 36, SamplerName: "DPM++ 3M SDE", CFGScale: 7.5,
		EnableHR: true, HRScale: 1.8, HRSecondPassSteps: 14, DenoisingStrength: 0.4, HRUpscaler: "R-ESRGAN 4x+",
	},
	{
		Name: "ultra", Steps: 48, SamplerName: "DPM++ 3M SDE", CFGScale: 7.0,
		EnableHR: true, HRScale: 2.0, HRSecondPassSteps: 20, DenoisingStrength: 0.33, HRUpscaler: "Latent (nearest-exact)",
	},
}

// Lookup returns the preset called name (case-insensitive) and whether it
// exists. Unknown names yield the default preset.
func Lookup(name string) (Preset, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range presets {
		if p.Name == n {
			return p, true
		}
	}
	for _, p := range presets {
		if p.Name == DefaultPreset {
			return p, false
		}
	}
	panic("params: default preset missing")
}

// Names lists the catalog in order.
func Names() []string {
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = p.Name
	}
	return out
}

// Known reports whether name is in the catalog.
func Known(name string) bool {
	_, ok := Lookup(name)
	return ok
}
