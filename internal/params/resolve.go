// Package params turns a preset name plus per-call overrides into the
// txt2img payload sent to the inference server.
//
// Every tunable is resolved on its own: an override wins, then the preset's
// value, then a hardcoded default. The preset catalog is never written to.
package params

// Input is the per-call content of a generation request.
type Input struct {
	Prompt         string
	NegativePrompt string
	Size           string
	N              int
}

// Request is the fully resolved txt2img payload. The high-res fields are
// serialised only when EnableHR is true.
type Request struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	SamplerName    string  `json:"sampler_name"`
	CFGScale       float64 `json:"cfg_scale"`
	BatchSize      int     `json:"batch_size"`
	NIter          int     `json:"n_iter"`
	Seed           *int64  `json:"seed"`
	SaveImages     bool    `json:"save_images"`

	EnableHR          bool     `json:"enable_hr,omitempty"`
	HRScale           *float64 `json:"hr_scale,omitempty"`
	HRUpscaler        *string  `json:"hr_upscaler,omitempty"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
	HRSecondPassSteps *int     `json:"hr_second_pass_steps,omitempty"`

	// Preset is the catalog entry the request started from.
	Preset string `json:"-"`
}

// Resolve builds a fresh Request. Unknown preset names fall back to the
// default preset; only a malformed size is an error.
func Resolve(presetName string, in Input, ov Overrides) (Request, error) {
	w, h, err := ParseSize(in.Size)
	if err != nil {
		return Request{}, err
	}
	base, _ := Lookup(presetName)
	n := in.N
	if n <= 0 {
		n = 1
	}
	req := Request{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		Width:          w,
		Height:         h,
		Steps:          pick(ov.Steps, base.Steps, 0),
		SamplerName:    pick(ov.SamplerName, base.SamplerName, ""),
		CFGScale:       pick(ov.CFGScale, base.CFGScale, 0),
		BatchSize:      n,
		NIter:          1,
		SaveImages:     false,
		Preset:         base.Name,
	}
	if ov.Seed != nil {
		seed := *ov.Seed
		req.Seed = &seed
	}
	enableHR := base.EnableHR
	if ov.EnableHR != nil {
		enableHR = *ov.EnableHR
	}
	if enableHR {
		req.EnableHR = true
		req.HRScale = ptr(pick(ov.HRScale, base.HRScale, DefaultHRScale))
		req.HRUpscaler = ptr(pick(ov.HRUpscaler, base.HRUpscaler, DefaultHRUpscaler))
		req.DenoisingStrength = ptr(pick(ov.DenoisingStrength, base.DenoisingStrength, DefaultDenoisingStrength))
		req.HRSecondPassSteps = ptr(pick(ov.HRSecondPassSteps, base.HRSecondPassSteps, DefaultHRSecondPassSteps))
	}
	return req, nil
}

// pick applies override > preset > fallback. A zero preset value counts as unset.
func pick[T comparable](override *T, preset, fallback T) T {
	if override != nil {
		return *override
	}
	var zero T
	if preset != zero {
		return preset
	}
	return fallback
}

func ptr[T any](v T) *T { return &v }
