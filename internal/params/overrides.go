package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Overrides are per-call replacements for preset values. A nil field means
// "not overridden". Values are forwarded as given; the accepted ranges belong
// to the inference server.
type Overrides struct {
	Steps             *int     `json:"steps,omitempty"`
	SamplerName       *string  `json:"sampler_name,omitempty"`
	CFGScale          *float64 `json:"cfg_scale,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
	EnableHR          *bool    `json:"enable_hr,omitempty"`
	HRScale           *float64 `json:"hr_scale,omitempty"`
	HRUpscaler        *string  `json:"hr_upscaler,omitempty"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
	HRSecondPassSteps *int     `json:"hr_second_pass_steps,omitempty"`
}

// DecodeOverrides parses a JSON object of overrides. Empty input and JSON
// null mean no overrides. Anything other than an object, unknown keys and
// mistyped values are rejected as invalid parameters.
func DecodeOverrides(raw []byte) (Overrides, error) {
	var ov Overrides
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ov, nil
	}
	if trimmed[0] != '{' {
		return ov, Invalid("sd_overrides must be an object")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ov); err != nil {
		return Overrides{}, Invalid("sd_overrides: %s", describeDecodeError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Overrides{}, Invalid("sd_overrides: trailing data")
	}
	return ov, nil
}

func describeDecodeError(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return "field " + te.Field + " must be " + te.Type.String()
	}
	return strings.TrimPrefix(err.Error(), "json: ")
}
