package types

import "encoding/json"

// GenerateRequest is the body of POST /generate and the params of the
// images.generate RPC method.
type GenerateRequest struct {
	// Required positive prompt.
	// example: pink hair girl in flower meadow, anime style
	Prompt string `json:"prompt" example:"pink hair girl in flower meadow, anime style"`
	// Optional negative prompt.
	// example: lowres, blurry
	NegativePrompt *string `json:"negative_prompt,omitempty" example:"lowres, blurry"`
	// Canvas size as WIDTHxHEIGHT; both sides must be multiples of 64.
	// example: 768x1024
	Size string `json:"size,omitempty" example:"768x1024"`
	// Number of images to generate (1..8).
	// example: 1
	N int `json:"n,omitempty" example:"1"`
	// Backend selector: local|local_sd|local_sdxl|stable-diffusion|sd|sdxl|dalle|dall-e|dalle3.
	// example: local
	Model string `json:"model,omitempty" example:"local"`
	// Quality preset for the local backend: fast|balanced|high|ultra.
	// example: balanced
	Preset string `json:"preset,omitempty" example:"balanced"`
	// Per-call overrides for the local backend. Unknown keys are rejected.
	SDOverrides json.RawMessage `json:"sd_overrides,omitempty" swaggertype:"object"`
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// Absolute file paths (local backend) or URLs (cloud backends), in server order.
	Images []string `json:"images"`
}

// LogsResponse is returned by GET /logs.
type LogsResponse struct {
	// Most recent captured output lines, oldest first.
	Lines []string `json:"lines"`
}

// ErrorResponse is the error payload of every endpoint.
type ErrorResponse struct {
	// Error message.
	// example: size must be like "1024x1024"
	Detail string `json:"detail" example:"size must be like \"1024x1024\""`
}

// HealthResponse is returned by GET /healthz and GET /health.
type HealthResponse struct {
	// example: ok
	Status string `json:"status" example:"ok"`
	// Whether the local inference server port accepts connections (GET /health only).
	LocalSD *bool `json:"local_sd,omitempty"`
}

// OKResponse acknowledges a server lifecycle call.
type OKResponse struct {
	// example: true
	OK bool `json:"ok" example:"true"`
}

// ServerStartRequest is the body of POST /server/start and the params of local_sd.start.
type ServerStartRequest struct {
	// Optional checkpoint path passed to the server at launch.
	// example: sd_xl_base_1.0.safetensors
	ModelPath string `json:"model_path,omitempty" example:"sd_xl_base_1.0.safetensors"`
}

// ServerSwitchRequest is the body of POST /server/switch and the params of local_sd.switch_model.
type ServerSwitchRequest struct {
	// Checkpoint title or filename known to the server.
	// example: sd_xl_base_1.0.safetensors
	ModelName string `json:"model_name" example:"sd_xl_base_1.0.safetensors"`
	// Seconds to wait for the server job queue to drain (default 90).
	// example: 90
	Timeout int `json:"timeout,omitempty" example:"90"`
}

// CheckpointsResponse wraps the list returned by GET /checkpoints.
type CheckpointsResponse struct {
	Checkpoints []Checkpoint `json:"checkpoints"`
}
