package types

// ServerStatus describes the supervised inference server.
type ServerStatus struct {
	// Lifecycle state: stopped, starting, ready or shutting_down.
	// example: ready
	State string `json:"state" example:"ready"`
	// Base URL of the inference server.
	// example: http://127.0.0.1:7860
	URL string `json:"url" example:"http://127.0.0.1:7860"`
	// PID of the child process when this service launched it.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// True when the process was launched by this service rather than found running.
	Owned bool `json:"owned"`
	// Whether acceleration flags were used at launch.
	GPU bool `json:"gpu"`
	// Last checkpoint requested through a switch.
	// example: sd_xl_base_1.0.safetensors
	Checkpoint string `json:"checkpoint,omitempty" example:"sd_xl_base_1.0.safetensors"`
	// Last lifecycle error, if any.
	LastError string `json:"last_error,omitempty"`
	// Time the server became ready (unix seconds).
	// example: 1700000000
	ReadySinceUnix int64 `json:"ready_since_unix,omitempty" example:"1700000000"`
}

// Checkpoint is a weights file found in the checkpoints directory.
type Checkpoint struct {
	// File name, usable as model_name for a switch.
	// example: sd_xl_base_1.0.safetensors
	Name string `json:"name" example:"sd_xl_base_1.0.safetensors"`
	// Absolute path on disk.
	Path string `json:"path"`
	// Size in bytes.
	// example: 6938078334
	SizeBytes int64 `json:"size_bytes" example:"6938078334"`
}
