package sdapi

// Model is one entry of GET /sdapi/v1/sd-models.
type Model struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// Options is the subset of /sdapi/v1/options this client writes.
type Options struct {
	SDModelCheckpoint string `json:"sd_model_checkpoint"`
}

// Txt2ImgResult is the body returned by POST /sdapi/v1/txt2img.
type Txt2ImgResult struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

// Progress is the body returned by GET /sdapi/v1/progress.
type Progress struct {
	CurrentImage string  `json:"current_image"`
	EtaRelative  float64 `json:"eta_relative"`
	Progress     float64 `json:"progress"`
	State        State   `json:"state"`
}

// State is the job queue view embedded in Progress.
type State struct {
	Interrupted   bool   `json:"interrupted"`
	Job           string `json:"job"`
	JobCount      int    `json:"job_count"`
	JobNo         int    `json:"job_no"`
	JobTimestamp  string `json:"job_timestamp"`
	SamplingStep  int    `json:"sampling_step"`
	SamplingSteps int    `json:"sampling_steps"`
	Skipped       bool   `json:"skipped"`
}
