package imagegen

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sdbridge/internal/params"
	"sdbridge/pkg/types"
)

// DefaultCheckpoint is loaded the first time the local server is brought up.
const DefaultCheckpoint = "sd_xl_base_1.0.safetensors"

// LocalServer is the lifecycle surface of the supervised WebUI.
type LocalServer interface {
	Start(ctx context.Context, checkpoint string) error
	Switch(ctx context.Context, modelName string, timeout time.Duration) error
	Status() types.ServerStatus
}

// Submitter sends a resolved payload to the WebUI.
type Submitter interface {
	Submit(ctx context.Context, req params.Request) ([]string, error)
}

// LocalConfig wires a LocalBackend. An empty DefaultCheckpoint disables the
// initial switch.
type LocalConfig struct {
	Server            LocalServer
	Submitter         Submitter
	DefaultCheckpoint string
	SwitchTimeout     time.Duration
	Logger            zerolog.Logger
}

// LocalBackend runs jobs on the local WebUI: it makes sure the server is up,
// resolves the preset and overrides, and submits the payload.
type LocalBackend struct {
	cfg LocalConfig
	mu  sync.Mutex
}

// NewLocal returns a LocalBackend.
func NewLocal(cfg LocalConfig) *LocalBackend {
	return &LocalBackend{cfg: cfg}
}

// Prepare starts the server if needed. When no checkpoint has been selected
// since the server came up, the default checkpoint is switched in.
func (b *LocalBackend) Prepare(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.cfg.Server.Start(ctx, ""); err != nil {
		return err
	}
	if b.cfg.DefaultCheckpoint == "" || b.cfg.Server.Status().Checkpoint != "" {
		return nil
	}
	b.cfg.Logger.Info().Str("checkpoint", b.cfg.DefaultCheckpoint).Msg("loading default checkpoint")
	return b.cfg.Server.Switch(ctx, b.cfg.DefaultCheckpoint, b.cfg.SwitchTimeout)
}

// Generate implements Backend.
func (b *LocalBackend) Generate(ctx context.Context, job Job) ([]string, error) {
	if err := b.Prepare(ctx); err != nil {
		return nil, err
	}
	req, err := params.Resolve(job.Preset, params.Input{
		Prompt:         job.Prompt,
		NegativePrompt: job.NegativePrompt,
		Size:           job.Size,
		N:              job.N,
	}, job.Overrides)
	if err != nil {
		return nil, err
	}
	b.cfg.Logger.Debug().Str("job", job.ID).Int("steps", req.Steps).Str("sampler", req.SamplerName).
		Float64("cfg", req.CFGScale).Bool("hr", req.EnableHR).Msg("txt2img payload resolved")
	return b.cfg.Submitter.Submit(ctx, req)
}
