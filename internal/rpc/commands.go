package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sdbridge/internal/imagegen"
	"sdbridge/internal/params"
	"sdbridge/pkg/types"
)

// ImageGenerator is the generation entry point used by images.generate.
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request, d imagegen.Defaults) ([]string, error)
}

// ServerControl is the local server lifecycle used by the local_sd.* methods.
type ServerControl interface {
	Start(ctx context.Context, checkpoint string) error
	Shutdown(ctx context.Context) error
	Switch(ctx context.Context, modelName string, timeout time.Duration) error
	Status() types.ServerStatus
}

// Services are the dependencies of the standard command table.
type Services struct {
	Images   ImageGenerator
	Server   ServerControl
	Defaults imagegen.Defaults
}

// DefaultSwitchTimeoutSeconds applies when local_sd.switch_model omits timeout.
const DefaultSwitchTimeoutSeconds = 90

// Commands returns the worker command table.
func Commands(svc Services) []Command {
	return []Command{
		{Method: "images.generate", Handle: svc.generate},
		{Method: "local_sd.start", Handle: svc.start},
		{Method: "local_sd.shutdown", Handle: svc.shutdown},
		{Method: "local_sd.switch_model", Handle: svc.switchModel},
		{Method: "local_sd.status", Handle: svc.status},
	}
}

// generateParams accepts the HTTP body shape; sd_params is an alias of sd_overrides.
type generateParams struct {
	types.GenerateRequest
	SDParams json.RawMessage `json:"sd_params,omitempty"`
}

func (s Services) generate(ctx context.Context, log zerolog.Logger, raw json.RawMessage) (any, error) {
	var p generateParams
	if err := Decode(raw, &p); err != nil {
		return nil, err
	}
	overridesRaw := p.SDOverrides
	if len(overridesRaw) == 0 {
		overridesRaw = p.SDParams
	}
	ov, err := params.DecodeOverrides(overridesRaw)
	if err != nil {
		return nil, InvalidParams(err)
	}
	refs, err := s.Images.Generate(ctx, imagegen.Request{
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Size:           p.Size,
		N:              p.N,
		Model:          p.Model,
		Preset:         p.Preset,
		Overrides:      ov,
	}, s.Defaults)
	if params.IsInvalidParameter(err) {
		return nil, InvalidParams(err)
	}
	if err != nil {
		return nil, err
	}
	log.Debug().Int("images", len(refs)).Msg("images generated")
	return refs, nil
}

func (s Services) start(ctx context.Context, _ zerolog.Logger, raw json.RawMessage) (any, error) {
	var p types.ServerStartRequest
	if err := Decode(raw, &p); err != nil {
		return nil, err
	}
	return nil, s.Server.Start(ctx, p.ModelPath)
}

func (s Services) shutdown(ctx context.Context, _ zerolog.Logger, _ json.RawMessage) (any, error) {
	return nil, s.Server.Shutdown(ctx)
}

func (s Services) switchModel(ctx context.Context, _ zerolog.Logger, raw json.RawMessage) (any, error) {
	p := types.ServerSwitchRequest{Timeout: DefaultSwitchTimeoutSeconds}
	if err := Decode(raw, &p); err != nil {
		return nil, err
	}
	if p.ModelName == "" {
		return nil, InvalidParams(errors.New("model_name is required"))
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultSwitchTimeoutSeconds
	}
	return nil, s.Server.Switch(ctx, p.ModelName, time.Duration(p.Timeout)*time.Second)
}

func (s Services) status(context.Context, zerolog.Logger, json.RawMessage) (any, error) {
	return s.Server.Status(), nil
}
