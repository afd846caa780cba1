// Package imagegen is the single entry point for image generation. It picks
// a backend from the model selector, validates the request and returns
// artifact references: absolute file paths for the local server, URLs for
// the cloud APIs.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sdbridge/internal/params"
)

// Kind names a backend family.
type Kind string

const (
	KindLocal     Kind = "local"
	KindModelslab Kind = "modelslab"
	KindDALLE     Kind = "dalle"
)

var selectors = map[string]Kind{
	"local":                  KindLocal,
	"local_sd":               KindLocal,
	"local_stable-diffusion": KindLocal,
	"local_sdxl":             KindLocal,
	"stable-diffusion":       KindModelslab,
	"sd":                     KindModelslab,
	"sdxl":                   KindModelslab,
	"dalle":                  KindDALLE,
	"dall-e":                 KindDALLE,
	"dalle3":                 KindDALLE,
}

// Select maps a user-facing model selector to a backend kind.
func Select(model string) (Kind, error) {
	if k, ok := selectors[strings.ToLower(strings.TrimSpace(model))]; ok {
		return k, nil
	}
	return "", params.Invalid("unsupported model: %s", model)
}

// ErrBackendNotConfigured is returned when a selector maps to a backend that
// was not wired, usually for lack of an API key.
var ErrBackendNotConfigured = errors.New("imagegen: backend not configured")

// Job is a validated request handed to a backend.
type Job struct {
	ID             string
	Prompt         string
	NegativePrompt string
	Size           string
	Width, Height  int
	N              int
	Preset         string
	Overrides      params.Overrides
}

// Backend produces images for a Job.
type Backend interface {
	Generate(ctx context.Context, job Job) ([]string, error)
}

// Request is the caller-facing input. Zero fields take the generator's defaults.
type Request struct {
	Prompt         string
	NegativePrompt *string
	Size           string
	N              int
	Model          string
	Preset         string
	Overrides      params.Overrides
}

// Defaults fill in fields a Request leaves empty.
type Defaults struct {
	NegativePrompt string
	Size           string
	N              int
	Model          string
	Preset         string
	// StrictPreset rejects preset names outside the catalog for the local
	// backend. Otherwise unknown names fall back to the default preset.
	StrictPreset bool
}

// LibraryDefaults apply to direct and RPC calls.
var LibraryDefaults = Defaults{NegativePrompt: "bad quality", Size: "1024x1024", N: 1, Model: "stable-diffusion", Preset: params.DefaultPreset}

// HTTPDefaults apply to POST /generate.
var HTTPDefaults = Defaults{Size: "768x768", N: 1, Model: "local", Preset: params.DefaultPreset, StrictPreset: true}

// MaxImages bounds N.
const MaxImages = 8

// Config wires a Generator. Nil backends answer ErrBackendNotConfigured.
type Config struct {
	Local     Backend
	Modelslab Backend
	DALLE     Backend
	Logger    zerolog.Logger
}

// Generator routes requests to backends.
type Generator struct {
	backends map[Kind]Backend
	log      zerolog.Logger
}

// New builds a Generator.
func New(cfg Config) *Generator {
	b := map[Kind]Backend{}
	if cfg.Local != nil {
		b[KindLocal] = cfg.Local
	}
	if cfg.Modelslab != nil {
		b[KindModelslab] = cfg.Modelslab
	}
	if cfg.DALLE != nil {
		b[KindDALLE] = cfg.DALLE
	}
	return &Generator{backends: b, log: cfg.Logger}
}

// Generate validates req against d, dispatches it and returns the artifact
// references in backend order. Validation failures satisfy
// params.IsInvalidParameter.
func (g *Generator) Generate(ctx context.Context, req Request, d Defaults) ([]string, error) {
	kind, job, err := prepare(req, d)
	if err != nil {
		requestsTotal.WithLabelValues("invalid", "invalid").Inc()
		return nil, err
	}
	backend, ok := g.backends[kind]
	if !ok {
		requestsTotal.WithLabelValues(string(kind), "unconfigured").Inc()
		return nil, fmt.Errorf("%w: %s", ErrBackendNotConfigured, kind)
	}

	log := g.log.With().Str("job", job.ID).Str("backend", string(kind)).Logger()
	log.Info().Str("size", job.Size).Int("n", job.N).Str("preset", job.Preset).Msg("generate")
	start := time.Now()
	refs, err := backend.Generate(ctx, job)
	if err != nil {
		requestsTotal.WithLabelValues(string(kind), "error").Inc()
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("generate failed")
		return nil, err
	}
	requestsTotal.WithLabelValues(string(kind), "ok").Inc()
	generateSeconds.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	log.Info().Int("images", len(refs)).Dur("took", time.Since(start)).Msg("generate done")
	return refs, nil
}

func prepare(req Request, d Defaults) (Kind, Job, error) {
	model := firstNonEmpty(req.Model, d.Model)
	kind, err := Select(model)
	if err != nil {
		return "", Job{}, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", Job{}, params.Invalid("prompt cannot be empty")
	}
	size := firstNonEmpty(req.Size, d.Size)
	w, h, err := ValidateSize(size)
	if err != nil {
		return "", Job{}, err
	}
	n := req.N
	if n == 0 {
		n = d.N
	}
	if n < 1 || n > MaxImages {
		return "", Job{}, params.Invalid("n must be between 1 and %d, got %d", MaxImages, n)
	}
	preset := strings.ToLower(firstNonEmpty(req.Preset, d.Preset))
	if kind == KindLocal {
		p, ok := params.Lookup(preset)
		if !ok && d.StrictPreset {
			return "", Job{}, params.Invalid("preset must be one of %s, got %q", strings.Join(params.Names(), "|"), preset)
		}
		preset = p.Name
	}
	neg := d.NegativePrompt
	if req.NegativePrompt != nil {
		neg = *req.NegativePrompt
	}
	return kind, Job{
		ID:             uuid.NewString(),
		Prompt:         req.Prompt,
		NegativePrompt: neg,
		Size:           size,
		Width:          w,
		Height:         h,
		N:              n,
		Preset:         preset,
		Overrides:      req.Overrides,
	}, nil
}

var strictSize = regexp.MustCompile(`^\d+x\d+$`)

// ValidateSize accepts "WxH" with both sides positive multiples of 64.
func ValidateSize(size string) (int, int, error) {
	if !strictSize.MatchString(size) {
		return 0, 0, params.Invalid(`size must be like "1024x1024"`)
	}
	w, h, err := params.ParseSize(size)
	if err != nil {
		return 0, 0, err
	}
	if w%64 != 0 || h%64 != 0 {
		return 0, 0, params.Invalid("width and height must be multiples of 64, got %s", size)
	}
	return w, h, nil
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
