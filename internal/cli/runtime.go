package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sdbridge/internal/config"
	"sdbridge/internal/imagegen"
	"sdbridge/internal/logging"
	"sdbridge/internal/logring"
	"sdbridge/internal/sdserver"
	"sdbridge/internal/txt2img"
)

// runtime is the wired object graph shared by every command.
type runtime struct {
	cfg  config.Config
	log  *logging.Logger
	ring *logring.Ring
	sup  *sdserver.Supervisor
	gen  *imagegen.Generator
}

// newRuntime builds loggers, the supervisor and the generation backends.
// lo selects the log sinks; level and ring are taken from cfg.
func newRuntime(ctx context.Context, cfg config.Config, lo logging.Options) (*runtime, error) {
	ring := logring.NewRing(cfg.LogRingSize)
	lo.Level = cfg.LogLevel
	lo.Ring = ring
	lg, err := logging.New(lo)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: lg, ring: ring}
	if err := rt.wire(ctx, lo); err != nil {
		_ = lg.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) wire(ctx context.Context, lo logging.Options) error {
	cfg := rt.cfg
	// the child's output goes to the same sinks as our own log lines
	var sinks []io.Writer
	if rt.log.File != nil {
		sinks = append(sinks, rt.log.File)
	}
	if !lo.NoConsole {
		if lo.Console != nil {
			sinks = append(sinks, lo.Console)
		} else {
			sinks = append(sinks, os.Stderr)
		}
	}
	childOut := logring.Tee(io.MultiWriter(sinks...), rt.ring)

	sl := rt.log.With().Str("component", "sdserver").Logger()
	sup, err := sdserver.New(sdserver.Config{
		BaseURL:        cfg.SDHost,
		Root:           cfg.WebUIRoot,
		Python:         cfg.Python,
		StartupTimeout: cfg.StartupTimeout.Duration,
		SwitchTimeout:  cfg.SwitchTimeout.Duration,
		ShutdownGrace:  cfg.ShutdownGrace.Duration,
		Output:         childOut,
		Logger:         &sl,
		Publisher:      sdserver.LogPublisher{Log: sl},
	})
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	rt.sup = sup

	var store txt2img.ArtifactStore = txt2img.NewLocalStore(cfg.OutputDir)
	if s3cfg := txt2img.S3Config(cfg.S3); s3cfg.Enabled() {
		s, err := txt2img.NewS3Store(ctx, s3cfg)
		if err != nil {
			return err
		}
		store = s
	}
	submitter := txt2img.New(txt2img.Config{
		API:         sup.Client(),
		Store:       store,
		MaxAttempts: cfg.Txt2ImgAttempts,
		Logger:      rt.log.With().Str("component", "txt2img").Logger(),
	})

	gl := rt.log.With().Str("component", "imagegen").Logger()
	gcfg := imagegen.Config{
		Local: imagegen.NewLocal(imagegen.LocalConfig{
			Server:            sup,
			Submitter:         submitter,
			DefaultCheckpoint: cfg.DefaultCheckpoint,
			SwitchTimeout:     cfg.SwitchTimeout.Duration,
			Logger:            gl,
		}),
		Logger: gl,
	}
	if cfg.ModelslabAPIKey != "" {
		m, err := imagegen.NewModelslab(imagegen.ModelslabConfig{APIKey: cfg.ModelslabAPIKey})
		if err != nil {
			return err
		}
		gcfg.Modelslab = m
	}
	if cfg.OpenAIAPIKey != "" {
		d, err := imagegen.NewDALLE(imagegen.DALLEConfig{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			return err
		}
		gcfg.DALLE = d
	}
	rt.gen = imagegen.New(gcfg)
	return nil
}

// checkpointsDir is the configured directory or the webui default.
func (rt *runtime) checkpointsDir() string {
	if rt.cfg.CheckpointsDir != "" {
		return rt.cfg.CheckpointsDir
	}
	if d := rt.sup.CheckpointsDir(); d != "" {
		return d
	}
	return filepath.Join(rt.cfg.WebUIRoot, "models", "Stable-diffusion")
}

func (rt *runtime) close() {
	_ = rt.log.Close()
}
