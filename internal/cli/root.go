// Package cli is the sdbridge command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sdbridge/internal/config"
)

const envPrefix = "SDBRIDGE"

// options carries the resolved configuration from the root pre-run to the
// subcommands.
type options struct {
	v   *viper.Viper
	cfg config.Config
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Configuration precedence is
// flag > SDBRIDGE_* env > config file > defaults.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{cfg: config.Default()})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "sdbridge",
		Short:         "Local Stable Diffusion server supervisor and image generation bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.String("env-file", ".env", "Env file loaded before reading the environment; missing is fine")
	pf.String("log-level", "", "Log level: trace|debug|info|warn|error (default info)")
	pf.String("log-file", "", "Rotated log file (default backend.log)")
	pf.String("sd-host", "", "Inference server base URL (default http://127.0.0.1:7860, or LOCAL_SD_HOST)")
	pf.String("webui-root", "", "stable-diffusion-webui checkout containing launch.py")
	pf.String("python", "", "Python interpreter used to run launch.py")
	pf.String("default-checkpoint", "", "Checkpoint switched to the first time the local backend is used")
	pf.String("checkpoints-dir", "", "Directory listed by /checkpoints (default <webui-root>/models/Stable-diffusion)")
	pf.String("output-dir", "", "Directory generated images are written to")
	pf.Duration("startup-timeout", 0, "How long to wait for the server to become ready")
	pf.Duration("switch-timeout", 0, "How long to wait for a checkpoint switch to drain")

	root.AddCommand(newServeCmd(o), newWorkerCmd(o), newServerCmd(o), newGenerateCmd(o), newCheckpointsCmd(o))
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

func (o *options) load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	o.v = v

	if err := config.LoadDotEnv(v.GetString("env-file")); err != nil {
		return err
	}
	cfg := config.Default()
	if path := v.GetString("config"); path != "" {
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return err
	}
	overlay(v, &cfg)
	o.cfg = cfg
	return nil
}

// overlay copies explicitly set flags (and their SDBRIDGE_* env twins) onto cfg.
func overlay(v *viper.Viper, cfg *config.Config) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	dur := func(key string, dst *config.Duration) {
		if v.IsSet(key) {
			if d := v.GetDuration(key); d > 0 {
				dst.Duration = d
			}
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			if n := v.GetInt(key); n > 0 {
				*dst = n
			}
		}
	}
	str("addr", &cfg.Addr)
	str("sd-host", &cfg.SDHost)
	str("webui-root", &cfg.WebUIRoot)
	str("python", &cfg.Python)
	str("default-checkpoint", &cfg.DefaultCheckpoint)
	str("checkpoints-dir", &cfg.CheckpointsDir)
	str("output-dir", &cfg.OutputDir)
	str("log-file", &cfg.LogFile)
	str("log-level", &cfg.LogLevel)
	dur("startup-timeout", &cfg.StartupTimeout)
	dur("switch-timeout", &cfg.SwitchTimeout)
	dur("generate-timeout", &cfg.GenerateTimeout)
	num("max-concurrent-generations", &cfg.MaxConcurrent)
	num("txt2img-attempts", &cfg.Txt2ImgAttempts)
	if v.IsSet("max-body-bytes") {
		if n := v.GetInt64("max-body-bytes"); n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v.IsSet("cors-origins") {
		if origins := config.SplitCSV(v.GetString("cors-origins")); len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
	}
}
