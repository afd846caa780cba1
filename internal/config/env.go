package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every service-specific environment variable.
const EnvPrefix = "SDBRIDGE_"

// ApplyEnv overlays environment variables onto cfg. Besides SDBRIDGE_<FIELD>
// (upper-cased key name) it honours LOCAL_SD_HOST, OPENAI_API_KEY and
// MODELSLAB_API_KEY. The prefixed form wins when both are set.
func ApplyEnv(cfg *Config) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := os.LookupEnv(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&cfg.Addr, EnvPrefix+"ADDR")
	str(&cfg.SDHost, EnvPrefix+"SD_HOST", "LOCAL_SD_HOST")
	str(&cfg.WebUIRoot, EnvPrefix+"WEBUI_ROOT")
	str(&cfg.Python, EnvPrefix+"PYTHON")
	str(&cfg.DefaultCheckpoint, EnvPrefix+"DEFAULT_CHECKPOINT")
	str(&cfg.CheckpointsDir, EnvPrefix+"CHECKPOINTS_DIR")
	str(&cfg.OutputDir, EnvPrefix+"OUTPUT_DIR")
	str(&cfg.LogFile, EnvPrefix+"LOG_FILE")
	str(&cfg.LogLevel, EnvPrefix+"LOG_LEVEL")
	str(&cfg.OpenAIAPIKey, EnvPrefix+"OPENAI_API_KEY", "OPENAI_API_KEY")
	str(&cfg.ModelslabAPIKey, EnvPrefix+"MODELSLAB_API_KEY", "MODELSLAB_API_KEY")
	str(&cfg.S3.Bucket, EnvPrefix+"S3_BUCKET")
	str(&cfg.S3.Region, EnvPrefix+"S3_REGION")
	str(&cfg.S3.EndpointURL, EnvPrefix+"S3_ENDPOINT_URL")
	str(&cfg.S3.AccessKey, EnvPrefix+"S3_ACCESS_KEY")
	str(&cfg.S3.SecretKey, EnvPrefix+"S3_SECRET_KEY")
	str(&cfg.S3.Folder, EnvPrefix+"S3_FOLDER")
	str(&cfg.S3.VanityURL, EnvPrefix+"S3_VANITY_URL")

	if v := os.Getenv(EnvPrefix + "CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = SplitCSV(v)
	}
	durs := []struct {
		key string
		dst *Duration
	}{
		{"STARTUP_TIMEOUT", &cfg.StartupTimeout},
		{"SWITCH_TIMEOUT", &cfg.SwitchTimeout},
		{"SHUTDOWN_GRACE", &cfg.ShutdownGrace},
		{"GENERATE_TIMEOUT", &cfg.GenerateTimeout},
	}
	for _, d := range durs {
		v := os.Getenv(EnvPrefix + d.key)
		if v == "" {
			continue
		}
		p, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, d.key, err)
		}
		d.dst.Duration = p
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"TXT2IMG_ATTEMPTS", &cfg.Txt2ImgAttempts},
		{"MAX_CONCURRENT_GENERATIONS", &cfg.MaxConcurrent},
		{"LOG_RING_SIZE", &cfg.LogRingSize},
	}
	for _, i := range ints {
		v := os.Getenv(EnvPrefix + i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, i.key, err)
		}
		*i.dst = n
	}
	if v := os.Getenv(EnvPrefix + "MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", EnvPrefix, err)
		}
		cfg.MaxBodyBytes = n
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
