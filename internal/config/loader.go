package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration read from config files as a string like "90s".
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler for all three file formats.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// S3 configures the optional object-store sink for generated images.
type S3 struct {
	Bucket      string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Region      string `json:"region" yaml:"region" toml:"region"`
	EndpointURL string `json:"endpoint_url" yaml:"endpoint_url" toml:"endpoint_url"`
	AccessKey   string `json:"access_key" yaml:"access_key" toml:"access_key"`
	SecretKey   string `json:"secret_key" yaml:"secret_key" toml:"secret_key"`
	Folder      string `json:"folder" yaml:"folder" toml:"folder"`
	VanityURL   string `json:"vanity_url" yaml:"vanity_url" toml:"vanity_url"`
}

// Config holds runtime parameters for the service.
type Config struct {
	Addr              string   `json:"addr" yaml:"addr" toml:"addr"`
	SDHost            string   `json:"sd_host" yaml:"sd_host" toml:"sd_host"`
	WebUIRoot         string   `json:"webui_root" yaml:"webui_root" toml:"webui_root"`
	Python            string   `json:"python" yaml:"python" toml:"python"`
	DefaultCheckpoint string   `json:"default_checkpoint" yaml:"default_checkpoint" toml:"default_checkpoint"`
	CheckpointsDir    string   `json:"checkpoints_dir" yaml:"checkpoints_dir" toml:"checkpoints_dir"`
	OutputDir         string   `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	StartupTimeout    Duration `json:"startup_timeout" yaml:"startup_timeout" toml:"startup_timeout"`
	SwitchTimeout     Duration `json:"switch_timeout" yaml:"switch_timeout" toml:"switch_timeout"`
	ShutdownGrace     Duration `json:"shutdown_grace" yaml:"shutdown_grace" toml:"shutdown_grace"`
	GenerateTimeout   Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`
	Txt2ImgAttempts   int      `json:"txt2img_attempts" yaml:"txt2img_attempts" toml:"txt2img_attempts"`
	MaxConcurrent     int      `json:"max_concurrent_generations" yaml:"max_concurrent_generations" toml:"max_concurrent_generations"`
	LogFile           string   `json:"log_file" yaml:"log_file" toml:"log_file"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogRingSize       int      `json:"log_ring_size" yaml:"log_ring_size" toml:"log_ring_size"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes      int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	OpenAIAPIKey      string   `json:"openai_api_key" yaml:"openai_api_key" toml:"openai_api_key"`
	ModelslabAPIKey   string   `json:"modelslab_api_key" yaml:"modelslab_api_key" toml:"modelslab_api_key"`
	S3                S3       `json:"s3" yaml:"s3" toml:"s3"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Addr:              ":8000",
		SDHost:            "http://127.0.0.1:7860",
		WebUIRoot:         "stable-diffusion-webui",
		Python:            "python",
		DefaultCheckpoint: "sd_xl_base_1.0.safetensors",
		OutputDir:         "outputs",
		StartupTimeout:    Duration{90 * time.Second},
		SwitchTimeout:     Duration{90 * time.Second},
		ShutdownGrace:     Duration{3 * time.Second},
		Txt2ImgAttempts:   5,
		LogFile:           "backend.log",
		LogLevel:          "info",
		LogRingSize:       3000,
		CORSOrigins:       []string{"*"},
		MaxBodyBytes:      1 << 20,
	}
}

// Load reads a configuration file based on its extension on top of Default().
// Keys absent from the file keep their default value.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}
