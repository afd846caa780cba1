package sdserver

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"sdbridge/internal/sdapi"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultPython          = "python"
	defaultLaunchScript    = "launch.py"
	defaultStartupTimeout  = 90 * time.Second
	defaultSwitchTimeout   = 90 * time.Second
	defaultPollInterval    = 1 * time.Second
	defaultProbeTimeout    = 2 * time.Second
	defaultShutdownGrace   = 3 * time.Second
	defaultShutdownTimeout = 2 * time.Second
	defaultRequestTimeout  = 10 * time.Second
)

// Config encapsulates all tunables for Supervisor construction.
type Config struct {
	// BaseURL of the server, e.g. http://127.0.0.1:7860. The port is derived from it.
	BaseURL string
	// Root is the stable-diffusion-webui checkout containing the launch script.
	Root string
	// Python interpreter used to run the launch script.
	Python       string
	LaunchScript string
	// ExtraArgs are appended after the generated flags.
	ExtraArgs []string

	StartupTimeout time.Duration
	// SwitchTimeout is used when Switch is called with a non-positive timeout.
	SwitchTimeout   time.Duration
	PollInterval    time.Duration
	ProbeTimeout    time.Duration
	ShutdownGrace   time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds the options and progress calls made while switching.
	RequestTimeout time.Duration

	// Output receives the child's stdout and stderr. Nil discards it.
	Output    io.Writer
	Logger    *zerolog.Logger
	Publisher EventPublisher

	// Collaborators; nil selects the OS-backed implementation.
	Launcher   Launcher
	GPU        GPUProbe
	PortKiller PortKiller
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = sdapi.DefaultHost
	}
	if c.Python == "" {
		c.Python = defaultPython
	}
	if c.LaunchScript == "" {
		c.LaunchScript = defaultLaunchScript
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = defaultStartupTimeout
	}
	if c.SwitchTimeout <= 0 {
		c.SwitchTimeout = defaultSwitchTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.ShutdownGrace < 0 {
		c.ShutdownGrace = 0
	} else if c.ShutdownGrace == 0 {
		c.ShutdownGrace = defaultShutdownGrace
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Output == nil {
		c.Output = io.Discard
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.Launcher == nil {
		c.Launcher = ExecLauncher{}
	}
	if c.GPU == nil {
		c.GPU = NvidiaSMIProbe{}
	}
	if c.PortKiller == nil {
		c.PortKiller = FuserKiller{}
	}
	return c
}
