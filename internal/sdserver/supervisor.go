package sdserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"sdbridge/internal/common/fsutil"
	"sdbridge/internal/sdapi"
	"sdbridge/pkg/types"
)

// Supervisor owns the single inference server process of this service.
// Start, Shutdown and Switch are serialised; status reads never block on them.
type Supervisor struct {
	cfg    Config
	client *sdapi.Client
	host   string
	port   int

	lifecycle sync.Mutex // held for the whole of Start, Shutdown and Switch

	mu         sync.RWMutex
	state      State
	proc       Process
	exited     chan struct{} // closed when the owned process has been reaped
	exitErr    error
	gpu        bool
	checkpoint string
	lastErr    string
	readySince time.Time
}

// New constructs a Supervisor from cfg, applying defaults for unset fields.
func New(cfg Config) (*Supervisor, error) {
	cfg = cfg.withDefaults()
	host, port, err := endpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Root != "" {
		root, err := fsutil.ExpandHome(cfg.Root)
		if err != nil {
			return nil, err
		}
		cfg.Root = root
	}
	return &Supervisor{
		cfg:    cfg,
		client: sdapi.New(cfg.BaseURL),
		host:   host,
		port:   port,
		state:  StateStopped,
	}, nil
}

// Client returns the API client bound to the supervised server.
func (s *Supervisor) Client() *sdapi.Client { return s.client }

// Port returns the TCP port the server listens on.
func (s *Supervisor) Port() int { return s.port }

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsReady probes the models endpoint once. Any failure means not ready.
func (s *Supervisor) IsReady(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	_, err := s.client.Models(pctx)
	return err == nil
}

// Start makes sure the server is up. It returns immediately when the server
// already answers the readiness probe, whether or not this Supervisor started
// it. Otherwise it launches the server, optionally with checkpoint, and blocks
// until the probe succeeds or the startup budget elapses.
func (s *Supervisor) Start(ctx context.Context, checkpoint string) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.IsReady(ctx) {
		s.mu.Lock()
		if s.state != StateReady {
			s.state = StateReady
			s.readySince = time.Now()
			s.cfg.Logger.Info().Str("url", s.cfg.BaseURL).Msg("sd server already running")
		}
		s.mu.Unlock()
		serverReady.Set(1)
		return nil
	}
	// A previously owned child that stopped answering is replaced.
	s.reapOwned()

	if s.cfg.Root == "" || !fsutil.DirExists(s.cfg.Root) {
		return s.failStart(launchError{reason: fmt.Sprintf("webui dir not found: %q", s.cfg.Root)})
	}

	gpu := s.cfg.GPU.HasGPU()
	args := s.buildArgs(checkpoint, gpu)
	tail := newTailBuffer(4096)
	spec := LaunchSpec{
		Path:   s.cfg.Python,
		Args:   args,
		Dir:    s.cfg.Root,
		Output: io.MultiWriter(s.cfg.Output, tail),
	}

	s.setState(StateStarting)
	started := time.Now()
	proc, err := s.cfg.Launcher.Launch(spec)
	if err != nil {
		startsTotal.WithLabelValues("launch_error").Inc()
		return s.failStart(launchError{reason: "start " + s.cfg.Python, err: err})
	}
	exited := make(chan struct{})
	s.mu.Lock()
	s.proc, s.exited, s.exitErr, s.gpu = proc, exited, nil, gpu
	s.mu.Unlock()
	go func() {
		werr := proc.Wait()
		s.mu.Lock()
		s.exitErr = werr
		s.mu.Unlock()
		close(exited)
	}()

	s.cfg.Logger.Info().Int("pid", proc.Pid()).Int("port", s.port).Bool("gpu", gpu).Str("checkpoint", checkpoint).Msg("sd server starting")
	s.cfg.Publisher.Publish(Event{Name: "spawn_start", Checkpoint: checkpoint, Fields: map[string]any{"pid": proc.Pid(), "port": s.port, "gpu": gpu}})

	last, err := pollUntil(ctx, s.cfg.PollInterval, s.cfg.StartupTimeout, func(pctx context.Context) (bool, error) {
		select {
		case <-exited:
			return false, permanent(errExitedEarly)
		default:
		}
		return s.IsReady(pctx), nil
	})
	switch {
	case err == nil:
		s.mu.Lock()
		s.state = StateReady
		s.readySince = time.Now()
		s.lastErr = ""
		if checkpoint != "" {
			s.checkpoint = checkpoint
		}
		s.mu.Unlock()
		serverReady.Set(1)
		startsTotal.WithLabelValues("ready").Inc()
		startupSeconds.Observe(time.Since(started).Seconds())
		s.cfg.Logger.Info().Int("pid", proc.Pid()).Str("url", s.cfg.BaseURL).Dur("took", time.Since(started)).Msg("sd server ready")
		s.cfg.Publisher.Publish(Event{Name: "spawn_ready", Checkpoint: checkpoint, Fields: map[string]any{"pid": proc.Pid(), "url": s.cfg.BaseURL}})
		return nil
	case errors.Is(err, errExitedEarly):
		s.mu.RLock()
		werr := s.exitErr
		s.mu.RUnlock()
		s.clearOwned()
		startsTotal.WithLabelValues("exited").Inc()
		s.cfg.Publisher.Publish(Event{Name: "spawn_exit", Checkpoint: checkpoint, Fields: map[string]any{"pid": proc.Pid()}})
		if werr == nil {
			werr = errors.New("exited before ready")
		}
		return s.failStart(launchError{reason: "server exited before ready; output tail: " + tail.String(), err: werr})
	case errors.Is(err, errBudgetExceeded):
		_ = proc.Kill()
		s.waitExit(2 * time.Second)
		s.clearOwned()
		startsTotal.WithLabelValues("timeout").Inc()
		s.cfg.Publisher.Publish(Event{Name: "spawn_timeout", Checkpoint: checkpoint, Fields: map[string]any{"pid": proc.Pid()}})
		return s.failStart(timeoutError{kind: ErrStartupTimeout, what: "readiness of " + s.cfg.BaseURL, after: s.cfg.StartupTimeout, last: last})
	default:
		// caller gave up; the child is not left running unowned
		_ = proc.Kill()
		s.waitExit(2 * time.Second)
		s.clearOwned()
		startsTotal.WithLabelValues("canceled").Inc()
		return s.failStart(err)
	}
}

var errExitedEarly = errors.New("process exited")

func (s *Supervisor) buildArgs(checkpoint string, gpu bool) []string {
	args := []string{s.cfg.LaunchScript, "--api", "--listen", "--port", strconv.Itoa(s.port)}
	if checkpoint != "" {
		args = append(args, "--ckpt", checkpoint)
	}
	if gpu {
		args = append(args, gpuArgs...)
	} else {
		args = append(args, cpuArgs...)
	}
	return append(args, s.cfg.ExtraArgs...)
}

// Shutdown stops the server: a best-effort REST shutdown, a grace period, then
// a force-kill of whatever owns the port when the server is on this machine.
// The port scan also catches servers started by an earlier run. Calling it
// with nothing running is a no-op.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	owned := s.proc != nil
	s.mu.RUnlock()
	if !owned && !isPortBusy(s.host, s.port) {
		s.setState(StateStopped)
		return nil
	}

	s.setState(StateShuttingDown)
	s.cfg.Logger.Info().Int("port", s.port).Bool("owned", owned).Msg("sd server shutting down")

	sctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	if err := s.client.Shutdown(sctx); err != nil {
		s.cfg.Logger.Debug().Err(err).Msg("rest shutdown failed; continuing")
	}
	cancel()

	if s.cfg.ShutdownGrace > 0 {
		t := time.NewTimer(s.cfg.ShutdownGrace)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	// fuser only reaches local listeners; a remote server stops via REST alone.
	var killErr error
	if isLoopback(s.host) && isPortBusy(s.host, s.port) {
		kctx, kcancel := context.WithTimeout(context.Background(), 5*time.Second)
		killErr = s.cfg.PortKiller.KillPort(kctx, s.port)
		kcancel()
		if killErr != nil {
			s.cfg.Logger.Warn().Err(killErr).Int("port", s.port).Msg("port kill failed")
		}
	}
	s.reapOwned()
	s.mu.Lock()
	s.checkpoint = ""
	s.mu.Unlock()
	s.setState(StateStopped)
	serverReady.Set(0)
	s.cfg.Publisher.Publish(Event{Name: "spawn_stop", Fields: map[string]any{"port": s.port}})
	if killErr != nil && isPortBusy(s.host, s.port) {
		return fmt.Errorf("sdserver: port %d still in use after shutdown: %w", s.port, killErr)
	}
	return nil
}

// Status returns a snapshot for reporting.
func (s *Supervisor) Status() types.ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := types.ServerStatus{
		State:      string(s.state),
		URL:        s.cfg.BaseURL,
		Owned:      s.proc != nil,
		GPU:        s.gpu,
		Checkpoint: s.checkpoint,
		LastError:  s.lastErr,
	}
	if s.proc != nil {
		st.PID = s.proc.Pid()
	}
	if s.state == StateReady && !s.readySince.IsZero() {
		st.ReadySinceUnix = s.readySince.Unix()
	}
	return st
}

// Root returns the resolved webui directory.
func (s *Supervisor) Root() string { return s.cfg.Root }

// CheckpointsDir is the webui's default Stable-diffusion model folder.
func (s *Supervisor) CheckpointsDir() string {
	if s.cfg.Root == "" {
		return ""
	}
	return filepath.Join(s.cfg.Root, "models", "Stable-diffusion")
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	if st != StateReady {
		s.readySince = time.Time{}
	}
	s.mu.Unlock()
}

func (s *Supervisor) failStart(err error) error {
	s.mu.Lock()
	s.state = StateStopped
	s.lastErr = err.Error()
	s.mu.Unlock()
	serverReady.Set(0)
	s.cfg.Logger.Error().Err(err).Msg("sd server start failed")
	return err
}

// reapOwned kills the owned child, if any, and forgets it.
func (s *Supervisor) reapOwned() {
	s.mu.RLock()
	proc, exited := s.proc, s.exited
	s.mu.RUnlock()
	if proc == nil {
		return
	}
	select {
	case <-exited:
	default:
		_ = proc.Kill()
		s.waitExit(2 * time.Second)
	}
	s.clearOwned()
}

func (s *Supervisor) waitExit(d time.Duration) {
	s.mu.RLock()
	exited := s.exited
	s.mu.RUnlock()
	if exited == nil {
		return
	}
	select {
	case <-exited:
	case <-time.After(d):
	}
}

func (s *Supervisor) clearOwned() {
	s.mu.Lock()
	s.proc, s.exited = nil, nil
	s.mu.Unlock()
}
