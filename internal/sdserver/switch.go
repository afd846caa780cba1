package sdserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sdbridge/internal/params"
)

// Switch loads modelName into the running server and waits for the job queue
// to drain. The options call returns before loading finishes, so an empty
// queue is the completion signal. A non-positive timeout uses the configured
// default.
func (s *Supervisor) Switch(ctx context.Context, modelName string, timeout time.Duration) error {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return params.Invalid("model_name is required")
	}
	if timeout <= 0 {
		timeout = s.cfg.SwitchTimeout
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.running(ctx) {
		return ErrServerNotRunning
	}
	started := time.Now()
	octx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	err := s.client.SetCheckpoint(octx, modelName)
	cancel()
	if err != nil {
		switchesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("sdserver: set checkpoint %q: %w", modelName, err)
	}
	s.cfg.Logger.Info().Str("checkpoint", modelName).Msg("checkpoint switch requested")

	last, err := pollUntil(ctx, s.cfg.PollInterval, timeout, func(pctx context.Context) (bool, error) {
		rctx, cancel := context.WithTimeout(pctx, s.cfg.RequestTimeout)
		defer cancel()
		p, err := s.client.Progress(rctx)
		if err != nil {
			return false, err
		}
		return p.State.JobCount == 0, nil
	})
	if err != nil {
		if errors.Is(err, errBudgetExceeded) {
			switchesTotal.WithLabelValues("timeout").Inc()
			err = timeoutError{kind: ErrModelLoadTimeout, what: fmt.Sprintf("load of %q", modelName), after: timeout, last: last}
		} else {
			switchesTotal.WithLabelValues("error").Inc()
		}
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.cfg.Logger.Error().Err(err).Str("checkpoint", modelName).Msg("checkpoint switch failed")
		return err
	}
	s.mu.Lock()
	s.checkpoint = modelName
	s.mu.Unlock()
	switchesTotal.WithLabelValues("ok").Inc()
	s.cfg.Logger.Info().Str("checkpoint", modelName).Dur("took", time.Since(started)).Msg("checkpoint loaded")
	s.cfg.Publisher.Publish(Event{Name: "checkpoint_loaded", Checkpoint: modelName})
	return nil
}

// running probes the server; a stale ready state does not count.
func (s *Supervisor) running(ctx context.Context) bool {
	if !s.IsReady(ctx) {
		return false
	}
	if s.State() != StateReady {
		s.setState(StateReady)
	}
	return true
}

func permanent(err error) error { return backoff.Permanent(err) }
