package sdserver

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrProcessLaunch    = errors.New("sdserver: process launch failed")
	ErrStartupTimeout   = errors.New("sdserver: startup timeout")
	ErrModelLoadTimeout = errors.New("sdserver: model load timeout")
	ErrServerNotRunning = errors.New("sdserver: server not running")
)

// launchError reports a missing installation or a child that could not be
// started or exited before becoming ready.
type launchError struct {
	reason string
	err    error
}

func (e launchError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrProcessLaunch, e.reason, e.err)
	}
	return fmt.Sprintf("%v: %s", ErrProcessLaunch, e.reason)
}

func (e launchError) Is(target error) bool { return target == ErrProcessLaunch }
func (e launchError) Unwrap() error        { return e.err }

// IsProcessLaunch reports whether err is a launch failure.
func IsProcessLaunch(err error) bool { return errors.Is(err, ErrProcessLaunch) }

// timeoutError reports a bounded poll that ran out of budget.
type timeoutError struct {
	kind  error
	what  string
	after time.Duration
	last  error
}

func (e timeoutError) Error() string {
	msg := fmt.Sprintf("%v: %s not reached after %s", e.kind, e.what, e.after)
	if e.last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.last)
	}
	return msg
}

func (e timeoutError) Is(target error) bool { return target == e.kind }
func (e timeoutError) Unwrap() error        { return e.last }

// IsStartupTimeout reports whether err means the server never became ready.
func IsStartupTimeout(err error) bool { return errors.Is(err, ErrStartupTimeout) }

// IsModelLoadTimeout reports whether err means a checkpoint switch never drained.
func IsModelLoadTimeout(err error) bool { return errors.Is(err, ErrModelLoadTimeout) }

// IsServerNotRunning reports whether err means an operation needed a running server.
func IsServerNotRunning(err error) bool { return errors.Is(err, ErrServerNotRunning) }
