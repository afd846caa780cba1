package txt2img

import (
	"errors"
	"fmt"
)

// ErrEndpointUnavailable means the txt2img route kept answering 404 after
// every allowed attempt, typically because the server is still registering
// its API routes.
var ErrEndpointUnavailable = errors.New("txt2img: endpoint unavailable")

type unavailableError struct {
	attempts int
	last     error
}

func (e unavailableError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrEndpointUnavailable, e.attempts, e.last)
}

func (e unavailableError) Is(target error) bool { return target == ErrEndpointUnavailable }
func (e unavailableError) Unwrap() error        { return e.last }

// IsEndpointUnavailable reports whether err is an exhausted 404 retry.
func IsEndpointUnavailable(err error) bool { return errors.Is(err, ErrEndpointUnavailable) }
