package params

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter marks input rejected before any network call.
var ErrInvalidParameter = errors.New("invalid parameter")

// Invalid returns an ErrInvalidParameter-wrapping error with a formatted message.
func Invalid(format string, args ...any) error {
	return invalidError{msg: fmt.Sprintf(format, args...)}
}

type invalidError struct{ msg string }

func (e invalidError) Error() string        { return e.msg }
func (e invalidError) Is(target error) bool { return target == ErrInvalidParameter }

// IsInvalidParameter reports whether err was caused by bad caller input.
func IsInvalidParameter(err error) bool { return errors.Is(err, ErrInvalidParameter) }
