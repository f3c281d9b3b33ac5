package service

import (
	"errors"
	"fmt"
)

// Sentinel errors the handlers map to HTTP statuses. Wrapped variants carry
// detail; match with errors.Is.
var (
	ErrTargetNotFound   = errors.New("target not found")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrRunNotFound      = errors.New("run not found")
	ErrNameTaken        = errors.New("name already in use")
	ErrValidation       = errors.New("validation failed")
	ErrNotActive        = errors.New("schedule is not active")
	ErrNotPaused        = errors.New("schedule is not paused")
	ErrAlreadyStopped   = errors.New("schedule is already stopped")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
