package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors of the remote sync.
var (
	ErrDisabled       = errors.New("remote sync disabled")
	ErrIncomplete     = errors.New("remote sync config incomplete")
	ErrConfigSource   = errors.New("remote sync config unavailable")
	ErrBadPayload     = errors.New("malformed remote payload")
	ErrAlreadyRunning = errors.New("sync cycle already in flight")
)

// StatusError is a non-2xx relay response.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: relay answered %d", e.Op, e.Code)
}
