package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownSyncState = errors.New("unknown sync state")
)
