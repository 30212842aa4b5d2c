package csvio

import "errors"

// Sentinel errors of the CSV boundary.
var (
	ErrNoRecords     = errors.New("roster has no usable records")
	ErrMissingHeader = errors.New("roster header lacks a required column")
)
