package service

import "errors"

// Sentinel errors of the application service.
var (
	ErrHeatNotFound        = errors.New("heat not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrHeatLocked          = errors.New("heat is locked")
	ErrInvalidLane         = errors.New("lane out of range")
	ErrInvalidSlot         = errors.New("game slot out of range")
	ErrInvalidLabels       = errors.New("exactly three game labels required")
	ErrInvalidDocument     = errors.New("backup is not a usable document")
)
