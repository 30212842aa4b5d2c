package model

import "errors"

// Sentinel errors for document decoding.
var (
	ErrCorruptDocument = errors.New("corrupt document")
	ErrVersionMismatch = errors.New("document version mismatch")
)
