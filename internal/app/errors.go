package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrNotYetCreated     = errors.New("issue not yet created at cutoff")
	ErrInvalidYear       = errors.New("invalid year")
	ErrInvalidDataset    = errors.New("invalid dataset")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)
