package worker

import "errors"

var (
	ErrUnknownJob      = errors.New("worker: unknown job")
	ErrInvalidInterval = errors.New("worker: job interval must be positive")
)
