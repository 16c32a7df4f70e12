package task

import "errors"

var (
	ErrNotFound          = errors.New("task not found")
	ErrIllegalTransition = errors.New("illegal task state transition")
	ErrInvalidURL        = errors.New("invalid URL")
	ErrShuttingDown      = errors.New("scheduler is shutting down")
)
