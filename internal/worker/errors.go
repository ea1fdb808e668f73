package worker

import "errors"

var (
	// ErrMissingSpec — в run.requested нет графа. Сообщение уходит в DLQ.
	ErrMissingSpec = errors.New("run.requested without spec")

	// ErrWorkerStopped — Start после Stop.
	ErrWorkerStopped = errors.New("worker stopped")
)
