package task

import (
	"errors"
	"fmt"
)

// Common errors returned by task queues and the registry
var (
	ErrQueueClosed        = errors.New("task queue is closed")
	ErrQueueFull          = errors.New("task queue is full")
	ErrInvalidDescriptor  = errors.New("invalid task descriptor")
	ErrUnknownTaskType    = errors.New("unknown task type")
	ErrDuplicateTaskType  = errors.New("task type already registered")
	ErrNilController      = errors.New("inventory controller cannot be nil")
	ErrRunnerStarted      = errors.New("task runner already started")
	ErrTaskPanicked       = errors.New("task panicked")
	ErrInvalidTaskPayload = errors.New("invalid task payload")
)

// PermanentError marks a task failure that must not be retried.
type PermanentError struct {
	Err error
}

// Error implements the error interface.
func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent failure: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that the runner fails the task without retrying it.
// A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or any error it wraps, is a PermanentError.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
