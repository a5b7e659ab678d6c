package llm

import "errors"

// Error classification for completion requests. Transient errors are retried
// with backoff; fatal errors abort immediately.

// TransientError marks a temporary failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError marks a permanent failure that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }

func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err must not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
