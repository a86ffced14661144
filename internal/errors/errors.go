// Package errors collects the sentinel errors returned by registration-time
// and usage-time validation failures in the core. Reconciliation failures
// (user hook errors, transient API errors) are not modeled here; they flow
// back through the retry loop instead, see pkg/opkit.
package errors

import "errors"

var (
	// ErrNilController is returned when AddController is called with a
	// TypeBinding whose Decode function is nil.
	ErrNilController = errors.New("controller must not be nil")
	// ErrEmptyFinalizer names an empty finalizer token. No code path
	// returns it: a Descriptor with an empty finalizer gets the default
	// token instead.
	ErrEmptyFinalizer = errors.New("finalizer must not be empty")
	// ErrEmptyPlural is returned when a Descriptor is constructed without a
	// plural resource name.
	ErrEmptyPlural = errors.New("plural must not be empty")
	// ErrAlreadyRunning is returned when AddController is called after the
	// Operator has left the New state.
	ErrAlreadyRunning = errors.New("operator is no longer accepting new controllers")
	// ErrAlreadyStarted is returned when Start is called while an earlier
	// call to Start is still running.
	ErrAlreadyStarted = errors.New("operator has already been started")
	// ErrDisposed is returned when Start is called on an operator that has
	// already been stopped; operators are not restartable.
	ErrDisposed = errors.New("operator has been stopped and cannot be restarted")
)
