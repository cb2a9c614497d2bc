package transport

import "errors"

var (
	// ErrUnavailable means the server could not be reached at all.
	// The condition is transient; queued work is retried later.
	ErrUnavailable = errors.New("server unavailable")

	// ErrRejected means the server answered with an application-level
	// error (bad credential, validation failure). Retrying without user
	// action will not help.
	ErrRejected = errors.New("server rejected request")
)
