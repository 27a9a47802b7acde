package subscriber

import "errors"

// Sentinel errors for the subscriber service layer.
var (
	// ErrNotFound means an operation required an existing subscriber record
	// and none exists for the email. Never returned by Subscribe.
	ErrNotFound = errors.New("subscriber not found")
)
