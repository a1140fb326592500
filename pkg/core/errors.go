package core

import "errors"

// Common errors.
var (
	ErrEmptyText            = errors.New("note text cannot be empty")
	ErrNotFound             = errors.New("note not found")
	ErrInvalidCollection    = errors.New("invalid collection name")
	ErrSubscribeUnsupported = errors.New("store does not support subscriptions")
	ErrClosed               = errors.New("component is closed")
	ErrUnsupportedOrder     = errors.New("unsupported order field")
)
