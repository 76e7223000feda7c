package domain

import "errors"

var (
	ErrSessionNotFound = errors.New("explorer session not found")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidMapStyle = errors.New("invalid map style")
	ErrInvalidRange    = errors.New("invalid range")
)

// ErrTooManySessions is returned when the explorer session limit is reached.
var ErrTooManySessions = errors.New("too many explorer sessions")
