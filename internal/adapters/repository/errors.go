package repository

import "errors"

// Sentinel kinds for activity store errors.
var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrClosed        = errors.New("store closed")
)
