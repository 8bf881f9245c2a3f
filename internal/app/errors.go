package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrMissingHorseID = errors.New("horseId is required")
	ErrInvalidWindow  = errors.New("invalid lookback window")
	ErrBackpressure   = errors.New("ingest queue is full")
	ErrNotStarted     = errors.New("service not started")
)
