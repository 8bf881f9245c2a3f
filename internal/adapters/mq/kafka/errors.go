package kafka

import "errors"

// Sentinel kinds for consumer errors.
var (
	ErrMalformedMessage = errors.New("malformed activity message")
	ErrNoBrokers        = errors.New("no kafka brokers configured")
)
