package kafka

import (
	"time"

	"github.com/okian/paddock/pkg/logger"
)

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxRetries sets how many times a failed ingest is retried before the
// message is left uncommitted.
func WithMaxRetries(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the base delay between ingest retries. Each retry
// doubles it.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.backoff = d
		}
	}
}
