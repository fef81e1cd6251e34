package domino

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the callback pipeline of a watcher. Pipeline options
// wrap the user callback with middleware for retry, timeout, and error
// observation. They apply to user logic only: the engine's own stop paths
// are unconditional and never wrapped.
type Option func(pipz.Chainable[*Request]) pipz.Chainable[*Request]

// WithRetry wraps the callback with retry logic.
// Failed callbacks are retried immediately up to maxAttempts times.
// For exponential backoff between retries, use WithBackoff instead.
func WithRetry(maxAttempts int) Option {
	return func(p pipz.Chainable[*Request]) pipz.Chainable[*Request] {
		return pipz.NewRetry("retry", p, maxAttempts)
	}
}

// WithBackoff wraps the callback with exponential backoff retry logic.
// Failed callbacks are retried with increasing delays: baseDelay,
// 2*baseDelay, 4*baseDelay, etc.
func WithBackoff(maxAttempts int, baseDelay time.Duration) Option {
	return func(p pipz.Chainable[*Request]) pipz.Chainable[*Request] {
		return pipz.NewBackoff("backoff", p, maxAttempts, baseDelay)
	}
}

// WithTimeout wraps the callback with a deadline. If the callback takes
// longer than the specified duration, the scope attempt fails with a
// timeout error.
func WithTimeout(d time.Duration) Option {
	return func(p pipz.Chainable[*Request]) pipz.Chainable[*Request] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithErrorHandler adds error observation to the callback pipeline.
// Errors are passed to the handler for logging, metrics, or alerting,
// but the error still propagates. Use this for observability, not recovery.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Request]]) Option {
	return func(p pipz.Chainable[*Request]) pipz.Chainable[*Request] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithMiddleware wraps the callback with a sequence of processors.
// Processors execute in order, with the user callback last.
func WithMiddleware(processors ...pipz.Chainable[*Request]) Option {
	return func(p pipz.Chainable[*Request]) pipz.Chainable[*Request] {
		all := make([]pipz.Chainable[*Request], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// UseEffect creates a processor that performs a side effect. The request
// passes through unchanged. Use for logging, metrics, or notifications
// inside WithMiddleware.
func UseEffect(name string, fn func(context.Context, *Request) error) pipz.Chainable[*Request] {
	return pipz.Effect(pipz.Name(name), fn)
}
