package harvest

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Option configures the middleware pipeline around a collaborator call.
//
// No retry option is offered: a failed fetch is retried only on the next user
// action or poll tick.
type Option[K, V any] func(pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]]

// Middleware identities.
var (
	timeoutID        = pipz.NewIdentity("harvest:timeout", "Bounds a collaborator call")
	circuitBreakerID = pipz.NewIdentity("harvest:circuit-breaker", "Rejects calls while the collaborator is failing")
	rateLimiterID    = pipz.NewIdentity("harvest:rate-limiter", "Spaces collaborator calls")
	errorHandlerID   = pipz.NewIdentity("harvest:error-handler", "Observes collaborator failures")
	fallbackID       = pipz.NewIdentity("harvest:fallback", "Tries an alternate collaborator on failure")
	alternateID      = pipz.NewIdentity("harvest:alternate", "Invokes the alternate collaborator")
	middlewareID     = pipz.NewIdentity("harvest:middleware", "Middleware sequence")
)

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline[K, V any](terminal pipz.Chainable[*Call[K, V]], opts []Option[K, V]) pipz.Chainable[*Call[K, V]] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// WithTimeout wraps the call with a deadline.
// If the collaborator takes longer than d, the call fails and its context is canceled.
func WithTimeout[K, V any](d time.Duration) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		return pipz.NewTimeout(timeoutID, p, d)
	}
}

// WithCircuitBreaker wraps the call with circuit breaker protection.
// After 'failures' consecutive failures, the circuit opens and rejects
// further calls until 'recovery' time has passed.
func WithCircuitBreaker[K, V any](failures int, recovery time.Duration) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		return pipz.NewCircuitBreaker(circuitBreakerID, p, failures, recovery)
	}
}

// WithRateLimit places a token bucket in front of the call.
// When tokens are exhausted, calls wait for availability or their context.
func WithRateLimit[K, V any](rate float64, burst int) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		return pipz.NewRateLimiter[*Call[K, V]](rateLimiterID, rate, burst, p)
	}
}

// WithErrorHandler adds error observation to the pipeline.
// Errors are passed to the handler for logging or metrics, but the error
// still propagates to the controller.
func WithErrorHandler[K, V any](handler pipz.Chainable[*pipz.Error[*Call[K, V]]]) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		return pipz.NewHandle(errorHandlerID, p, handler)
	}
}

// WithFallback tries alt with the same key when the call fails.
func WithFallback[K, V any](alt Fetcher[K, V]) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		secondary := pipz.Apply(alternateID, func(ctx context.Context, c *Call[K, V]) (*Call[K, V], error) {
			v, err := alt(ctx, c.Key)
			if err != nil {
				return c, err
			}
			c.Result = v
			return c, nil
		})
		return pipz.NewFallback[*Call[K, V]](fallbackID, p, secondary)
	}
}

// WithMiddleware runs processors in order before the call.
func WithMiddleware[K, V any](processors ...pipz.Chainable[*Call[K, V]]) Option[K, V] {
	return func(p pipz.Chainable[*Call[K, V]]) pipz.Chainable[*Call[K, V]] {
		all := append(append([]pipz.Chainable[*Call[K, V]]{}, processors...), p)
		return pipz.NewSequence[*Call[K, V]](middlewareID, all...)
	}
}
