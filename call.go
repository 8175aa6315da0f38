package harvest

import (
	"context"
	"errors"
	"time"

	"github.com/zoobzio/pipz"
)

// Fetcher is a single collaborator call keyed by K: a district list keyed by
// state, a price forecast keyed by commodity and market, a sensor reading keyed
// by device id.
type Fetcher[K, V any] func(ctx context.Context, key K) (V, error)

// Call carries one collaborator invocation through a middleware pipeline.
type Call[K, V any] struct {
	// Key is the input the call was issued for.
	Key K

	// Result is set by the terminal processor on success.
	Result V

	// Issued is when the call entered the pipeline.
	Issued time.Time
}

var callID = pipz.NewIdentity("harvest:call", "Invokes the wrapped collaborator")

// Wrap builds a middleware pipeline around fn and returns it as a Fetcher.
// Options apply in order, each wrapping the pipeline built so far, so the last
// option is outermost.
//
// Example:
//
//	districts := harvest.Wrap("districts", backend.Districts,
//	    harvest.WithTimeout[string, []string](10*time.Second),
//	    harvest.WithCircuitBreaker[string, []string](5, 30*time.Second),
//	)
func Wrap[K, V any](name string, fn Fetcher[K, V], opts ...Option[K, V]) Fetcher[K, V] {
	id := callID
	if name != "" {
		id = pipz.NewIdentity("harvest:"+name, "Invokes the "+name+" collaborator")
	}
	terminal := pipz.Apply(id, func(ctx context.Context, c *Call[K, V]) (*Call[K, V], error) {
		v, err := fn(ctx, c.Key)
		if err != nil {
			return c, err
		}
		c.Result = v
		return c, nil
	})
	pipeline := buildPipeline(terminal, opts)

	return func(ctx context.Context, key K) (V, error) {
		out, err := pipeline.Process(ctx, &Call[K, V]{Key: key, Issued: time.Now()})
		if err != nil {
			var zero V
			return zero, unwrapPipeline[K, V](err)
		}
		return out.Result, nil
	}
}

// unwrapPipeline strips the pipeline's error envelope so callers see the
// collaborator's own error.
func unwrapPipeline[K, V any](err error) error {
	var perr *pipz.Error[*Call[K, V]]
	for errors.As(err, &perr) && perr.Err != nil {
		err = perr.Err
	}
	return err
}
