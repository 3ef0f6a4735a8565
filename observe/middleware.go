package observe

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/keyfactory/querykey"
)

// Middleware wraps fetch functions with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a FetchFunc safe for concurrent use.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: Fetch contexts and results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  zerolog.Logger
}

// NewMiddleware creates a Middleware. Nil tracer or metrics are replaced
// with no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger zerolog.Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap instruments fn. The span and metric identity come from the key in
// the FetchContext, so a single wrapped function may serve many keys.
func (m *Middleware) Wrap(fn querykey.FetchFunc) querykey.FetchFunc {
	return m.wrap(fn, querykey.Key{})
}

// WrapOptions returns a copy of opts with its fetch function instrumented.
// Calls whose FetchContext carries no key are attributed to opts.Key.
// Options without a fetch function are returned unchanged.
func (m *Middleware) WrapOptions(opts querykey.Options) querykey.Options {
	opts.Fetch = m.wrap(opts.Fetch, opts.Key)
	return opts
}

func (m *Middleware) wrap(fn querykey.FetchFunc, fallback querykey.Key) querykey.FetchFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, fc querykey.FetchContext) (any, error) {
		key := fc.Key
		if key.Len() == 0 {
			key = fallback
		}
		meta := MetaFromKey(key)

		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result, err := fn(ctx, fc)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordFetch(ctx, meta, duration, err)

		logger := fetchLogger(m.logger, meta)
		if err != nil {
			logger.Error().Err(err).Dur("duration", duration).Msg("fetch failed")
		} else {
			logger.Info().Dur("duration", duration).Msg("fetch completed")
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
