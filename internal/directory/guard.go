// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/khunjon/placemarks-sub005/internal/metrics"
)

// guardConfig configures the limiter and breaker of one operation.
type guardConfig struct {
	RPS             float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// guard protects one upstream operation with a token-bucket limiter and a
// circuit breaker. The breaker opens after BreakerFailures consecutive
// failures and half-opens after BreakerTimeout.
type guard struct {
	name    string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[interface{}]
	logger  zerolog.Logger
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newGuard(operation string, cfg guardConfig, logger zerolog.Logger) *guard {
	name := "directory-" + operation
	logger = logger.With().Str("breaker", name).Logger()

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// The request's own faults say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrPlaceNotFound) || errors.Is(err, ErrInvalidRequest)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logger.Warn().Str("from", fromStr).Str("to", toStr).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &guard{
		name:    name,
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
		logger:  logger,
	}
}

// execute waits for a rate token and runs fn through the breaker. The wait
// fails at once when it would outlast ctx's deadline.
func (g *guard) execute(ctx context.Context, operation string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		metrics.RecordDirectoryRequest(operation, "rate_limited", 0)
		return nil, fmt.Errorf("%w: rate limited: %w", ErrUpstreamUnavailable, err)
	}

	start := time.Now()
	result, err := g.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	duration := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordDirectoryRequest(operation, "success", duration)
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordDirectoryRequest(operation, "rejected", 0)
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	case errors.Is(err, ErrPlaceNotFound), errors.Is(err, ErrInvalidRequest):
		metrics.RecordDirectoryRequest(operation, "success", duration)
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
		return nil, err
	default:
		metrics.RecordDirectoryRequest(operation, "failure", duration)
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
		g.logger.Debug().Err(err).Str("operation", operation).Msg("Places directory call failed")
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}

// State returns the breaker state.
func (g *guard) State() gobreaker.State {
	return g.cb.State()
}

// call runs fn through g and type-asserts the result.
func call[T any](ctx context.Context, g *guard, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	result, err := g.execute(ctx, operation, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
