// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
)

// CircuitBreakerClient wraps a Source with a circuit breaker so a failing
// upstream is not hammered by the baseline, degraded and window pollers at
// once. While the circuit is open every call fails fast with
// gobreaker.ErrOpenState, which callers treat like any transport failure.
type CircuitBreakerClient struct {
	source Source
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

var _ Source = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps source. name labels the breaker in logs and metrics.
func NewCircuitBreakerClient(source Source, cfg config.BreakerConfig, name string) *CircuitBreakerClient {
	log := logging.WithComponent("circuit-breaker")

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		// Cancelled calls say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				log.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := from.String(), to.String()
			log.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{source: source, cb: cb, name: name}
}

// State returns the breaker state, for status reporting.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := c.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
			counts := c.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
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

// Latest implements Source.
func (c *CircuitBreakerClient) Latest(ctx context.Context, minutes int) (*LatestResult, error) {
	return castResult[LatestResult](c.execute(func() (any, error) {
		return c.source.Latest(ctx, minutes)
	}))
}

// Tracks implements Source.
func (c *CircuitBreakerClient) Tracks(ctx context.Context, minutes, maxPoints int) (*TracksResult, error) {
	return castResult[TracksResult](c.execute(func() (any, error) {
		return c.source.Tracks(ctx, minutes, maxPoints)
	}))
}

// TracksWindow implements Source.
func (c *CircuitBreakerClient) TracksWindow(ctx context.Context, q WindowQuery) (*TracksResult, error) {
	return castResult[TracksResult](c.execute(func() (any, error) {
		return c.source.TracksWindow(ctx, q)
	}))
}
