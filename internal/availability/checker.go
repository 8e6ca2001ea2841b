// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package availability answers whether enough candidate places exist around a
// point.
//
// The check asks the place store's short-circuiting has-minimum primitive for
// the answer and then asks for the exact count for reporting. Under concurrent
// writes the two can disagree; the boolean wins and the disagreement is
// counted, not treated as an error.
package availability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// MaxRadiusMeters is the largest radius a check accepts.
const MaxRadiusMeters = 100_000

// Counter is the radius primitive of the place store.
type Counter interface {
	// HasMinimumWithinRadius reports whether at least minimum operational
	// places lie within radiusM of center. It must stop counting once the
	// minimum is reached.
	HasMinimumWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64, minimum int) (bool, error)

	// CountWithinRadius returns the exact number of operational places
	// within radiusM of center.
	CountWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64) (int, error)
}

// Config holds the defaults applied by callers that omit radius or minimum.
// MaxRadiusM may tighten the accepted radius below MaxRadiusMeters.
type Config struct {
	DefaultRadiusM float64
	DefaultMinimum int
	MaxRadiusM     float64
}

// DefaultConfig returns a 15 km radius and a minimum of 5 places.
func DefaultConfig() Config {
	return Config{DefaultRadiusM: 15_000, DefaultMinimum: 5, MaxRadiusM: MaxRadiusMeters}
}

// Request is a single availability check.
type Request struct {
	Center  geo.Coordinate `json:"center"`
	RadiusM float64        `json:"radius_m" validate:"finite,gt=0,lte=100000"`
	Minimum int            `json:"minimum" validate:"min=1"`
}

// Checker implements the availability check over a Counter.
type Checker struct {
	counter Counter
	cfg     Config
	logger  zerolog.Logger
}

// NewChecker creates a Checker. Zero config values take the defaults.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewChecker(counter Counter, cfg Config, logger zerolog.Logger) *Checker {
	def := DefaultConfig()
	if cfg.DefaultRadiusM <= 0 {
		cfg.DefaultRadiusM = def.DefaultRadiusM
	}
	if cfg.DefaultMinimum <= 0 {
		cfg.DefaultMinimum = def.DefaultMinimum
	}
	if cfg.MaxRadiusM <= 0 || cfg.MaxRadiusM > MaxRadiusMeters {
		cfg.MaxRadiusM = def.MaxRadiusM
	}
	return &Checker{
		counter: counter,
		cfg:     cfg,
		logger:  logger.With().Str("component", "availability").Logger(),
	}
}

// Defaults returns the configured default radius (metres) and minimum.
func (c *Checker) Defaults() (radiusM float64, minimum int) {
	return c.cfg.DefaultRadiusM, c.cfg.DefaultMinimum
}

// NewRequest builds a Request, substituting the defaults for a nil radius
// or minimum.
func (c *Checker) NewRequest(center geo.Coordinate, radiusM *float64, minimum *int) Request {
	req := Request{Center: center, RadiusM: c.cfg.DefaultRadiusM, Minimum: c.cfg.DefaultMinimum}
	if radiusM != nil {
		req.RadiusM = *radiusM
	}
	if minimum != nil {
		req.Minimum = *minimum
	}
	return req
}

// Check validates req and queries the store. Invalid input returns a
// *validation.ValidationError; store failures are returned wrapped.
func (c *Checker) Check(ctx context.Context, req Request) (*models.AvailabilityResult, error) {
	if verr := validation.ValidateStruct(req); verr != nil {
		metrics.AvailabilityChecks.WithLabelValues("invalid").Inc()
		return nil, verr
	}
	if req.RadiusM > c.cfg.MaxRadiusM {
		metrics.AvailabilityChecks.WithLabelValues("invalid").Inc()
		return nil, validation.New("radius_m", "lte", req.RadiusM,
			fmt.Sprintf("radius_m must be at most %.0f", c.cfg.MaxRadiusM))
	}

	hasEnough, err := c.counter.HasMinimumWithinRadius(ctx, req.Center, req.RadiusM, req.Minimum)
	if err != nil {
		metrics.AvailabilityChecks.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("has minimum within radius: %w", err)
	}

	count, err := c.counter.CountWithinRadius(ctx, req.Center, req.RadiusM)
	if err != nil {
		metrics.AvailabilityChecks.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("count within radius: %w", err)
	}

	if hasEnough != (count >= req.Minimum) {
		metrics.AvailabilityDiscrepancies.Inc()
		c.logger.Debug().
			Bool("has_enough", hasEnough).
			Int("count", count).
			Int("minimum", req.Minimum).
			Msg("Exact count disagrees with has-minimum result")
	}

	result := "insufficient"
	if hasEnough {
		result = "enough"
	}
	metrics.AvailabilityChecks.WithLabelValues(result).Inc()

	return &models.AvailabilityResult{
		HasEnough: hasEnough,
		Count:     count,
		RadiusM:   req.RadiusM,
		Minimum:   req.Minimum,
		Center:    req.Center,
	}, nil
}
