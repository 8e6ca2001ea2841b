// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package recommend

import (
	"fmt"
	"time"
)

// Config contains the engine's operating parameters.
type Config struct {
	// DefaultRadiusKm is the search radius for availability and candidates.
	DefaultRadiusKm float64 `json:"default_radius_km"`

	// MinimumPlaces is how many places must exist before recommending.
	MinimumPlaces int `json:"minimum_places"`

	// DefaultLimit applies when a request omits its limit; MaxLimit caps it.
	DefaultLimit int `json:"default_limit"`
	MaxLimit     int `json:"max_limit"`

	// MaxDistanceKm is the distance that incurs the full distance penalty.
	MaxDistanceKm float64 `json:"max_distance_km"`

	// CandidateMultiplier scales the limit to size the candidate fetch.
	CandidateMultiplier int `json:"candidate_multiplier"`

	// FallbackScanLimit bounds the unfiltered listing used when the radius
	// query fails.
	FallbackScanLimit int `json:"fallback_scan_limit"`

	// Timeout bounds a whole request. Zero disables it.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultRadiusKm:     15,
		MinimumPlaces:       5,
		DefaultLimit:        10,
		MaxLimit:            50,
		MaxDistanceKm:       15,
		CandidateMultiplier: 2,
		FallbackScanLimit:   500,
		Timeout:             8 * time.Second,
	}
}

// Validate checks the configuration for impossible values.
func (c *Config) Validate() error {
	if c.DefaultRadiusKm <= 0 || c.DefaultRadiusKm > 100 {
		return fmt.Errorf("default_radius_km must be in (0, 100], got %f", c.DefaultRadiusKm)
	}
	if c.MinimumPlaces < 1 {
		return fmt.Errorf("minimum_places must be positive, got %d", c.MinimumPlaces)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("max_distance_km must be positive, got %f", c.MaxDistanceKm)
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("candidate_multiplier must be positive, got %d", c.CandidateMultiplier)
	}
	if c.FallbackScanLimit < 1 {
		return fmt.Errorf("fallback_scan_limit must be positive, got %d", c.FallbackScanLimit)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", c.Timeout)
	}
	return nil
}
