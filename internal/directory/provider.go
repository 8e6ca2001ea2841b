// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package directory

import (
	"context"
	"errors"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// Operation names used for rate limiters, breakers and metrics.
const (
	OpNearby  = "nearby"
	OpText    = "text"
	OpDetails = "details"
)

var (
	// ErrUpstreamUnavailable is returned when the directory cannot be reached,
	// is rate limited, or its circuit breaker is open.
	ErrUpstreamUnavailable = errors.New("places directory unavailable")

	// ErrPlaceNotFound is returned when the directory has no such place.
	ErrPlaceNotFound = errors.New("place not found in directory")

	// ErrInvalidRequest is returned when the directory rejects the request.
	ErrInvalidRequest = errors.New("invalid directory request")
)

// Provider is the upstream places directory.
type Provider interface {
	NearbySearch(ctx context.Context, req NearbyRequest) ([]models.CandidatePlace, error)
	TextSearch(ctx context.Context, req TextRequest) ([]models.CandidatePlace, error)
	PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetails, error)
}

// NearbyRequest searches around a point.
type NearbyRequest struct {
	Center  geo.Coordinate `json:"center"`
	RadiusM float64        `json:"radius_m" validate:"finite,gt=0,lte=50000"`
	Type    string         `json:"type" validate:"omitempty,max=64"`
}

// TextRequest searches by free text, optionally biased to a location.
type TextRequest struct {
	Query string          `json:"q" validate:"required,max=256"`
	Bias  *geo.Coordinate `json:"bias,omitempty"`
}

// Result is a directory response and where it came from.
type Result[T any] struct {
	Data T

	// Cached is set when the value came from a cache; Stale when it is past
	// its validity window and a refresh has been queued.
	Cached bool
	Stale  bool

	// Source is "upstream" or "<tier>/<strategy>" for search cache hits.
	Source string
}

// Unavailable is a Provider for deployments without a directory. Every call
// fails with ErrUpstreamUnavailable, so only cached results are served.
type Unavailable struct{}

// NearbySearch implements Provider.
func (Unavailable) NearbySearch(context.Context, NearbyRequest) ([]models.CandidatePlace, error) {
	return nil, ErrUpstreamUnavailable
}

// TextSearch implements Provider.
func (Unavailable) TextSearch(context.Context, TextRequest) ([]models.CandidatePlace, error) {
	return nil, ErrUpstreamUnavailable
}

// PlaceDetails implements Provider.
func (Unavailable) PlaceDetails(context.Context, string) (*models.PlaceDetails, error) {
	return nil, ErrUpstreamUnavailable
}
