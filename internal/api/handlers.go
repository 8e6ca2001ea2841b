// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"context"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/availability"
	"github.com/khunjon/placemarks-sub005/internal/directory"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/recommend"
)

// Recommender ranks places for a user. *recommend.Engine implements it.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*models.RecommendationResult, error)
}

// AvailabilityChecker answers availability questions. *availability.Checker
// implements it.
type AvailabilityChecker interface {
	NewRequest(center geo.Coordinate, radiusM *float64, minimum *int) availability.Request
	Check(ctx context.Context, req availability.Request) (*models.AvailabilityResult, error)
}

// PlaceStore is the part of the place store the handlers write to or probe.
type PlaceStore interface {
	RecordVisit(ctx context.Context, userID, placeID string, at time.Time) error
	Ping(ctx context.Context) error
}

// Directory is the cached places directory. *directory.CachedProvider
// implements it.
type Directory interface {
	NearbySearch(ctx context.Context, userID string, req directory.NearbyRequest) (*directory.Result[[]models.CandidatePlace], error)
	TextSearch(ctx context.Context, userID string, req directory.TextRequest) (*directory.Result[[]models.CandidatePlace], error)
	PlaceDetails(ctx context.Context, userID, placeID string) (*directory.Result[*models.PlaceDetails], error)
	BreakerStates() map[string]string
}

// Dependencies are the services the handlers are built on. Now defaults to
// time.Now.
type Dependencies struct {
	Recommender Recommender
	Checker     AvailabilityChecker
	Store       PlaceStore
	Directory   Directory
	Now         func() time.Time
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_helpers.go: response and parameter helpers
//   - handlers_health.go: liveness and readiness probes
//   - handlers_recommend.go: recommendations and availability
//   - handlers_directory.go: nearby search, text search, place details
//   - handlers_visits.go: visit recording
type Handler struct {
	recommender Recommender
	checker     AvailabilityChecker
	store       PlaceStore
	directory   Directory
	now         func() time.Time
	startTime   time.Time
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		recommender: deps.Recommender,
		checker:     deps.Checker,
		store:       deps.Store,
		directory:   deps.Directory,
		now:         now,
		startTime:   now(),
	}
}
