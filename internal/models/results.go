// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package models

import (
	"fmt"

	"github.com/khunjon/placemarks-sub005/internal/geo"
)

// AvailabilityResult answers whether enough places exist around a center.
// Count comes from a separate exact query and may disagree with HasEnough
// when the store changes between the two calls.
type AvailabilityResult struct {
	HasEnough bool           `json:"has_enough"`
	Count     int            `json:"count"`
	RadiusM   float64        `json:"radius_m"`
	Minimum   int            `json:"minimum"`
	Center    geo.Coordinate `json:"center"`
}

// Message renders a human-readable availability summary.
func (a *AvailabilityResult) Message() string {
	radiusKm := a.RadiusM / 1000
	switch {
	case a.HasEnough:
		return fmt.Sprintf("Found %d places within %.1f km", a.Count, radiusKm)
	case a.Count == 0:
		return fmt.Sprintf("No places found within %.1f km", radiusKm)
	default:
		return fmt.Sprintf("Only %d of the %d places needed within %.1f km", a.Count, a.Minimum, radiusKm)
	}
}

// RecommendationResult is the ranked output of the recommendation engine.
// Places is never nil so it always serializes as an array.
type RecommendationResult struct {
	Places         []ScoredPlace `json:"places"`
	HasMore        bool          `json:"has_more"`
	TotalAvailable int           `json:"total_available"`
	RadiusKm       float64       `json:"radius_km"`
	ExcludedCount  int           `json:"excluded_count"`
}

// EmptyRecommendations returns a well-formed result with no places.
func EmptyRecommendations(radiusKm float64, totalAvailable int) *RecommendationResult {
	return &RecommendationResult{
		Places:         []ScoredPlace{},
		TotalAvailable: totalAvailable,
		RadiusKm:       radiusKm,
	}
}
