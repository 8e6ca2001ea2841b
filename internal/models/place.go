// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package models

import (
	"github.com/khunjon/placemarks-sub005/internal/geo"
)

// Business status values reported by the places directory.
const (
	StatusOperational       = "OPERATIONAL"
	StatusClosedTemporarily = "CLOSED_TEMPORARILY"
	StatusClosedPermanently = "CLOSED_PERMANENTLY"
)

// Category tags referenced by the scoring rules.
const (
	CategoryCafe              = "cafe"
	CategoryBakery            = "bakery"
	CategoryRestaurant        = "restaurant"
	CategoryBar               = "bar"
	CategoryNightClub         = "night_club"
	CategoryMealTakeaway      = "meal_takeaway"
	CategoryPark              = "park"
	CategoryMuseum            = "museum"
	CategoryShoppingMall      = "shopping_mall"
	CategoryTouristAttraction = "tourist_attraction"
)

// MaxRating is the top of the rating scale.
const MaxRating = 5.0

// CandidatePlace is a place eligible for scoring.
type CandidatePlace struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Address        string         `json:"address,omitempty"`
	Rating         *float64       `json:"rating,omitempty"`      // 0-5, nil when unrated
	RatingCount    int            `json:"rating_count"`          // number of user ratings
	PriceLevel     *int           `json:"price_level,omitempty"` // 0-4, nil when unknown
	Categories     []string       `json:"categories"`
	BusinessStatus string         `json:"business_status,omitempty"`
	Location       geo.Coordinate `json:"location"`
}

// IsOperational reports whether the place is open for business.
// An empty status is treated as operational.
func (p *CandidatePlace) IsOperational() bool {
	return p.BusinessStatus == "" || p.BusinessStatus == StatusOperational
}

// HasAnyCategory reports whether the place carries at least one of the given tags.
func (p *CandidatePlace) HasAnyCategory(categories []string) bool {
	for _, want := range categories {
		for _, have := range p.Categories {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy.
func (p *CandidatePlace) Clone() CandidatePlace {
	out := *p
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	if p.PriceLevel != nil {
		l := *p.PriceLevel
		out.PriceLevel = &l
	}
	if p.Categories != nil {
		out.Categories = append([]string(nil), p.Categories...)
	}
	return out
}

// ScoredPlace is a candidate with its distance from the user and its score.
type ScoredPlace struct {
	CandidatePlace
	DistanceKm          float64 `json:"distance_km"`
	RecommendationScore float64 `json:"recommendation_score"`
}

// PlaceDetails is the full directory record for a single place.
type PlaceDetails struct {
	CandidatePlace
	PhoneNumber      string   `json:"phone_number,omitempty"`
	Website          string   `json:"website,omitempty"`
	OpeningHours     []string `json:"opening_hours,omitempty"`
	UTCOffsetMinutes *int     `json:"utc_offset_minutes,omitempty"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
