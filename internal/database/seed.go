// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"fmt"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// BangkokCenter is the reference point of the demo fixture.
var BangkokCenter = geo.New(13.7563, 100.5018)

// DemoPlaces returns a fixture of places around central Bangkok. Two of them
// lie outside the default 15 km radius and one is permanently closed.
func DemoPlaces() []models.CandidatePlace {
	return []models.CandidatePlace{
		{
			ID: "demo-wat-pho", Name: "Wat Pho", Address: "2 Sanam Chai Rd, Phra Nakhon",
			Rating: models.Float64(4.7), RatingCount: 58210,
			Categories:     []string{"tourist_attraction", "place_of_worship"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7465, 100.4927),
		},
		{
			ID: "demo-grand-palace", Name: "The Grand Palace", Address: "Na Phra Lan Rd, Phra Nakhon",
			Rating: models.Float64(4.6), RatingCount: 91544, PriceLevel: models.Int(3),
			Categories:     []string{"tourist_attraction", "museum"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7500, 100.4913),
		},
		{
			ID: "demo-lumphini-park", Name: "Lumphini Park", Address: "Rama IV Rd, Pathum Wan",
			Rating: models.Float64(4.6), RatingCount: 40112,
			Categories:     []string{"park"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7314, 100.5414),
		},
		{
			ID: "demo-roots-coffee", Name: "Roots Coffee Roaster", Address: "Sukhumvit 53, Watthana",
			Rating: models.Float64(4.5), RatingCount: 1820, PriceLevel: models.Int(2),
			Categories:     []string{"cafe", "food"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7239, 100.5815),
		},
		{
			ID: "demo-tartine", Name: "Tartine Bakery", Address: "Athenee Tower, Lumphini",
			Rating: models.Float64(4.3), RatingCount: 975, PriceLevel: models.Int(2),
			Categories:     []string{"bakery", "cafe"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7397, 100.5486),
		},
		{
			ID: "demo-jay-fai", Name: "Jay Fai", Address: "327 Maha Chai Rd, Samran Rat",
			Rating: models.Float64(4.4), RatingCount: 6403, PriceLevel: models.Int(3),
			Categories:     []string{"restaurant", "food"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7527, 100.5047),
		},
		{
			ID: "demo-thipsamai", Name: "Thipsamai Pad Thai", Address: "313 Maha Chai Rd, Samran Rat",
			Rating: models.Float64(4.1), RatingCount: 21890, PriceLevel: models.Int(1),
			Categories:     []string{"restaurant", "meal_takeaway"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7527, 100.5052),
		},
		{
			ID: "demo-sky-bar", Name: "Sky Bar", Address: "Lebua State Tower, Bang Rak",
			Rating: models.Float64(4.4), RatingCount: 12077, PriceLevel: models.Int(4),
			Categories:     []string{"bar"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7215, 100.5170),
		},
		{
			ID: "demo-route-66", Name: "Route 66", Address: "RCA Block C, Huai Khwang",
			Rating: models.Float64(4.2), RatingCount: 8630, PriceLevel: models.Int(2),
			Categories:     []string{"night_club", "bar"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7498, 100.5745),
		},
		{
			ID: "demo-iconsiam", Name: "ICONSIAM", Address: "299 Charoen Nakhon Rd, Khlong San",
			Rating: models.Float64(4.6), RatingCount: 110455,
			Categories:     []string{"shopping_mall"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.7267, 100.5104),
		},
		{
			ID: "demo-bangkok-art-centre", Name: "Bangkok Art and Culture Centre", Address: "939 Rama I Rd, Pathum Wan",
			Rating: models.Float64(4.5), RatingCount: 14310,
			Categories:     []string{"museum", "tourist_attraction"},
			BusinessStatus: models.StatusClosedPermanently, Location: geo.New(13.7466, 100.5302),
		},
		{
			ID: "demo-ancient-city", Name: "Ancient City", Address: "Sukhumvit Rd, Samut Prakan",
			Rating: models.Float64(4.6), RatingCount: 27564, PriceLevel: models.Int(2),
			Categories:     []string{"tourist_attraction", "park"},
			BusinessStatus: models.StatusOperational, Location: geo.New(13.5384, 100.6242),
		},
		{
			ID: "demo-ayutthaya-market", Name: "Bang Pa-In Market", Address: "Bang Pa-in, Phra Nakhon Si Ayutthaya",
			Rating: models.Float64(3.9), RatingCount: 212,
			Categories:     []string{"food"},
			BusinessStatus: models.StatusOperational, Location: geo.New(14.2325, 100.5790),
		},
	}
}

// Seed loads DemoPlaces into store.
func Seed(ctx context.Context, store Store) (int, error) {
	places := DemoPlaces()
	if err := store.UpsertPlaces(ctx, places); err != nil {
		return 0, fmt.Errorf("seed places: %w", err)
	}
	return len(places), nil
}
