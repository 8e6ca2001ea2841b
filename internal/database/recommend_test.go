// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/availability"
	"github.com/khunjon/placemarks-sub005/internal/database"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/recommend"
)

func newEngine(t *testing.T, store database.Store) *recommend.Engine {
	t.Helper()
	checker := availability.NewChecker(store, availability.DefaultConfig(), zerolog.Nop())
	engine, err := recommend.NewEngine(nil, checker, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestRecommend_NotEnoughPlacesInBangkok(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore(zerolog.Nop())

	places := []models.CandidatePlace{
		{ID: "a", Location: geo.New(13.7527, 100.5047)},
		{ID: "b", Location: geo.New(13.7465, 100.4927), BusinessStatus: models.StatusOperational},
		{ID: "c", Location: geo.New(13.7314, 100.5414)},
		{ID: "d", Location: geo.New(13.7215, 100.5170)},
		{ID: "closed", Location: geo.New(13.7466, 100.5302), BusinessStatus: models.StatusClosedPermanently},
		{ID: "far", Location: geo.New(13.5384, 100.6242)},
	}
	if err := store.UpsertPlaces(ctx, places); err != nil {
		t.Fatalf("UpsertPlaces() error = %v", err)
	}

	result, err := newEngine(t, store).Recommend(ctx, recommend.Request{
		UserID: "u1",
		Center: database.BangkokCenter,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Places == nil || len(result.Places) != 0 {
		t.Errorf("Places = %v, want []", result.Places)
	}
	if result.TotalAvailable != 4 || result.HasMore {
		t.Errorf("result = %+v, want total_available 4 and has_more false", result)
	}
	if result.RadiusKm != 15 {
		t.Errorf("RadiusKm = %v, want 15", result.RadiusKm)
	}
}

func TestRecommend_SeededStoreExcludesVisits(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore(zerolog.Nop())
	if _, err := database.Seed(ctx, store); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if err := store.RecordVisit(ctx, "u1", "demo-wat-pho", time.Now()); err != nil {
		t.Fatalf("RecordVisit() error = %v", err)
	}

	result, err := newEngine(t, store).Recommend(ctx, recommend.Request{
		UserID: "u1",
		Center: database.BangkokCenter,
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Places) != 5 || !result.HasMore {
		t.Fatalf("got %d places, has_more=%v", len(result.Places), result.HasMore)
	}
	if result.TotalAvailable != 10 || result.ExcludedCount != 1 {
		t.Errorf("total=%d excluded=%d, want 10 and 1", result.TotalAvailable, result.ExcludedCount)
	}
	for i, p := range result.Places {
		if p.ID == "demo-wat-pho" {
			t.Error("visited place recommended")
		}
		if i > 0 && p.RecommendationScore > result.Places[i-1].RecommendationScore {
			t.Errorf("not sorted by score at %d", i)
		}
	}
}
