// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"fmt"
	"testing"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

func gridPlace(id string, lat, lon float64) *models.CandidatePlace {
	return &models.CandidatePlace{ID: id, Location: geo.New(lat, lon)}
}

func collect(g *spatialGrid, center geo.Coordinate, radiusKm float64) map[string]float64 {
	out := make(map[string]float64)
	g.each(center, radiusKm, func(p *models.CandidatePlace, d float64) bool {
		out[p.ID] = d
		return true
	})
	return out
}

func TestSpatialGrid_InsertRemove(t *testing.T) {
	t.Parallel()

	g := newSpatialGrid(5)
	g.insert(gridPlace("a", 13.75, 100.50))
	g.insert(gridPlace("b", 13.75, 100.50))
	g.insert(gridPlace("c", 14.50, 100.50))

	if g.size() != 3 || g.numCells() != 2 {
		t.Fatalf("size=%d cells=%d, want 3 and 2", g.size(), g.numCells())
	}

	// Re-inserting moves the place instead of duplicating it.
	g.insert(gridPlace("a", 14.50, 100.50))
	if g.size() != 3 {
		t.Errorf("size after move = %d, want 3", g.size())
	}

	if !g.remove("b") {
		t.Error("remove(b) = false")
	}
	if g.remove("b") {
		t.Error("second remove(b) = true")
	}
	if g.numCells() != 1 {
		t.Errorf("empty cells should be dropped, cells = %d", g.numCells())
	}
}

func TestSpatialGrid_Each(t *testing.T) {
	t.Parallel()

	g := newSpatialGrid(5)
	center := geo.New(13.7563, 100.5018)
	// A line of places 1 km apart heading north crosses several cells.
	for i := 0; i < 30; i++ {
		g.insert(gridPlace(fmt.Sprintf("p%02d", i), center.Latitude+float64(i)/111.0, center.Longitude))
	}

	got := collect(g, center, 15)
	if len(got) != 15 {
		t.Errorf("found %d places within 15 km, want 15", len(got))
	}
	for id, d := range got {
		if d > 15 {
			t.Errorf("%s at %.2f km is outside the radius", id, d)
		}
	}

	if len(collect(g, center, 0.5)) != 1 {
		t.Error("only the center place lies within 500 m")
	}
}

func TestSpatialGrid_EachStopsEarly(t *testing.T) {
	t.Parallel()

	g := newSpatialGrid(5)
	for i := 0; i < 10; i++ {
		g.insert(gridPlace(fmt.Sprintf("p%d", i), 13.75, 100.50+float64(i)*0.001))
	}

	calls := 0
	g.each(geo.New(13.75, 100.50), 5, func(*models.CandidatePlace, float64) bool {
		calls++
		return calls < 3
	})
	if calls != 3 {
		t.Errorf("callback called %d times, want 3", calls)
	}
}

func TestSpatialGrid_Antimeridian(t *testing.T) {
	t.Parallel()

	g := newSpatialGrid(5)
	g.insert(gridPlace("east", -17.0, 179.98))
	g.insert(gridPlace("west", -17.0, -179.98))
	g.insert(gridPlace("far", -17.0, 170.0))

	got := collect(g, geo.New(-17.0, 179.99), 10)
	if len(got) != 2 {
		t.Errorf("found %v, want east and west", got)
	}
}
