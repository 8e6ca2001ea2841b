// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// memoryCellKm is the grid cell size used by MemoryStore.
const memoryCellKm = 5

// MemoryStore is an in-process Store backed by a spatial hash grid.
type MemoryStore struct {
	mu     sync.RWMutex
	places map[string]*models.CandidatePlace
	grid   *spatialGrid
	visits map[string]map[string]time.Time
	logger zerolog.Logger
	closed bool
}

// NewMemoryStore creates an empty store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		places: make(map[string]*models.CandidatePlace),
		grid:   newSpatialGrid(memoryCellKm),
		visits: make(map[string]map[string]time.Time),
		logger: logger.With().Str("component", "store").Str("driver", DriverMemory).Logger(),
	}
}

// HasMinimumWithinRadius stops scanning once minimum places are seen.
func (s *MemoryStore) HasMinimumWithinRadius(_ context.Context, center geo.Coordinate, radiusM float64, minimum int) (bool, error) {
	if minimum <= 0 {
		return true, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	s.grid.each(center, radiusM/1000, func(p *models.CandidatePlace, _ float64) bool {
		if p.IsOperational() {
			n++
		}
		return n < minimum
	})
	return n >= minimum, nil
}

// CountWithinRadius counts operational places within radiusM.
func (s *MemoryStore) CountWithinRadius(_ context.Context, center geo.Coordinate, radiusM float64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	s.grid.each(center, radiusM/1000, func(p *models.CandidatePlace, _ float64) bool {
		if p.IsOperational() {
			n++
		}
		return true
	})
	return n, nil
}

// ListWithinRadius returns the nearest operational places not in excludeIDs.
func (s *MemoryStore) ListWithinRadius(_ context.Context, center geo.Coordinate, radiusKm float64, limit int, excludeIDs []string) ([]models.CandidatePlace, error) {
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	type hit struct {
		place    *models.CandidatePlace
		distance float64
	}

	s.mu.RLock()
	var hits []hit
	s.grid.each(center, radiusKm, func(p *models.CandidatePlace, d float64) bool {
		if _, skip := excluded[p.ID]; !skip && p.IsOperational() {
			hits = append(hits, hit{place: p, distance: d})
		}
		return true
	})

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].place.ID < hits[j].place.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]models.CandidatePlace, len(hits))
	for i, h := range hits {
		out[i] = h.place.Clone()
	}
	s.mu.RUnlock()
	return out, nil
}

// ListPlaces returns up to limit places ordered by id.
func (s *MemoryStore) ListPlaces(_ context.Context, limit int) ([]models.CandidatePlace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.places))
	for id := range s.places {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]models.CandidatePlace, len(ids))
	for i, id := range ids {
		out[i] = s.places[id].Clone()
	}
	return out, nil
}

// GetPlace returns a copy of the place with id.
func (s *MemoryStore) GetPlace(_ context.Context, id string) (*models.CandidatePlace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.places[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := p.Clone()
	return &c, nil
}

// ListVisitedIDs returns the ids userID has visited, sorted.
func (s *MemoryStore) ListVisitedIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.visits[userID]))
	for id := range s.visits[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RecordVisit marks placeID as visited by userID.
func (s *MemoryStore) RecordVisit(_ context.Context, userID, placeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.places[placeID]; !ok {
		return ErrNotFound
	}
	if s.visits[userID] == nil {
		s.visits[userID] = make(map[string]time.Time)
	}
	s.visits[userID][placeID] = at
	return nil
}

// UpsertPlaces inserts or replaces places. Nothing is written if any place
// is invalid.
func (s *MemoryStore) UpsertPlaces(_ context.Context, places []models.CandidatePlace) error {
	for i := range places {
		if err := validatePlace(&places[i]); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range places {
		p := places[i].Clone()
		s.places[p.ID] = &p
		s.grid.insert(&p)
	}
	s.logger.Debug().Int("count", len(places)).Msg("Upserted places")
	return nil
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored places.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grid.size()
}
