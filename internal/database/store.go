// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// Driver names accepted by Open.
const (
	DriverDuckDB = "duckdb"
	DriverMemory = "memory"
)

var (
	// ErrNotFound is returned when a place does not exist.
	ErrNotFound = errors.New("place not found")

	// ErrInvalidPlace is returned when a place cannot be stored.
	ErrInvalidPlace = errors.New("invalid place")

	// ErrClosed is returned by Ping after Close.
	ErrClosed = errors.New("store closed")
)

// Store is the place store consumed by the availability checker, the
// recommendation engine and the directory cache.
type Store interface {
	HasMinimumWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64, minimum int) (bool, error)
	CountWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64) (int, error)
	ListWithinRadius(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int, excludeIDs []string) ([]models.CandidatePlace, error)
	ListPlaces(ctx context.Context, limit int) ([]models.CandidatePlace, error)
	GetPlace(ctx context.Context, id string) (*models.CandidatePlace, error)
	ListVisitedIDs(ctx context.Context, userID string) ([]string, error)
	RecordVisit(ctx context.Context, userID, placeID string, at time.Time) error
	UpsertPlaces(ctx context.Context, places []models.CandidatePlace) error
	Ping(ctx context.Context) error
	io.Closer
}

// Open creates the store selected by cfg.Driver.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg *config.DatabaseConfig, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverDuckDB, "":
		return OpenDuckDB(cfg, logger)
	case DriverMemory:
		return NewMemoryStore(logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// validatePlace checks the fields a stored place must carry.
func validatePlace(p *models.CandidatePlace) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPlace)
	}
	if err := p.Location.Validate(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidPlace, p.ID, err)
	}
	return nil
}

// closeQuietly closes a resource and explicitly ignores any error.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
