// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

const placeColumns = `id, name, address, rating, rating_count, price_level,
	categories, business_status, latitude, longitude`

// operationalPredicate matches places that are open for business.
const operationalPredicate = `business_status IN ('', 'OPERATIONAL')`

// distanceExpr computes the haversine distance in km from the bound center.
// Arguments: center latitude, center latitude, center longitude.
const distanceExpr = `2 * 6371 * asin(least(1, sqrt(
	pow(sin(radians(latitude - ?) / 2), 2) +
	cos(radians(?)) * cos(radians(latitude)) * pow(sin(radians(longitude - ?) / 2), 2)
)))`

// radiusFilter builds the inner query that yields operational places near
// center with their distance, prefiltered by a bounding box.
func radiusFilter(columns string, center geo.Coordinate, radiusKm float64, excludeIDs []string) (string, []interface{}) {
	args := []interface{}{center.Latitude, center.Latitude, center.Longitude}

	b := geo.BoundAround(center, radiusKm*1000)
	where := []string{operationalPredicate, "latitude BETWEEN ? AND ?"}
	args = append(args, b.Min.Lat(), b.Max.Lat())

	// Boxes crossing the antimeridian come back with Min east of Max.
	minLon, maxLon := b.Min.Lon(), b.Max.Lon()
	if minLon <= maxLon {
		where = append(where, "longitude BETWEEN ? AND ?")
	} else {
		where = append(where, "(longitude >= ? OR longitude <= ?)")
	}
	args = append(args, minLon, maxLon)

	if len(excludeIDs) > 0 {
		where = append(where, "id NOT IN ("+placeholders(len(excludeIDs))+")")
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}

	query := fmt.Sprintf(`SELECT %s, %s AS distance_km FROM places WHERE %s`,
		columns, distanceExpr, strings.Join(where, " AND "))
	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// HasMinimumWithinRadius counts at most minimum rows so DuckDB can stop early.
func (s *DuckDBStore) HasMinimumWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64, minimum int) (bool, error) {
	if minimum <= 0 {
		return true, nil
	}
	start := time.Now()

	inner, args := radiusFilter("id", center, radiusM/1000, nil)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM (
		SELECT 1 FROM (%s) WHERE distance_km <= ? LIMIT ?
	)`, inner)
	args = append(args, radiusM/1000, minimum)

	var n int
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&n)
	metrics.RecordDBQuery("has_minimum_within_radius", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("has minimum within radius: %w", err)
	}
	return n >= minimum, nil
}

// CountWithinRadius counts operational places within radiusM.
func (s *DuckDBStore) CountWithinRadius(ctx context.Context, center geo.Coordinate, radiusM float64) (int, error) {
	start := time.Now()

	inner, args := radiusFilter("id", center, radiusM/1000, nil)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM (%s) WHERE distance_km <= ?`, inner)
	args = append(args, radiusM/1000)

	var n int
	err := s.conn.QueryRowContext(ctx, query, args...).Scan(&n)
	metrics.RecordDBQuery("count_within_radius", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count within radius: %w", err)
	}
	return n, nil
}

// ListWithinRadius returns the nearest operational places not in excludeIDs.
func (s *DuckDBStore) ListWithinRadius(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int, excludeIDs []string) ([]models.CandidatePlace, error) {
	start := time.Now()

	inner, args := radiusFilter(placeColumns, center, radiusKm, excludeIDs)
	query := fmt.Sprintf(`SELECT %s FROM (%s) WHERE distance_km <= ? ORDER BY distance_km, id`, placeColumns, inner)
	args = append(args, radiusKm)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	places, err := s.queryPlaces(ctx, query, args...)
	metrics.RecordDBQuery("list_within_radius", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list within radius: %w", err)
	}
	return places, nil
}

// ListPlaces returns up to limit places ordered by id.
func (s *DuckDBStore) ListPlaces(ctx context.Context, limit int) ([]models.CandidatePlace, error) {
	start := time.Now()

	query := `SELECT ` + placeColumns + ` FROM places ORDER BY id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	places, err := s.queryPlaces(ctx, query, args...)
	metrics.RecordDBQuery("list_places", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	return places, nil
}

// GetPlace returns the place with id or ErrNotFound.
func (s *DuckDBStore) GetPlace(ctx context.Context, id string) (*models.CandidatePlace, error) {
	start := time.Now()

	places, err := s.queryPlaces(ctx, `SELECT `+placeColumns+` FROM places WHERE id = ?`, id)
	metrics.RecordDBQuery("get_place", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	return &places[0], nil
}

func (s *DuckDBStore) queryPlaces(ctx context.Context, query string, args ...interface{}) ([]models.CandidatePlace, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	places := make([]models.CandidatePlace, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

func scanPlace(rows *sql.Rows) (models.CandidatePlace, error) {
	var (
		p          models.CandidatePlace
		rating     sql.NullFloat64
		priceLevel sql.NullInt64
		categories string
	)
	if err := rows.Scan(
		&p.ID, &p.Name, &p.Address, &rating, &p.RatingCount, &priceLevel,
		&categories, &p.BusinessStatus, &p.Location.Latitude, &p.Location.Longitude,
	); err != nil {
		return p, fmt.Errorf("scan place: %w", err)
	}

	if rating.Valid {
		p.Rating = models.Float64(rating.Float64)
	}
	if priceLevel.Valid {
		p.PriceLevel = models.Int(int(priceLevel.Int64))
	}
	if err := json.Unmarshal([]byte(categories), &p.Categories); err != nil {
		return p, fmt.Errorf("decode categories of %s: %w", p.ID, err)
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	return p, nil
}

// UpsertPlaces inserts or replaces places in one transaction. Later
// duplicates in the batch win.
func (s *DuckDBStore) UpsertPlaces(ctx context.Context, places []models.CandidatePlace) error {
	if len(places) == 0 {
		return nil
	}
	for i := range places {
		if err := validatePlace(&places[i]); err != nil {
			return err
		}
	}
	batch := dedupeByID(places)

	start := time.Now()
	err := withRetry(ctx, func() error {
		return s.upsertBatch(ctx, batch)
	})
	metrics.RecordDBQuery("upsert_places", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert places: %w", err)
	}

	s.logger.Debug().Int("count", len(batch)).Msg("Upserted places")
	return nil
}

func (s *DuckDBStore) upsertBatch(ctx context.Context, places []models.CandidatePlace) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO places (
			id, name, address, rating, rating_count, price_level,
			categories, business_status, latitude, longitude, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			rating = EXCLUDED.rating,
			rating_count = EXCLUDED.rating_count,
			price_level = EXCLUDED.price_level,
			categories = EXCLUDED.categories,
			business_status = EXCLUDED.business_status,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return err
	}
	defer closeQuietly(stmt)

	now := time.Now().UTC()
	for i := range places {
		p := &places[i]
		categories, err := json.Marshal(nonNil(p.Categories))
		if err != nil {
			return fmt.Errorf("encode categories of %s: %w", p.ID, err)
		}

		var rating, priceLevel interface{}
		if p.Rating != nil {
			rating = *p.Rating
		}
		if p.PriceLevel != nil {
			priceLevel = *p.PriceLevel
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Address, rating, p.RatingCount, priceLevel,
			string(categories), p.BusinessStatus, p.Location.Latitude, p.Location.Longitude, now,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func dedupeByID(places []models.CandidatePlace) []models.CandidatePlace {
	index := make(map[string]int, len(places))
	out := make([]models.CandidatePlace, 0, len(places))
	for i := range places {
		if j, ok := index[places[i].ID]; ok {
			out[j] = places[i]
			continue
		}
		index[places[i].ID] = len(out)
		out = append(out, places[i])
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListVisitedIDs returns the ids userID has visited, sorted.
func (s *DuckDBStore) ListVisitedIDs(ctx context.Context, userID string) ([]string, error) {
	start := time.Now()
	ids, err := s.listVisited(ctx, userID)
	metrics.RecordDBQuery("list_visited_ids", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list visited ids: %w", err)
	}
	return ids, nil
}

func (s *DuckDBStore) listVisited(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT place_id FROM visits WHERE user_id = ? ORDER BY place_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordVisit marks placeID as visited by userID at the given time.
func (s *DuckDBStore) RecordVisit(ctx context.Context, userID, placeID string, at time.Time) error {
	start := time.Now()

	var exists int
	err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM places WHERE id = ?`, placeID).Scan(&exists)
	if err == nil && exists == 0 {
		return ErrNotFound
	}
	if err == nil {
		err = withRetry(ctx, func() error {
			_, execErr := s.conn.ExecContext(ctx, `INSERT INTO visits (user_id, place_id, visited_at)
				VALUES (?, ?, ?)
				ON CONFLICT (user_id, place_id) DO UPDATE SET visited_at = EXCLUDED.visited_at`,
				userID, placeID, at.UTC())
			return execErr
		})
	}
	metrics.RecordDBQuery("record_visit", time.Since(start), err)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("record visit: %w", err)
	}
	return err
}
