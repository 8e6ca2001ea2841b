// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// storeFactories lists every Store implementation; each test runs against all of them.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		DriverMemory: func(*testing.T) Store { return NewMemoryStore(zerolog.Nop()) },
		DriverDuckDB: func(t *testing.T) Store {
			t.Helper()
			s, err := OpenDuckDB(&config.DatabaseConfig{Driver: DriverDuckDB}, zerolog.Nop())
			if err != nil {
				t.Fatalf("OpenDuckDB() error = %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func seededStore(t *testing.T, newStore func(t *testing.T) Store) Store {
	t.Helper()
	s := newStore(t)
	if _, err := Seed(context.Background(), s); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return s
}

func placeIDs(places []models.CandidatePlace) []string {
	ids := make([]string, len(places))
	for i := range places {
		ids[i] = places[i].ID
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestStore_RadiusPrimitives(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := seededStore(t, newStore)

			// 11 fixture places lie within 15 km, one of them closed.
			n, err := s.CountWithinRadius(ctx, BangkokCenter, 15000)
			if err != nil {
				t.Fatalf("CountWithinRadius() error = %v", err)
			}
			if n != 10 {
				t.Errorf("CountWithinRadius(15 km) = %d, want 10", n)
			}

			tests := []struct {
				minimum int
				want    bool
			}{
				{0, true},
				{1, true},
				{10, true},
				{11, false},
			}
			for _, tt := range tests {
				got, err := s.HasMinimumWithinRadius(ctx, BangkokCenter, 15000, tt.minimum)
				if err != nil {
					t.Fatalf("HasMinimumWithinRadius(%d) error = %v", tt.minimum, err)
				}
				if got != tt.want {
					t.Errorf("HasMinimumWithinRadius(%d) = %v, want %v", tt.minimum, got, tt.want)
				}
			}

			n, err = s.CountWithinRadius(ctx, BangkokCenter, 100_000)
			if err != nil {
				t.Fatalf("CountWithinRadius() error = %v", err)
			}
			if n != 12 {
				t.Errorf("CountWithinRadius(100 km) = %d, want 12", n)
			}

			n, err = s.CountWithinRadius(ctx, geo.New(-33.8688, 151.2093), 15000)
			if err != nil || n != 0 {
				t.Errorf("CountWithinRadius(Sydney) = %d, %v, want 0", n, err)
			}
		})
	}
}

func TestStore_ListWithinRadius(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := seededStore(t, newStore)

			places, err := s.ListWithinRadius(ctx, BangkokCenter, 15, 0, nil)
			if err != nil {
				t.Fatalf("ListWithinRadius() error = %v", err)
			}
			if len(places) != 10 {
				t.Fatalf("len = %d, want 10: %v", len(places), placeIDs(places))
			}

			ids := placeIDs(places)
			if contains(ids, "demo-bangkok-art-centre") {
				t.Error("closed place returned")
			}
			if contains(ids, "demo-ancient-city") {
				t.Error("place outside the radius returned")
			}
			if ids[0] != "demo-jay-fai" {
				t.Errorf("nearest = %s, want demo-jay-fai", ids[0])
			}
			prev := 0.0
			for i := range places {
				d := geo.HaversineKm(BangkokCenter, places[i].Location)
				if d < prev {
					t.Errorf("not ordered by distance at %s", places[i].ID)
				}
				prev = d
			}

			limited, err := s.ListWithinRadius(ctx, BangkokCenter, 15, 3, []string{"demo-jay-fai", "demo-thipsamai"})
			if err != nil {
				t.Fatalf("ListWithinRadius() error = %v", err)
			}
			got := placeIDs(limited)
			if len(got) != 3 {
				t.Fatalf("limited len = %d, want 3", len(got))
			}
			if contains(got, "demo-jay-fai") || contains(got, "demo-thipsamai") {
				t.Errorf("excluded ids returned: %v", got)
			}
			if got[0] != ids[2] {
				t.Errorf("first after exclusion = %s, want %s", got[0], ids[2])
			}
		})
	}
}

func TestStore_ListWithinRadiusEmptyIsNonNil(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			places, err := newStore(t).ListWithinRadius(context.Background(), BangkokCenter, 15, 10, nil)
			if err != nil {
				t.Fatalf("ListWithinRadius() error = %v", err)
			}
			if places == nil || len(places) != 0 {
				t.Errorf("places = %v, want empty slice", places)
			}
		})
	}
}

func TestStore_PlaceRoundTrip(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			in := models.CandidatePlace{
				ID: "p1", Name: "Roast", Address: "Thonglor",
				Rating: models.Float64(4.5), RatingCount: 120, PriceLevel: models.Int(2),
				Categories:     []string{"cafe", "food"},
				BusinessStatus: models.StatusOperational,
				Location:       geo.New(13.7308, 100.5832),
			}
			bare := models.CandidatePlace{ID: "p2", Location: geo.New(13.7, 100.5)}
			if err := s.UpsertPlaces(ctx, []models.CandidatePlace{in, bare}); err != nil {
				t.Fatalf("UpsertPlaces() error = %v", err)
			}

			got, err := s.GetPlace(ctx, "p1")
			if err != nil {
				t.Fatalf("GetPlace() error = %v", err)
			}
			if got.Name != in.Name || got.Address != in.Address || got.RatingCount != 120 ||
				got.Rating == nil || *got.Rating != 4.5 || got.PriceLevel == nil || *got.PriceLevel != 2 ||
				len(got.Categories) != 2 || got.Categories[0] != "cafe" ||
				got.BusinessStatus != models.StatusOperational || got.Location != in.Location {
				t.Errorf("GetPlace() = %+v, want %+v", got, in)
			}

			got, err = s.GetPlace(ctx, "p2")
			if err != nil {
				t.Fatalf("GetPlace(p2) error = %v", err)
			}
			if got.Rating != nil || got.PriceLevel != nil || got.Categories == nil {
				t.Errorf("absent fields not preserved: %+v", got)
			}

			if _, err := s.GetPlace(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetPlace(missing) error = %v, want ErrNotFound", err)
			}

			all, err := s.ListPlaces(ctx, 0)
			if err != nil || len(all) != 2 || all[0].ID != "p1" {
				t.Errorf("ListPlaces() = %v, %v", placeIDs(all), err)
			}
			one, err := s.ListPlaces(ctx, 1)
			if err != nil || len(one) != 1 {
				t.Errorf("ListPlaces(1) = %v, %v", placeIDs(one), err)
			}
		})
	}
}

func TestStore_UpsertReplaces(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			near := models.CandidatePlace{ID: "p1", Name: "old", Location: BangkokCenter}
			far := models.CandidatePlace{ID: "p1", Name: "new", Location: geo.New(14.5, 100.5)}
			if err := s.UpsertPlaces(ctx, []models.CandidatePlace{near}); err != nil {
				t.Fatalf("UpsertPlaces() error = %v", err)
			}
			if err := s.UpsertPlaces(ctx, []models.CandidatePlace{far}); err != nil {
				t.Fatalf("UpsertPlaces() error = %v", err)
			}

			if n, _ := s.CountWithinRadius(ctx, BangkokCenter, 15000); n != 0 {
				t.Errorf("moved place still counted at its old location: %d", n)
			}
			got, err := s.GetPlace(ctx, "p1")
			if err != nil || got.Name != "new" {
				t.Errorf("GetPlace() = %+v, %v", got, err)
			}

			dup := []models.CandidatePlace{
				{ID: "p2", Name: "first", Location: BangkokCenter},
				{ID: "p2", Name: "second", Location: BangkokCenter},
			}
			if err := s.UpsertPlaces(ctx, dup); err != nil {
				t.Fatalf("UpsertPlaces(duplicates) error = %v", err)
			}
			if got, _ := s.GetPlace(ctx, "p2"); got == nil || got.Name != "second" {
				t.Errorf("later duplicate should win, got %+v", got)
			}
		})
	}
}

func TestStore_UpsertRejectsInvalid(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			batch := []models.CandidatePlace{
				{ID: "ok", Location: BangkokCenter},
				{ID: "bad", Location: geo.New(91, 0)},
			}
			if err := s.UpsertPlaces(ctx, batch); !errors.Is(err, ErrInvalidPlace) {
				t.Errorf("UpsertPlaces() error = %v, want ErrInvalidPlace", err)
			}
			if _, err := s.GetPlace(ctx, "ok"); !errors.Is(err, ErrNotFound) {
				t.Error("a rejected batch must not be partially written")
			}
			if err := s.UpsertPlaces(ctx, []models.CandidatePlace{{Location: BangkokCenter}}); !errors.Is(err, ErrInvalidPlace) {
				t.Errorf("empty id error = %v, want ErrInvalidPlace", err)
			}
		})
	}
}

func TestStore_Visits(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := seededStore(t, newStore)
			at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

			ids, err := s.ListVisitedIDs(ctx, "u1")
			if err != nil || ids == nil || len(ids) != 0 {
				t.Errorf("ListVisitedIDs() = %v, %v, want empty", ids, err)
			}

			for _, id := range []string{"demo-wat-pho", "demo-jay-fai", "demo-wat-pho"} {
				if err := s.RecordVisit(ctx, "u1", id, at); err != nil {
					t.Fatalf("RecordVisit(%s) error = %v", id, err)
				}
			}
			if err := s.RecordVisit(ctx, "u2", "demo-sky-bar", at); err != nil {
				t.Fatalf("RecordVisit() error = %v", err)
			}
			if err := s.RecordVisit(ctx, "u1", "missing", at); !errors.Is(err, ErrNotFound) {
				t.Errorf("RecordVisit(missing) error = %v, want ErrNotFound", err)
			}

			ids, err = s.ListVisitedIDs(ctx, "u1")
			if err != nil {
				t.Fatalf("ListVisitedIDs() error = %v", err)
			}
			if len(ids) != 2 || ids[0] != "demo-jay-fai" || ids[1] != "demo-wat-pho" {
				t.Errorf("ListVisitedIDs(u1) = %v", ids)
			}
		})
	}
}

func TestStore_Antimeridian(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			places := []models.CandidatePlace{
				{ID: "east", Location: geo.New(-17.0, 179.98)},
				{ID: "west", Location: geo.New(-17.0, -179.98)},
			}
			if err := s.UpsertPlaces(ctx, places); err != nil {
				t.Fatalf("UpsertPlaces() error = %v", err)
			}

			n, err := s.CountWithinRadius(ctx, geo.New(-17.0, 179.99), 10_000)
			if err != nil {
				t.Fatalf("CountWithinRadius() error = %v", err)
			}
			if n != 2 {
				t.Errorf("CountWithinRadius across the antimeridian = %d, want 2", n)
			}
		})
	}
}

func TestStore_Ping(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			if err := newStore(t).Ping(context.Background()); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}

	m := NewMemoryStore(zerolog.Nop())
	_ = m.Close()
	if err := m.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close error = %v, want ErrClosed", err)
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(&config.DatabaseConfig{Driver: "memory"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(memory) = %T", s)
	}

	if _, err := Open(&config.DatabaseConfig{Driver: "postgres"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestConnString(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{"in memory", config.DatabaseConfig{}, ""},
		{"file", config.DatabaseConfig{Path: "/data/places.duckdb"}, "/data/places.duckdb?access_mode=read_write"},
		{"tuned", config.DatabaseConfig{Path: "p.duckdb", Threads: 4, MaxMemory: "1GB"}, "p.duckdb?access_mode=read_write&max_memory=1GB&threads=4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connString(&tt.cfg); got != tt.want {
				t.Errorf("connString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), true},
		{errors.New("Conflict on update"), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(tt.err); got != tt.want {
			t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withRetry(ctx, func() error {
		calls++
		if calls < 3 {
			return errors.New("Transaction conflict")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("withRetry() = %v after %d calls, want success after 3", err, calls)
	}

	calls = 0
	plain := errors.New("constraint violation")
	if err := withRetry(ctx, func() error { calls++; return plain }); !errors.Is(err, plain) || calls != 1 {
		t.Errorf("non-conflict error retried: %v, calls=%d", err, calls)
	}
}
