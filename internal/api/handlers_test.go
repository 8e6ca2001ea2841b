// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/availability"
	"github.com/khunjon/placemarks-sub005/internal/database"
	"github.com/khunjon/placemarks-sub005/internal/directory"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/recommend"
)

// envelope is models.APIResponse with the payload left undecoded.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// fakeDirectory returns canned results and records requests.
type fakeDirectory struct {
	mu      sync.Mutex
	result  *directory.Result[[]models.CandidatePlace]
	details *directory.Result[*models.PlaceDetails]
	err     error
	nearby  []directory.NearbyRequest
	text    []directory.TextRequest
	owners  []string
}

func (f *fakeDirectory) NearbySearch(_ context.Context, userID string, req directory.NearbyRequest) (*directory.Result[[]models.CandidatePlace], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearby = append(f.nearby, req)
	f.owners = append(f.owners, userID)
	return f.result, f.err
}

func (f *fakeDirectory) TextSearch(_ context.Context, userID string, req directory.TextRequest) (*directory.Result[[]models.CandidatePlace], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, req)
	f.owners = append(f.owners, userID)
	return f.result, f.err
}

func (f *fakeDirectory) PlaceDetails(_ context.Context, userID, _ string) (*directory.Result[*models.PlaceDetails], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners = append(f.owners, userID)
	return f.details, f.err
}

func (f *fakeDirectory) BreakerStates() map[string]string {
	return map[string]string{directory.OpNearby: "closed"}
}

type testServer struct {
	handler http.Handler
	store   *database.MemoryStore
	dir     *fakeDirectory
}

var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, mwConfig *ChiMiddlewareConfig) *testServer {
	t.Helper()

	store := database.NewMemoryStore(zerolog.Nop())
	if _, err := database.Seed(context.Background(), store); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	checker := availability.NewChecker(store, availability.DefaultConfig(), zerolog.Nop())
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), checker, store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	dir := &fakeDirectory{}

	if mwConfig == nil {
		mwConfig = DefaultChiMiddlewareConfig()
		mwConfig.RateLimitDisabled = true
	}

	handler := NewHandler(Dependencies{
		Recommender: engine,
		Checker:     checker,
		Store:       store,
		Directory:   dir,
		Now:         func() time.Time { return fixedNow },
	})
	router := NewRouter(handler, NewChiMiddleware(mwConfig))
	return &testServer{handler: router.SetupChi(), store: store, dir: dir}
}

func (s *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func TestRecommendations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/recommendations?user_id=u1&lat=13.7563&lng=100.5018&limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.Status != "success" || env.Metadata.Timestamp.IsZero() {
		t.Errorf("envelope = %+v", env)
	}

	result := decodeData[models.RecommendationResult](t, env)
	if len(result.Places) != 3 || !result.HasMore || result.TotalAvailable != 10 {
		t.Errorf("result = %+v", result)
	}
	for i := 1; i < len(result.Places); i++ {
		if result.Places[i].RecommendationScore > result.Places[i-1].RecommendationScore {
			t.Errorf("places not sorted by score: %v", result.Places)
		}
	}
}

func TestRecommendations_WithTimeContext(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/recommendations?lat=13.7563&lng=100.5018&time=2026-03-02T08:00:00Z&tz=UTC", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRecommendations_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		query string
	}{
		{"missing coordinates", "user_id=u1"},
		{"missing lng", "lat=13.75"},
		{"latitude out of range", "lat=95&lng=100.5"},
		{"longitude not a number", "lat=13.75&lng=east"},
		{"infinite latitude", "lat=Inf&lng=100.5"},
		{"limit not an integer", "lat=13.75&lng=100.5&limit=ten"},
		{"negative limit", "lat=13.75&lng=100.5&limit=-1"},
		{"bad time", "lat=13.75&lng=100.5&time=yesterday"},
		{"bad zone", "lat=13.75&lng=100.5&tz=Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, env := s.do(t, http.MethodGet, "/api/v1/recommendations?"+tt.query, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != ErrCodeValidation {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestRecordVisit_ExcludesFromRecommendations(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/users/u1/visits", `{"place_id":"demo-jay-fai"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	visit := decodeData[VisitResponse](t, env)
	if visit.UserID != "u1" || visit.PlaceID != "demo-jay-fai" || !visit.VisitedAt.Equal(fixedNow) {
		t.Errorf("visit = %+v", visit)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/recommendations?user_id=u1&lat=13.7563&lng=100.5018&limit=50", "")
	result := decodeData[models.RecommendationResult](t, env)
	if result.ExcludedCount != 1 {
		t.Errorf("ExcludedCount = %d, want 1", result.ExcludedCount)
	}
	for _, p := range result.Places {
		if p.ID == "demo-jay-fai" {
			t.Error("visited place was recommended")
		}
	}

	// Another user still sees it.
	_, env = s.do(t, http.MethodGet, "/api/v1/recommendations?user_id=u2&lat=13.7563&lng=100.5018&limit=50", "")
	other := decodeData[models.RecommendationResult](t, env)
	if other.ExcludedCount != 0 || len(other.Places) != 10 {
		t.Errorf("other user result = %+v", other)
	}
}

func TestRecordVisit_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown place", `{"place_id":"nope"}`, http.StatusNotFound, ErrCodeNotFound},
		{"missing place", `{}`, http.StatusBadRequest, ErrCodeValidation},
		{"empty body", ``, http.StatusBadRequest, ErrCodeValidation},
		{"not json", `place_id=1`, http.StatusBadRequest, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/visits", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestAvailability(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	tests := []struct {
		name        string
		query       string
		wantEnough  bool
		wantCount   int
		wantMessage string
	}{
		{"defaults", "lat=13.7563&lng=100.5018", true, 10, "Found 10 places within 15.0 km"},
		{"minimum above count", "lat=13.7563&lng=100.5018&minimum=11", false, 10, "Only 10 of the 11 places needed within 15.0 km"},
		{"wide radius", "lat=13.7563&lng=100.5018&radius_m=100000", true, 12, "Found 12 places within 100.0 km"},
		{"empty ocean", "lat=0&lng=-150", false, 0, "No places found within 15.0 km"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, env := s.do(t, http.MethodGet, "/api/v1/places/availability?"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			got := decodeData[struct {
				HasEnough bool   `json:"has_enough"`
				Count     int    `json:"count"`
				Message   string `json:"message"`
			}](t, env)
			if got.HasEnough != tt.wantEnough || got.Count != tt.wantCount || got.Message != tt.wantMessage {
				t.Errorf("got %+v, want enough=%v count=%d message=%q", got, tt.wantEnough, tt.wantCount, tt.wantMessage)
			}
		})
	}
}

func TestAvailability_Validation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	for _, query := range []string{
		"lat=13.75&lng=100.5&radius_m=100001",
		"lat=13.75&lng=100.5&radius_m=0",
		"lat=13.75&lng=100.5&minimum=0",
		"lat=13.75&lng=100.5&minimum=many",
		"lng=100.5",
	} {
		rec, env := s.do(t, http.MethodGet, "/api/v1/places/availability?"+query, "")
		if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != ErrCodeValidation {
			t.Errorf("%s: status = %d, error = %+v", query, rec.Code, env.Error)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Errorf("live: status = %d, envelope %+v", rec.Code, env)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusOK || env.Status != "ready" {
		t.Errorf("ready: status = %d, envelope %+v", rec.Code, env)
	}
	ready := decodeData[map[string]interface{}](t, env)
	if _, ok := ready["directory_breakers"]; !ok {
		t.Errorf("ready payload missing breaker states: %v", ready)
	}

	if err := s.store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	rec, env = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable || env.Status != "not_ready" {
		t.Errorf("closed store: status = %d, envelope %+v", rec.Code, env)
	}
}
