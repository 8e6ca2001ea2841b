// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/availability"
	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/logging"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// Outcome labels recorded per request.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient"
	OutcomeDegraded     = "degraded"
	OutcomeInvalid      = "invalid"
)

// AvailabilityChecker answers whether enough places exist near a point.
type AvailabilityChecker interface {
	Check(ctx context.Context, req availability.Request) (*models.AvailabilityResult, error)
}

// PlaceStore is the read side of the place store used by the engine.
type PlaceStore interface {
	// ListWithinRadius returns up to limit operational places within
	// radiusKm of center, skipping excludeIDs.
	ListWithinRadius(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int, excludeIDs []string) ([]models.CandidatePlace, error)

	// ListPlaces returns up to limit places without spatial filtering.
	ListPlaces(ctx context.Context, limit int) ([]models.CandidatePlace, error)

	// ListVisitedIDs returns the place ids userID has visited.
	ListVisitedIDs(ctx context.Context, userID string) ([]string, error)
}

// Request is a recommendation request.
type Request struct {
	UserID string         `json:"user_id"`
	Center geo.Coordinate `json:"center"`

	// Limit is the number of places wanted. Zero means Config.DefaultLimit;
	// values above Config.MaxLimit are capped.
	Limit int `json:"limit" validate:"gte=0"`

	// Time biases scoring toward time-appropriate categories when set.
	Time *TimeContext `json:"time,omitempty" validate:"-"`
}

// Engine produces ranked place recommendations. It is safe for concurrent
// use and keeps no per-request state.
type Engine struct {
	config  *Config
	checker AvailabilityChecker
	store   PlaceStore
	logger  zerolog.Logger
}

// NewEngine creates an engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, checker AvailabilityChecker, store PlaceStore, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if checker == nil || store == nil {
		return nil, errors.New("availability checker and place store are required")
	}

	return &Engine{
		config:  cfg,
		checker: checker,
		store:   store,
		logger:  logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Recommend ranks places near req.Center for req.UserID. The only error it
// returns is a *validation.ValidationError; every other failure produces an
// empty, well-formed result.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (result *models.RecommendationResult, err error) {
	start := time.Now()
	outcome := OutcomeOK
	defer func() {
		metrics.RecordRecommendation(outcome, time.Since(start))
	}()

	if verr := e.validate(req); verr != nil {
		outcome = OutcomeInvalid
		return nil, verr
	}
	req.Limit = e.limit(req.Limit)

	logCtx := logging.WithContextIDs(ctx, e.logger.With())
	if logging.UserIDFromContext(ctx) == "" {
		logCtx = logCtx.Str("user_id", req.UserID)
	}
	logger := logCtx.
		Str("center", req.Center.Key()).
		Int("limit", req.Limit).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recommendation panicked, returning empty result")
			outcome = OutcomeDegraded
			result, err = models.EmptyRecommendations(e.config.DefaultRadiusKm, 0), nil
		}
	}()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	result, outcome = e.recommend(ctx, req, logger)
	return result, nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommend(ctx context.Context, req Request, logger zerolog.Logger) (*models.RecommendationResult, string) {
	radiusKm := e.config.DefaultRadiusKm

	avail, err := e.checker.Check(ctx, availability.Request{
		Center:  req.Center,
		RadiusM: radiusKm * 1000,
		Minimum: e.config.MinimumPlaces,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Availability check failed")
		return models.EmptyRecommendations(radiusKm, 0), OutcomeDegraded
	}
	if !avail.HasEnough {
		logger.Debug().
			Int("count", avail.Count).
			Int("minimum", avail.Minimum).
			Msg("Not enough places nearby")
		return models.EmptyRecommendations(radiusKm, avail.Count), OutcomeInsufficient
	}

	outcome := OutcomeOK
	visited := e.visitedIDs(ctx, req.UserID, logger)
	if visited == nil {
		outcome = OutcomeDegraded
		visited = []string{}
	}

	fetchLimit := req.Limit * e.config.CandidateMultiplier
	candidates, err := e.store.ListWithinRadius(ctx, req.Center, radiusKm, fetchLimit, visited)
	if err != nil {
		logger.Warn().Err(err).Msg("Radius query failed, falling back to place listing")
		metrics.RecommendationFallbacks.WithLabelValues("candidates").Inc()
		outcome = OutcomeDegraded

		candidates, err = e.fallbackCandidates(ctx, req.Center, radiusKm, fetchLimit, visited)
		if err != nil {
			logger.Warn().Err(err).Msg("Fallback listing failed")
			return models.EmptyRecommendations(radiusKm, 0), OutcomeDegraded
		}
	}

	scored := e.rank(req, excludeVisited(candidates, visited))

	hasMore := len(scored) > req.Limit
	if hasMore {
		scored = scored[:req.Limit]
	}

	logger.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(scored)).
		Int("excluded", len(visited)).
		Msg("Recommendation complete")

	return &models.RecommendationResult{
		Places:         scored,
		HasMore:        hasMore,
		TotalAvailable: avail.Count,
		RadiusKm:       radiusKm,
		ExcludedCount:  len(visited),
	}, outcome
}

// validate checks the request shape. Coordinates are validated explicitly so
// that NaN and infinities are rejected with the same error type.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) validate(req Request) *validation.ValidationError {
	if err := req.Center.Validate(); err != nil {
		return validation.New("center", "coordinate", req.Center, err.Error())
	}
	return validation.ValidateStruct(req)
}

func (e *Engine) limit(requested int) int {
	switch {
	case requested <= 0:
		return e.config.DefaultLimit
	case requested > e.config.MaxLimit:
		return e.config.MaxLimit
	default:
		return requested
	}
}

// visitedIDs returns nil when the visit history could not be read.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (e *Engine) visitedIDs(ctx context.Context, userID string, logger zerolog.Logger) []string {
	if userID == "" {
		return []string{}
	}
	ids, err := e.store.ListVisitedIDs(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load visited places, excluding none")
		metrics.RecommendationFallbacks.WithLabelValues("visited").Inc()
		return nil
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// fallbackCandidates lists places without the radius primitive and applies
// the radius, operational and exclusion filters in process.
func (e *Engine) fallbackCandidates(ctx context.Context, center geo.Coordinate, radiusKm float64, limit int, visited []string) ([]models.CandidatePlace, error) {
	all, err := e.store.ListPlaces(ctx, e.config.FallbackScanLimit)
	if err != nil {
		return nil, err
	}

	excluded := toSet(visited)
	out := make([]models.CandidatePlace, 0, limit)
	for i := range all {
		p := &all[i]
		if _, skip := excluded[p.ID]; skip || !p.IsOperational() {
			continue
		}
		if geo.HaversineKm(center, p.Location) > radiusKm {
			continue
		}
		out = append(out, *p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// rank scores candidates and sorts them by score, keeping input order on
// ties.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) rank(req Request, candidates []models.CandidatePlace) []models.ScoredPlace {
	scored := make([]models.ScoredPlace, 0, len(candidates))
	for i := range candidates {
		p := &candidates[i]
		distance := geo.HaversineKm(req.Center, p.Location)
		score := Score(p, distance, e.config.MaxDistanceKm, req.Time)
		scored = append(scored, models.ScoredPlace{
			CandidatePlace:      p.Clone(),
			DistanceKm:          geo.Round(distance, 2),
			RecommendationScore: geo.Round(score, 2),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RecommendationScore > scored[j].RecommendationScore
	})
	return scored
}

func excludeVisited(candidates []models.CandidatePlace, visited []string) []models.CandidatePlace {
	if len(visited) == 0 {
		return candidates
	}
	excluded := toSet(visited)
	out := candidates[:0:0]
	for i := range candidates {
		if _, skip := excluded[candidates[i].ID]; !skip {
			out = append(out, candidates[i])
		}
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
