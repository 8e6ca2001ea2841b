// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/cache"
	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/tasks"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// SourceUpstream marks results fetched from the directory.
const SourceUpstream = "upstream"

// DefaultRefreshTimeout bounds a background details refresh.
const DefaultRefreshTimeout = 10 * time.Second

// PlaceSink receives places fetched from the directory.
type PlaceSink interface {
	UpsertPlaces(ctx context.Context, places []models.CandidatePlace) error
}

// CachedConfig wires a CachedProvider.
type CachedConfig struct {
	Directory config.DirectoryConfig

	// Search caches nearby and text results. Required.
	Search *cache.SearchCache[[]models.CandidatePlace]

	// Details caches place details. Required.
	Details *cache.TTLCache[models.PlaceDetails]

	// Sink is optional.
	Sink PlaceSink

	// Tasks runs upserts and stale refreshes. Defaults to tasks.Inline.
	Tasks tasks.Submitter

	RefreshTimeout time.Duration
}

// CachedProvider serves directory calls from the caches, falling back to a
// rate-limited, circuit-broken upstream.
type CachedProvider struct {
	upstream Provider
	search   *cache.SearchCache[[]models.CandidatePlace]
	details  *cache.TTLCache[models.PlaceDetails]
	sink     PlaceSink
	tasks    tasks.Submitter
	guards   map[string]*guard

	refreshTimeout time.Duration
	refreshing     sync.Map // details key -> struct{}

	logger zerolog.Logger
}

// NewCachedProvider wraps upstream.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCachedProvider(upstream Provider, cfg CachedConfig, logger zerolog.Logger) (*CachedProvider, error) {
	if upstream == nil {
		return nil, errors.New("directory: upstream provider is required")
	}
	if cfg.Search == nil || cfg.Details == nil {
		return nil, errors.New("directory: search and details caches are required")
	}
	if cfg.Tasks == nil {
		cfg.Tasks = tasks.Inline{}
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}

	logger = logger.With().Str("component", "directory").Logger()
	d := cfg.Directory
	guardFor := func(op string, rps float64) *guard {
		return newGuard(op, guardConfig{
			RPS:             rps,
			Burst:           d.Burst,
			BreakerFailures: d.BreakerFailures,
			BreakerTimeout:  d.BreakerTimeout,
		}, logger)
	}

	return &CachedProvider{
		upstream: upstream,
		search:   cfg.Search,
		details:  cfg.Details,
		sink:     cfg.Sink,
		tasks:    cfg.Tasks,
		guards: map[string]*guard{
			OpNearby:  guardFor(OpNearby, d.NearbyRPS),
			OpText:    guardFor(OpText, d.TextRPS),
			OpDetails: guardFor(OpDetails, d.DetailsRPS),
		},
		refreshTimeout: cfg.RefreshTimeout,
		logger:         logger,
	}, nil
}

// NearbySearch returns places around req.Center, from the search cache when
// an equivalent search ran recently.
func (c *CachedProvider) NearbySearch(ctx context.Context, userID string, req NearbyRequest) (*Result[[]models.CandidatePlace], error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	q := cache.NearbyQuery(req.Center, req.RadiusM, req.Type)
	return c.searchThrough(ctx, userID, q, OpNearby, func(ctx context.Context) ([]models.CandidatePlace, error) {
		return c.upstream.NearbySearch(ctx, req)
	})
}

// TextSearch returns places matching req.Query. A cached result for a
// shorter prefix of the query may be returned.
func (c *CachedProvider) TextSearch(ctx context.Context, userID string, req TextRequest) (*Result[[]models.CandidatePlace], error) {
	req.Query = strings.TrimSpace(req.Query)
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr
	}

	q := cache.TextQuery(req.Query, req.Bias)
	return c.searchThrough(ctx, userID, q, OpText, func(ctx context.Context) ([]models.CandidatePlace, error) {
		return c.upstream.TextSearch(ctx, req)
	})
}

func (c *CachedProvider) searchThrough(
	ctx context.Context,
	userID string,
	q cache.SearchQuery,
	operation string,
	fetch func(context.Context) ([]models.CandidatePlace, error),
) (*Result[[]models.CandidatePlace], error) {
	if hit, ok := c.search.Lookup(ctx, userID, q); ok {
		return &Result[[]models.CandidatePlace]{
			Data:   hit.Results,
			Cached: true,
			Source: hit.Tier + "/" + hit.Strategy,
		}, nil
	}

	places, err := call(ctx, c.guards[operation], operation, fetch)
	if err != nil {
		return nil, err
	}
	if places == nil {
		places = []models.CandidatePlace{}
	}

	c.search.Store(ctx, userID, q, places)
	c.persist(places)
	return &Result[[]models.CandidatePlace]{Data: places, Source: SourceUpstream}, nil
}

// PlaceDetails returns the details of placeID. A stale cached entry is
// returned immediately and a background refresh is queued.
func (c *CachedProvider) PlaceDetails(ctx context.Context, userID, placeID string) (*Result[*models.PlaceDetails], error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, validation.New("place_id", "required", placeID, "place_id is required")
	}

	if entry, ok := c.details.Load(ctx, cache.OwnerKey(userID, placeID), userID, true); ok {
		if entry.IsStale {
			c.scheduleRefresh(userID, placeID)
		}
		details := entry.Payload
		return &Result[*models.PlaceDetails]{
			Data:   &details,
			Cached: true,
			Stale:  entry.IsStale,
			Source: "persistent/exact",
		}, nil
	}

	details, err := c.fetchDetails(ctx, userID, placeID)
	if err != nil {
		return nil, err
	}
	return &Result[*models.PlaceDetails]{Data: details, Source: SourceUpstream}, nil
}

func (c *CachedProvider) fetchDetails(ctx context.Context, userID, placeID string) (*models.PlaceDetails, error) {
	details, err := call(ctx, c.guards[OpDetails], OpDetails, func(ctx context.Context) (*models.PlaceDetails, error) {
		return c.upstream.PlaceDetails(ctx, placeID)
	})
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, ErrPlaceNotFound
	}

	c.details.Save(ctx, cache.OwnerKey(userID, placeID), *details, userID)
	c.persist([]models.CandidatePlace{details.CandidatePlace})
	return details, nil
}

// scheduleRefresh queues at most one refresh per user and place.
func (c *CachedProvider) scheduleRefresh(userID, placeID string) {
	key := userID + "\x00" + placeID
	if _, busy := c.refreshing.LoadOrStore(key, struct{}{}); busy {
		return
	}

	accepted := c.tasks.Submit("directory-details-refresh", func(ctx context.Context) {
		defer c.refreshing.Delete(key)
		ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
		defer cancel()

		if _, err := c.fetchDetails(ctx, userID, placeID); err != nil {
			c.logger.Debug().Err(err).Str("place_id", placeID).Msg("Background details refresh failed")
		}
	})
	if !accepted {
		c.refreshing.Delete(key)
	}
}

// persist hands fresh places to the sink in the background.
func (c *CachedProvider) persist(places []models.CandidatePlace) {
	if c.sink == nil || len(places) == 0 {
		return
	}
	batch := make([]models.CandidatePlace, len(places))
	for i := range places {
		batch[i] = places[i].Clone()
	}

	c.tasks.Submit("directory-upsert", func(ctx context.Context) {
		if err := c.sink.UpsertPlaces(ctx, batch); err != nil {
			c.logger.Warn().Err(err).Int("count", len(batch)).Msg("Failed to store directory places")
		}
	})
}

// BreakerStates returns the circuit breaker state per operation.
func (c *CachedProvider) BreakerStates() map[string]string {
	states := make(map[string]string, len(c.guards))
	for op, g := range c.guards {
		states[op] = stateToString(g.State())
	}
	return states
}
