// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/api"
	"github.com/khunjon/placemarks-sub005/internal/availability"
	"github.com/khunjon/placemarks-sub005/internal/cache"
	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/database"
	"github.com/khunjon/placemarks-sub005/internal/directory"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/recommend"
	"github.com/khunjon/placemarks-sub005/internal/supervisor"
	"github.com/khunjon/placemarks-sub005/internal/supervisor/services"
	"github.com/khunjon/placemarks-sub005/internal/tasks"
)

// Cache namespaces in the shared Badger store.
const (
	detailsNamespace = "details"
	searchNamespace  = "search"
)

// components holds everything built from the configuration.
type components struct {
	store     database.Store
	kv        *cache.BadgerStore
	queue     *tasks.Queue
	details   *cache.TTLCache[models.PlaceDetails]
	search    *cache.SearchCache[[]models.CandidatePlace]
	checker   *availability.Checker
	engine    *recommend.Engine
	directory *directory.CachedProvider
	handler   http.Handler
}

// initComponents builds the service graph. On error everything already
// opened is closed.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func initComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (c *components, err error) {
	c = &components{}
	defer func() {
		if err != nil {
			if closeErr := c.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("Error closing partially initialized components")
			}
			c = nil
		}
	}()

	if c.store, err = database.Open(&cfg.Database, logger); err != nil {
		return nil, fmt.Errorf("open place store: %w", err)
	}
	if cfg.Database.SeedDemo {
		n, err := database.Seed(ctx, c.store)
		if err != nil {
			return nil, err
		}
		logger.Info().Int("places", n).Msg("Seeded demo places")
	}

	c.kv, err = cache.OpenBadgerStore(cache.BadgerConfig{
		Path:       cfg.Storage.Path,
		InMemory:   cfg.Storage.InMemory,
		SyncWrites: cfg.Storage.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache storage: %w", err)
	}

	c.queue = tasks.NewQueue(tasks.Config{
		Workers:     cfg.Tasks.Workers,
		QueueSize:   cfg.Tasks.QueueSize,
		TaskTimeout: cfg.Tasks.TaskTimeout,
	}, logger)

	cacheOpts := []cache.Option{cache.WithTasks(c.queue), cache.WithLogger(logger)}
	c.details = cache.NewTTLCache[models.PlaceDetails](c.kv, cache.Options{
		Namespace:        detailsNamespace,
		ValidityWindow:   cfg.Cache.DetailsValidity,
		SoftExpiryWindow: cfg.Cache.DetailsSoftExpiry,
		OperationTimeout: cfg.Storage.OperationTimeout,
	}, cacheOpts...)
	c.search = cache.NewSearchCache[[]models.CandidatePlace](c.kv, searchOptions(cfg), cacheOpts...)

	if c.directory, err = directory.NewCachedProvider(upstreamProvider(&cfg.Directory, logger), directory.CachedConfig{
		Directory:      cfg.Directory,
		Search:         c.search,
		Details:        c.details,
		Sink:           c.store,
		Tasks:          c.queue,
		RefreshTimeout: cfg.Directory.Timeout,
	}, logger); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	c.checker = availability.NewChecker(c.store, availability.Config{
		DefaultRadiusM: cfg.Availability.DefaultRadiusM,
		DefaultMinimum: cfg.Availability.DefaultMinimum,
		MaxRadiusM:     cfg.Availability.MaxRadiusM,
	}, logger)

	if c.engine, err = recommend.NewEngine(engineConfig(cfg), c.checker, c.store, logger); err != nil {
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}

	handler := api.NewHandler(api.Dependencies{
		Recommender: c.engine,
		Checker:     c.checker,
		Store:       c.store,
		Directory:   c.directory,
	})
	c.handler = api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security))).SetupChi()

	return c, nil
}

// upstreamProvider returns the HTTP directory client, or a provider that
// always reports the directory as unavailable when it is disabled.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func upstreamProvider(cfg *config.DirectoryConfig, logger zerolog.Logger) directory.Provider {
	if !cfg.Enabled {
		logger.Info().Msg("Places directory disabled, serving cached results only")
		return directory.Unavailable{}
	}
	logger.Info().Str("base_url", cfg.BaseURL).Str("language", cfg.Language).Msg("Places directory enabled")
	return directory.NewHTTPProvider(cfg)
}

func searchOptions(cfg *config.Config) cache.SearchOptions {
	opts := cache.DefaultSearchOptions(searchNamespace)
	sc := cfg.SearchCache
	opts.Expiry = sc.Expiry
	opts.MemorySize = sc.MemorySize
	opts.MemoryTTL = sc.MemoryTTL
	opts.MaxEntries = sc.MaxEntries
	opts.ProximityMeters = sc.ProximityMeters
	opts.RadiusToleranceMeters = sc.RadiusToleranceMeters
	opts.MinPrefixLength = sc.MinPrefixLength
	opts.MaxPrefixGap = sc.MaxPrefixGap
	opts.OperationTimeout = cfg.Storage.OperationTimeout
	return opts
}

func engineConfig(cfg *config.Config) *recommend.Config {
	ec := recommend.DefaultConfig()
	rc := cfg.Recommend
	ec.DefaultRadiusKm = rc.DefaultRadiusKm
	ec.MinimumPlaces = rc.MinimumPlaces
	ec.DefaultLimit = rc.DefaultLimit
	ec.MaxLimit = rc.MaxLimit
	ec.MaxDistanceKm = rc.MaxDistanceKm
	ec.CandidateMultiplier = rc.CandidateMultiplier
	ec.Timeout = rc.Timeout
	return ec
}

// addServices registers the long-running services with the tree.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (c *components) addServices(tree *supervisor.SupervisorTree, server services.HTTPServer, cfg *config.Config, logger zerolog.Logger) {
	tree.AddStorageService(services.NewCacheSweepService(
		[]services.Sweeper{c.details, c.search},
		c.kv,
		services.CacheSweepConfig{
			Interval:     cfg.Cache.SweepInterval,
			SweepTimeout: cfg.Tasks.TaskTimeout,
		},
		logger,
	))
	tree.AddWorkerService(c.queue)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
}

// Close releases the stores. It is safe on a partially built value.
func (c *components) Close() error {
	var errs []error
	if c.kv != nil {
		if err := c.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache storage: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close place store: %w", err))
		}
	}
	return errors.Join(errs...)
}
