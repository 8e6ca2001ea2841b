// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Hour

// defaultGCDiscardRatio is the Badger value log rewrite threshold.
const defaultGCDiscardRatio = 0.5

// Sweeper removes hard-expired entries from one cache namespace.
// *cache.TTLCache and *cache.SearchCache implement it.
type Sweeper interface {
	Sweep(ctx context.Context) int
	Namespace() string
}

// ValueLogCollector reclaims space in a log-structured store.
// *cache.BadgerStore implements it.
type ValueLogCollector interface {
	RunValueLogGC(discardRatio float64) error
}

// CacheSweepConfig configures CacheSweepService.
type CacheSweepConfig struct {
	// Interval between sweeps. Default: 1h
	Interval time.Duration

	// SweepTimeout bounds one sweep of one namespace. Zero means no bound.
	SweepTimeout time.Duration

	// GCDiscardRatio is passed to RunValueLogGC. Default: 0.5
	GCDiscardRatio float64
}

// CacheSweepService periodically sweeps caches and then collects the value
// log of the backing store. Errors are logged; the service only stops when
// its context ends.
type CacheSweepService struct {
	sweepers []Sweeper
	gc       ValueLogCollector
	config   CacheSweepConfig
	logger   zerolog.Logger
}

// NewCacheSweepService creates the service. gc may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCacheSweepService(sweepers []Sweeper, gc ValueLogCollector, cfg CacheSweepConfig, logger zerolog.Logger) *CacheSweepService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = defaultGCDiscardRatio
	}
	return &CacheSweepService{
		sweepers: sweepers,
		gc:       gc,
		config:   cfg,
		logger:   logger.With().Str("service", "cache-sweep").Logger(),
	}
}

// Serve implements suture.Service.
func (s *CacheSweepService) Serve(ctx context.Context) error {
	s.logger.Debug().Dur("interval", s.config.Interval).Int("namespaces", len(s.sweepers)).Msg("Cache sweep service starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce sweeps every cache once and returns the number of entries
// removed.
func (s *CacheSweepService) SweepOnce(ctx context.Context) int {
	start := time.Now()
	total := 0
	for _, sw := range s.sweepers {
		if ctx.Err() != nil {
			return total
		}
		total += s.sweep(ctx, sw)
	}

	if s.gc != nil {
		if err := s.gc.RunValueLogGC(s.config.GCDiscardRatio); err != nil {
			s.logger.Warn().Err(err).Msg("Value log GC failed")
		}
	}

	s.logger.Info().
		Int("removed", total).
		Dur("duration", time.Since(start)).
		Msg("Cache sweep complete")
	return total
}

func (s *CacheSweepService) sweep(ctx context.Context, sw Sweeper) int {
	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}
	removed := sw.Sweep(ctx)
	if removed > 0 {
		s.logger.Debug().Str("namespace", sw.Namespace()).Int("removed", removed).Msg("Swept namespace")
	}
	return removed
}

// String implements fmt.Stringer for suture's logs.
func (s *CacheSweepService) String() string {
	return "cache-sweep"
}
