// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package directory talks to the upstream places directory and keeps its
results cheap to reuse.

The directory exposes three paid operations: nearby search, text search and
place details. HTTPProvider implements them against a Places-style JSON API.
CachedProvider wraps any Provider with:

  - a token-bucket rate limiter and a circuit breaker per operation, so a slow
    or failing upstream is shed instead of queued
  - the fuzzy search cache for nearby and text searches, so repeated and
    nearby lookups within 15 minutes never reach the upstream
  - a TTL cache for place details with stale-while-revalidate: a stale entry
    is returned at once and a refresh is queued on the task queue
  - a PlaceSink that receives every fresh upstream result, which is how the
    place store used by recommendations gets populated

Every upstream failure surfaces as ErrUpstreamUnavailable, except
ErrPlaceNotFound and ErrInvalidRequest which describe the request itself.

Usage:

	provider := directory.NewHTTPProvider(&cfg.Directory)
	cached := directory.NewCachedProvider(provider, directory.CachedConfig{
		Directory: cfg.Directory,
		Search:    searchCache,
		Details:   detailsCache,
		Sink:      store,
		Tasks:     queue,
	}, logger)

	result, err := cached.NearbySearch(ctx, userID, directory.NearbyRequest{
		Center:  geo.New(13.7563, 100.5018),
		RadiusM: 1500,
		Type:    "cafe",
	})
*/
package directory
