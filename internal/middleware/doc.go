// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package middleware provides the HTTP middleware shared by every API route.

  - RequestID assigns each request an X-Request-ID (a UUID unless the client
    sent one) and a fresh correlation ID, and stores both in the request
    context so logging.Ctx picks them up.
  - PrometheusMetrics records request count, latency and in-flight requests.
    Requests are labelled with the chi route pattern rather than the raw path,
    so /api/v1/places/{placeID} is one series no matter how many places exist.

Both are plain func(http.Handler) http.Handler and are installed with
chi.Router.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
