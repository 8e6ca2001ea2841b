// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package api exposes the recommendation, availability and directory services
over HTTP using the chi router.

# Routes

	GET  /api/v1/health/live
	GET  /api/v1/health/ready
	GET  /api/v1/recommendations?user_id&lat&lng&limit&time&tz
	GET  /api/v1/places/availability?lat&lng&radius_m&minimum
	GET  /api/v1/places/{placeID}?user_id
	GET  /api/v1/search/nearby?user_id&lat&lng&radius_m&type
	GET  /api/v1/search/text?user_id&q&lat&lng
	POST /api/v1/users/{userID}/visits
	GET  /metrics

# Response Format

Every API route answers with models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","query_time_ms":3}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"VALIDATION_ERROR","message":"..."}}

Error codes and their status:

	VALIDATION_ERROR      400
	NOT_FOUND             404
	RATE_LIMITED          429
	UPSTREAM_UNAVAILABLE  503
	INTERNAL_ERROR        500

Directory responses served from a cache set metadata.cached, and
metadata.stale when the entry is past its validity window and a refresh has
been queued. The X-Cache-Source header names the tier and match strategy.

# Usage

	handler := api.NewHandler(api.Dependencies{
	    Recommender: engine,
	    Checker:     checker,
	    Store:       store,
	    Directory:   provider,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
	srv := &http.Server{Handler: router.SetupChi()}
*/
package api
