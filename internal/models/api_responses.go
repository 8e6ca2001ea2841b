// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package models

import "time"

// APIResponse is the standard envelope for every API endpoint.
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "query_time_ms": 12}}
//	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "VALIDATION_ERROR", "message": "..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Stale       bool      `json:"stale,omitempty"`
}

// APIError is a machine-readable error with a human-readable message.
//
// Codes: VALIDATION_ERROR, NOT_FOUND, UPSTREAM_UNAVAILABLE, RATE_LIMITED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
