// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/logging"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// sanitizeLogValue replaces control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", generateETag(data))

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// respondSuccess sends a success envelope timed from start.
func respondSuccess(w http.ResponseWriter, status int, data interface{}, start time.Time, meta models.Metadata) {
	meta.Timestamp = time.Now()
	meta.QueryTimeMS = time.Since(start).Milliseconds()
	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondAPIError(w, status, &validation.APIError{Code: code, Message: message})
}

// respondAPIError sends an error response carrying details.
func respondAPIError(w http.ResponseWriter, status int, apiErr *validation.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// paramError builds the validation error for a malformed query parameter.
func paramError(key, value, message string) *validation.APIError {
	return validation.New(key, "format", value, message).ToAPIError()
}

// getIntParam extracts an integer query parameter with a default value.
// A present but malformed value is a validation error.
func getIntParam(r *http.Request, key string, defaultValue int) (int, *validation.APIError) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, paramError(key, value, key+" must be an integer")
	}
	return intValue, nil
}

// getFloatParam extracts an optional float query parameter. nil means the
// parameter was absent.
func getFloatParam(r *http.Request, key string) (*float64, *validation.APIError) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, paramError(key, value, key+" must be a finite number")
	}
	return &f, nil
}

// getCoordinate reads the required lat and lng query parameters.
func getCoordinate(r *http.Request) (geo.Coordinate, *validation.APIError) {
	c, present, apiErr := getOptionalCoordinate(r)
	if apiErr != nil {
		return geo.Coordinate{}, apiErr
	}
	if !present {
		return geo.Coordinate{}, validation.New("lat", "required", nil, "lat and lng are required").ToAPIError()
	}
	return c, nil
}

// getOptionalCoordinate reads lat and lng when both are present. Supplying
// only one of them is an error.
func getOptionalCoordinate(r *http.Request) (geo.Coordinate, bool, *validation.APIError) {
	lat, apiErr := getFloatParam(r, "lat")
	if apiErr != nil {
		return geo.Coordinate{}, false, apiErr
	}
	lng, apiErr := getFloatParam(r, "lng")
	if apiErr != nil {
		return geo.Coordinate{}, false, apiErr
	}

	switch {
	case lat == nil && lng == nil:
		return geo.Coordinate{}, false, nil
	case lat == nil:
		return geo.Coordinate{}, false, validation.New("lat", "required_with", nil, "lat is required when lng is set").ToAPIError()
	case lng == nil:
		return geo.Coordinate{}, false, validation.New("lng", "required_with", nil, "lng is required when lat is set").ToAPIError()
	}

	c := geo.New(*lat, *lng)
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, false, validation.New("center", "coordinate", c, err.Error()).ToAPIError()
	}
	return c, true, nil
}

// userIDParam returns the trimmed user_id query parameter.
func userIDParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("user_id"))
}
