// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khunjon/placemarks-sub005/internal/directory"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// CacheSourceHeader names where a directory response came from.
const CacheSourceHeader = "X-Cache-Source"

// defaultSearchRadiusM is used by nearby search when radius_m is omitted.
const defaultSearchRadiusM = 1500

// SearchNearby handles GET /api/v1/search/nearby.
//
// Query parameters: lat and lng (required), radius_m, type and user_id.
func (h *Handler) SearchNearby(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	center, apiErr := getCoordinate(r)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	radiusM, apiErr := getFloatParam(r, "radius_m")
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	req := directory.NearbyRequest{
		Center:  center,
		RadiusM: defaultSearchRadiusM,
		Type:    r.URL.Query().Get("type"),
	}
	if radiusM != nil {
		req.RadiusM = *radiusM
	}

	result, err := h.directory.NearbySearch(r.Context(), userIDParam(r), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondDirectory(w, result.Data, result.Cached, result.Stale, result.Source, start)
}

// SearchText handles GET /api/v1/search/text.
//
// Query parameters: q (required), user_id, and lat with lng as an optional
// location bias.
func (h *Handler) SearchText(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	bias, hasBias, apiErr := getOptionalCoordinate(r)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	req := directory.TextRequest{Query: r.URL.Query().Get("q")}
	if hasBias {
		req.Bias = &bias
	}

	result, err := h.directory.TextSearch(r.Context(), userIDParam(r), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondDirectory(w, result.Data, result.Cached, result.Stale, result.Source, start)
}

// PlaceDetails handles GET /api/v1/places/{placeID}.
func (h *Handler) PlaceDetails(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	placeID := strings.TrimSpace(chi.URLParam(r, "placeID"))
	result, err := h.directory.PlaceDetails(r.Context(), userIDParam(r), placeID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondDirectory(w, result.Data, result.Cached, result.Stale, result.Source, start)
}

func respondDirectory(w http.ResponseWriter, data interface{}, cached, stale bool, source string, start time.Time) {
	if source != "" {
		w.Header().Set(CacheSourceHeader, source)
	}
	respondSuccess(w, http.StatusOK, data, start, models.Metadata{
		Cached: cached,
		Stale:  stale,
	})
}
