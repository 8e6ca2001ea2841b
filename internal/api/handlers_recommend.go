// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/recommend"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// Recommendations handles GET /api/v1/recommendations.
//
// Query parameters: lat and lng (required), user_id, limit, time (RFC3339)
// and tz (IANA zone). Time-of-day scoring applies only when time or tz is
// given.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	center, apiErr := getCoordinate(r)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}
	limit, apiErr := getIntParam(r, "limit", 0)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	req := recommend.Request{
		UserID: userIDParam(r),
		Center: center,
		Limit:  limit,
	}

	q := r.URL.Query()
	timestamp, zone := strings.TrimSpace(q.Get("time")), strings.TrimSpace(q.Get("tz"))
	if timestamp != "" || zone != "" {
		tc, err := recommend.ParseTimeContext(timestamp, zone, h.now)
		if err != nil {
			respondAPIError(w, http.StatusBadRequest,
				validation.New("time", "format", timestamp, err.Error()).ToAPIError())
			return
		}
		req.Time = &tc
	}

	result, err := h.recommender.Recommend(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, result, start, models.Metadata{})
}

// availabilityResponse adds the human-readable summary to the result.
type availabilityResponse struct {
	*models.AvailabilityResult
	Message string `json:"message"`
}

// Availability handles GET /api/v1/places/availability.
//
// Query parameters: lat and lng (required), radius_m and minimum. Omitted
// values take the checker defaults.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
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

	var minimum *int
	if r.URL.Query().Has("minimum") {
		m, apiErr := getIntParam(r, "minimum", 0)
		if apiErr != nil {
			respondAPIError(w, http.StatusBadRequest, apiErr)
			return
		}
		minimum = &m
	}

	result, err := h.checker.Check(r.Context(), h.checker.NewRequest(center, radiusM, minimum))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, availabilityResponse{
		AvailabilityResult: result,
		Message:            result.Message(),
	}, start, models.Metadata{})
}
