// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/khunjon/placemarks-sub005/internal/logging"
	"github.com/khunjon/placemarks-sub005/internal/models"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// maxVisitBodyBytes bounds the visit request body.
const maxVisitBodyBytes = 4 << 10

// VisitRequest is the body of POST /api/v1/users/{userID}/visits.
type VisitRequest struct {
	UserID  string `json:"-" validate:"required,max=128"`
	PlaceID string `json:"place_id" validate:"required,max=256"`
}

// VisitResponse confirms a recorded visit.
type VisitResponse struct {
	UserID    string    `json:"user_id"`
	PlaceID   string    `json:"place_id"`
	VisitedAt time.Time `json:"visited_at"`
}

// RecordVisit handles POST /api/v1/users/{userID}/visits. Visited places are
// excluded from that user's recommendations.
func (h *Handler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req VisitRequest
	body := http.MaxBytesReader(w, r.Body, maxVisitBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondAPIError(w, http.StatusBadRequest,
			validation.New("body", "json", nil, "request body must be a JSON object").ToAPIError())
		return
	}
	req.UserID = strings.TrimSpace(chi.URLParam(r, "userID"))
	req.PlaceID = strings.TrimSpace(req.PlaceID)

	if verr := validation.ValidateStruct(req); verr != nil {
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
		return
	}

	visitedAt := h.now().UTC()
	if err := h.store.RecordVisit(r.Context(), req.UserID, req.PlaceID, visitedAt); err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("user_id", sanitizeLogValue(req.UserID)).
		Str("place_id", sanitizeLogValue(req.PlaceID)).
		Msg("Visit recorded")

	respondSuccess(w, http.StatusCreated, VisitResponse{
		UserID:    req.UserID,
		PlaceID:   req.PlaceID,
		VisitedAt: visitedAt,
	}, start, models.Metadata{})
}
