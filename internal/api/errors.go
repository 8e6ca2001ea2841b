// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/khunjon/placemarks-sub005/internal/database"
	"github.com/khunjon/placemarks-sub005/internal/directory"
	"github.com/khunjon/placemarks-sub005/internal/logging"
	"github.com/khunjon/placemarks-sub005/internal/validation"
)

// API error codes.
const (
	ErrCodeValidation          = validation.ErrorCode
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
)

// respondServiceError maps an error from a service call to a status and code.
// Only unexpected errors are logged.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
	case errors.Is(err, database.ErrNotFound), errors.Is(err, directory.ErrPlaceNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Place not found", nil)
	case errors.Is(err, directory.ErrInvalidRequest), errors.Is(err, database.ErrInvalidPlace):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
	case errors.Is(err, directory.ErrUpstreamUnavailable):
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Directory unavailable")
		respondError(w, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable,
			"Place directory is temporarily unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Request timed out")
		respondError(w, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, "Request timed out", nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
	}
}
