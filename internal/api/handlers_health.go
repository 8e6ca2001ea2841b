// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/models"
)

// readinessTimeout bounds the store ping behind the readiness probe.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probe requests
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": h.now().Sub(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests. The service is ready when
// the place store answers; open directory breakers are reported but do not
// fail the probe because cached results are still served.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	storeReady := h.store != nil && h.store.Ping(ctx) == nil

	statusCode := http.StatusOK
	status := "ready"
	if !storeReady {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	data := map[string]interface{}{
		"store_connected": storeReady,
		"ready_to_serve":  storeReady,
		"uptime":          h.now().Sub(h.startTime).Seconds(),
	}
	if h.directory != nil {
		data["directory_breakers"] = h.directory.BreakerStates()
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
