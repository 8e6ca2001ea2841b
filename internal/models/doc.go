// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package models defines the data types shared between the place store, the
// recommendation engine, the directory provider and the HTTP API.
//
// CandidatePlace values are read-only snapshots of the place store. ScoredPlace
// and the result types are created per request and never persisted, except as
// cache payloads.
package models
