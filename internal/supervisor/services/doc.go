// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package services adapts Placemarks components to suture.Service.

Each wrapper implements Serve(ctx) error and String(), returns when ctx is
canceled, and returns an error only when it wants the supervisor to restart
it.

  - HTTPServerService runs an *http.Server and shuts it down gracefully when
    the context ends.
  - CacheSweepService periodically removes hard-expired and malformed cache
    entries and reclaims Badger value log space.

The task queue (tasks.Queue) already implements suture.Service and is added
to the tree directly.
*/
package services
