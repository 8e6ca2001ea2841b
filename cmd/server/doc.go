// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package main is the entry point for the Placemarks server.
//
// Placemarks recommends nearby places. It answers from a local place store
// (DuckDB, or an in-memory spatial grid for development) and fills that store
// from an upstream places directory whose responses are cached on the device.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional config.yaml, environment (koanf)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Place store: DuckDB or memory, optionally seeded with demo places
//  4. Cache storage: Badger, shared by the details and search caches
//  5. Task queue: bounded workers for refreshes, evictions and store writes
//  6. Directory: HTTP client (or an offline stand-in) behind rate limits,
//     circuit breakers and the caches
//  7. Availability checker and recommendation engine
//  8. HTTP API and the supervisor tree
//
// # Configuration
//
// Every setting can be overridden from the environment, for example:
//
//	SERVER_PORT=8080
//	DATABASE_DRIVER=memory
//	DATABASE_SEED_DEMO=true
//	STORAGE_IN_MEMORY=true
//	DIRECTORY_ENABLED=true
//	DIRECTORY_API_KEY=...
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
// in-flight requests for server.shutdown_timeout before the stores close.
//
// # Port 3857
//
// The default port 3857 references EPSG:3857 (Web Mercator projection).
package main
