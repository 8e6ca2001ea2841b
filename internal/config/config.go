// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package config loads Placemarks configuration with koanf.
//
// Sources are layered with increasing priority:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/placemarks/config.yaml)
//  3. Environment variables (SERVER_PORT, SEARCH_CACHE_MAX_ENTRIES, ...)
//
// Load validates the merged result before returning it.
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      LoggingConfig      `koanf:"logging"`
	Database     DatabaseConfig     `koanf:"database"`
	Storage      StorageConfig      `koanf:"storage"`
	Cache        CacheConfig        `koanf:"cache"`
	SearchCache  SearchCacheConfig  `koanf:"search_cache"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Availability AvailabilityConfig `koanf:"availability"`
	Directory    DirectoryConfig    `koanf:"directory"`
	Tasks        TasksConfig        `koanf:"tasks"`
	Security     SecurityConfig     `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"` // per-request handler deadline
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// DatabaseConfig selects and configures the place store.
type DatabaseConfig struct {
	// Driver is "duckdb" or "memory". The memory driver keeps places in a
	// spatial hash grid and is intended for development and tests.
	Driver    string `koanf:"driver"`
	Path      string `koanf:"path"`       // DuckDB file; empty for an in-memory database
	MaxMemory string `koanf:"max_memory"` // DuckDB memory_limit, e.g. "1GB"
	Threads   int    `koanf:"threads"`    // 0 = DuckDB default
	SeedDemo  bool   `koanf:"seed_demo"`  // load the bundled Bangkok places on startup
}

// StorageConfig configures the device-local persistent key-value store that
// backs every cache.
type StorageConfig struct {
	Path             string        `koanf:"path"`
	InMemory         bool          `koanf:"in_memory"`
	OperationTimeout time.Duration `koanf:"operation_timeout"`
	SyncWrites       bool          `koanf:"sync_writes"`
}

// CacheConfig holds generic TTL cache windows and the hard-expiry sweep.
type CacheConfig struct {
	// DetailsValidity is how long place details are served as fresh.
	DetailsValidity time.Duration `koanf:"details_validity"`

	// DetailsSoftExpiry is how long place details may be served as stale
	// while a refresh runs in the background. Must be >= DetailsValidity.
	DetailsSoftExpiry time.Duration `koanf:"details_soft_expiry"`

	// SweepInterval is how often hard-expired entries are deleted.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// SearchCacheConfig tunes the fuzzy geo/text search cache.
type SearchCacheConfig struct {
	MemorySize            int           `koanf:"memory_size"`
	MemoryTTL             time.Duration `koanf:"memory_ttl"`
	Expiry                time.Duration `koanf:"expiry"`
	MaxEntries            int           `koanf:"max_entries"`
	ProximityMeters       float64       `koanf:"proximity_meters"`
	RadiusToleranceMeters float64       `koanf:"radius_tolerance_meters"`
	MinPrefixLength       int           `koanf:"min_prefix_length"`
	MaxPrefixGap          int           `koanf:"max_prefix_gap"`
}

// RecommendConfig holds recommendation engine defaults.
type RecommendConfig struct {
	DefaultRadiusKm     float64       `koanf:"default_radius_km"`
	MinimumPlaces       int           `koanf:"minimum_places"`
	DefaultLimit        int           `koanf:"default_limit"`
	MaxLimit            int           `koanf:"max_limit"`
	MaxDistanceKm       float64       `koanf:"max_distance_km"`
	CandidateMultiplier int           `koanf:"candidate_multiplier"`
	Timeout             time.Duration `koanf:"timeout"`
}

// AvailabilityConfig holds defaults for check_place_availability.
type AvailabilityConfig struct {
	DefaultRadiusM float64 `koanf:"default_radius_m"`
	DefaultMinimum int     `koanf:"default_minimum"`
	MaxRadiusM     float64 `koanf:"max_radius_m"`
}

// DirectoryConfig configures the upstream places directory.
type DirectoryConfig struct {
	Enabled  bool          `koanf:"enabled"`
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Language string        `koanf:"language"`
	Timeout  time.Duration `koanf:"timeout"`

	// Per-operation request rates (requests per second) and shared burst.
	NearbyRPS  float64 `koanf:"nearby_rps"`
	TextRPS    float64 `koanf:"text_rps"`
	DetailsRPS float64 `koanf:"details_rps"`
	Burst      int     `koanf:"burst"`

	// Circuit breaker: trip after BreakerFailures consecutive failures and
	// stay open for BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// TasksConfig sizes the background task queue.
type TasksConfig struct {
	Workers     int           `koanf:"workers"`
	QueueSize   int           `koanf:"queue_size"`
	TaskTimeout time.Duration `koanf:"task_timeout"`
}

// SecurityConfig holds HTTP edge protections.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}
