// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateDatabase,
		c.validateStorage,
		c.validateCache,
		c.validateSearchCache,
		c.validateRecommend,
		c.validateAvailability,
		c.validateDirectory,
		c.validateTasks,
		c.validateSecurity,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
		return nil
	default:
		return fmt.Errorf("server.environment must be development, staging or production, got %q", c.Server.Environment)
	}
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "duckdb", "memory":
	default:
		return fmt.Errorf("database.driver must be duckdb or memory, got %q", c.Database.Driver)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Storage.OperationTimeout <= 0 {
		return fmt.Errorf("storage.operation_timeout must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.DetailsValidity <= 0 {
		return fmt.Errorf("cache.details_validity must be positive")
	}
	if c.Cache.DetailsSoftExpiry < c.Cache.DetailsValidity {
		return fmt.Errorf("cache.details_soft_expiry (%v) must not be shorter than cache.details_validity (%v)",
			c.Cache.DetailsSoftExpiry, c.Cache.DetailsValidity)
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache.sweep_interval must be positive")
	}
	return nil
}

func (c *Config) validateSearchCache() error {
	s := c.SearchCache
	switch {
	case s.MemorySize < 1:
		return fmt.Errorf("search_cache.memory_size must be at least 1")
	case s.MemoryTTL <= 0 || s.Expiry <= 0:
		return fmt.Errorf("search_cache.memory_ttl and search_cache.expiry must be positive")
	case s.MaxEntries < 1:
		return fmt.Errorf("search_cache.max_entries must be at least 1")
	case s.ProximityMeters < 0 || s.RadiusToleranceMeters < 0:
		return fmt.Errorf("search_cache proximity thresholds must not be negative")
	case s.MinPrefixLength < 1 || s.MaxPrefixGap < 0:
		return fmt.Errorf("search_cache prefix settings are out of range")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	switch {
	case r.DefaultRadiusKm <= 0 || r.DefaultRadiusKm > 100:
		return fmt.Errorf("recommend.default_radius_km must be in (0, 100], got %v", r.DefaultRadiusKm)
	case r.MinimumPlaces < 1:
		return fmt.Errorf("recommend.minimum_places must be at least 1")
	case r.DefaultLimit < 1 || r.MaxLimit < r.DefaultLimit:
		return fmt.Errorf("recommend.default_limit must be at least 1 and not exceed recommend.max_limit")
	case r.MaxDistanceKm <= 0:
		return fmt.Errorf("recommend.max_distance_km must be positive")
	case r.CandidateMultiplier < 1:
		return fmt.Errorf("recommend.candidate_multiplier must be at least 1")
	case r.Timeout <= 0:
		return fmt.Errorf("recommend.timeout must be positive")
	}
	return nil
}

func (c *Config) validateAvailability() error {
	a := c.Availability
	if a.MaxRadiusM <= 0 || a.DefaultRadiusM <= 0 || a.DefaultRadiusM > a.MaxRadiusM {
		return fmt.Errorf("availability.default_radius_m must be in (0, max_radius_m]")
	}
	if a.DefaultMinimum < 1 {
		return fmt.Errorf("availability.default_minimum must be at least 1")
	}
	return nil
}

func (c *Config) validateDirectory() error {
	d := c.Directory
	if !d.Enabled {
		return nil
	}
	if d.BaseURL == "" {
		return fmt.Errorf("directory.base_url is required when the directory is enabled")
	}
	if d.APIKey == "" {
		return fmt.Errorf("directory.api_key is required when the directory is enabled")
	}
	if d.NearbyRPS <= 0 || d.TextRPS <= 0 || d.DetailsRPS <= 0 || d.Burst < 1 {
		return fmt.Errorf("directory rate limits must be positive")
	}
	if d.BreakerFailures < 1 || d.BreakerTimeout <= 0 {
		return fmt.Errorf("directory breaker settings must be positive")
	}
	return nil
}

func (c *Config) validateTasks() error {
	if c.Tasks.Workers < 1 || c.Tasks.QueueSize < 1 {
		return fmt.Errorf("tasks.workers and tasks.queue_size must be at least 1")
	}
	if c.Tasks.TaskTimeout <= 0 {
		return fmt.Errorf("tasks.task_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("security rate limit must be positive unless disabled")
	}
	return nil
}
