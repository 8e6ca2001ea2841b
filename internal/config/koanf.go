// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/placemarks/config.yaml",
	"/etc/placemarks/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3857,
			Host:            "0.0.0.0",
			Timeout:         10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "/data/placemarks.duckdb",
			MaxMemory: "1GB",
		},
		Storage: StorageConfig{
			Path:             "/data/cache",
			OperationTimeout: 1500 * time.Millisecond,
		},
		Cache: CacheConfig{
			DetailsValidity:   24 * time.Hour,
			DetailsSoftExpiry: 7 * 24 * time.Hour,
			SweepInterval:     15 * time.Minute,
		},
		SearchCache: SearchCacheConfig{
			MemorySize:            200,
			MemoryTTL:             5 * time.Minute,
			Expiry:                15 * time.Minute,
			MaxEntries:            50,
			ProximityMeters:       100,
			RadiusToleranceMeters: 100,
			MinPrefixLength:       3,
			MaxPrefixGap:          3,
		},
		Recommend: RecommendConfig{
			DefaultRadiusKm:     15,
			MinimumPlaces:       5,
			DefaultLimit:        10,
			MaxLimit:            50,
			MaxDistanceKm:       15,
			CandidateMultiplier: 2,
			Timeout:             8 * time.Second,
		},
		Availability: AvailabilityConfig{
			DefaultRadiusM: 15000,
			DefaultMinimum: 5,
			MaxRadiusM:     100000,
		},
		Directory: DirectoryConfig{
			Enabled:         false,
			BaseURL:         "https://maps.googleapis.com/maps/api/place",
			Language:        "en",
			Timeout:         5 * time.Second,
			NearbyRPS:       5,
			TextRPS:         5,
			DetailsRPS:      10,
			Burst:           5,
			BreakerFailures: 5,
			BreakerTimeout:  60 * time.Second,
		},
		Tasks: TasksConfig{
			Workers:     4,
			QueueSize:   256,
			TaskTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":               "server.port",
	"server_port":             "server.port",
	"server_host":             "server.host",
	"server_timeout":          "server.timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"environment":             "server.environment",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"database_driver": "database.driver",
	"duckdb_path":     "database.path",
	"duckdb_memory":   "database.max_memory",
	"duckdb_threads":  "database.threads",
	"seed_demo":       "database.seed_demo",

	"cache_path":              "storage.path",
	"cache_in_memory":         "storage.in_memory",
	"cache_operation_timeout": "storage.operation_timeout",
	"cache_sync_writes":       "storage.sync_writes",

	"cache_details_validity":    "cache.details_validity",
	"cache_details_soft_expiry": "cache.details_soft_expiry",
	"cache_sweep_interval":      "cache.sweep_interval",

	"search_cache_memory_size":      "search_cache.memory_size",
	"search_cache_memory_ttl":       "search_cache.memory_ttl",
	"search_cache_expiry":           "search_cache.expiry",
	"search_cache_max_entries":      "search_cache.max_entries",
	"search_cache_proximity_meters": "search_cache.proximity_meters",
	"search_cache_radius_tolerance": "search_cache.radius_tolerance_meters",

	"recommend_default_radius_km": "recommend.default_radius_km",
	"recommend_minimum_places":    "recommend.minimum_places",
	"recommend_default_limit":     "recommend.default_limit",
	"recommend_max_limit":         "recommend.max_limit",
	"recommend_max_distance_km":   "recommend.max_distance_km",
	"recommend_timeout":           "recommend.timeout",

	"availability_default_radius_m": "availability.default_radius_m",
	"availability_default_minimum":  "availability.default_minimum",

	"directory_enabled":          "directory.enabled",
	"directory_base_url":         "directory.base_url",
	"directory_api_key":          "directory.api_key",
	"places_api_key":             "directory.api_key",
	"directory_language":         "directory.language",
	"directory_timeout":          "directory.timeout",
	"directory_nearby_rps":       "directory.nearby_rps",
	"directory_text_rps":         "directory.text_rps",
	"directory_details_rps":      "directory.details_rps",
	"directory_burst":            "directory.burst",
	"directory_breaker_failures": "directory.breaker_failures",
	"directory_breaker_timeout":  "directory.breaker_timeout",

	"task_workers":    "tasks.workers",
	"task_queue_size": "tasks.queue_size",
	"task_timeout":    "tasks.task_timeout",

	"rate_limit_reqs":    "security.rate_limit_reqs",
	"rate_limit_window":  "security.rate_limit_window",
	"disable_rate_limit": "security.rate_limit_disabled",
	"cors_origins":       "security.cors_origins",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
