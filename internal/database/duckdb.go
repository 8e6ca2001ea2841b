// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/config"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
)

// DuckDBStore implements Store on DuckDB.
type DuckDBStore struct {
	conn   *sql.DB
	cfg    *config.DatabaseConfig
	logger zerolog.Logger
}

// OpenDuckDB opens (or creates) the database at cfg.Path and initializes the
// schema. An empty path opens an in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func OpenDuckDB(cfg *config.DatabaseConfig, logger zerolog.Logger) (*DuckDBStore, error) {
	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &DuckDBStore{
		conn:   conn,
		cfg:    cfg,
		logger: logger.With().Str("component", "store").Str("driver", DriverDuckDB).Logger(),
	}
	s.configureConnectionPool()

	if err := s.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().
		Str("path", displayPath(cfg.Path)).
		Msg("Place store ready")
	return s, nil
}

func connString(cfg *config.DatabaseConfig) string {
	params := url.Values{}
	if cfg.Path != "" {
		params.Set("access_mode", "read_write")
	}
	if cfg.Threads > 0 {
		params.Set("threads", strconv.Itoa(cfg.Threads))
	}
	if cfg.MaxMemory != "" {
		params.Set("max_memory", cfg.MaxMemory)
	}
	if len(params) == 0 {
		return cfg.Path
	}
	return cfg.Path + "?" + params.Encode()
}

func displayPath(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}

// configureConnectionPool sets connection pool parameters.
func (s *DuckDBStore) configureConnectionPool() {
	s.conn.SetMaxOpenConns(runtime.NumCPU())
	s.conn.SetMaxIdleConns(2)
	s.conn.SetConnMaxLifetime(time.Hour)
	s.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (s *DuckDBStore) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS places (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL DEFAULT '',
			address VARCHAR NOT NULL DEFAULT '',
			rating DOUBLE,
			rating_count INTEGER NOT NULL DEFAULT 0,
			price_level INTEGER,
			categories VARCHAR NOT NULL DEFAULT '[]',
			business_status VARCHAR NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS visits (
			user_id VARCHAR NOT NULL,
			place_id VARCHAR NOT NULL,
			visited_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, place_id)
		)`,
	}

	for _, q := range queries {
		if _, err := s.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Conn returns the underlying SQL connection.
func (s *DuckDBStore) Conn() *sql.DB {
	return s.conn
}

// Ping checks the connection.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.conn.PingContext(ctx)
	metrics.RecordDBQuery("ping", time.Since(start), err)
	return err
}

// Close closes the database.
func (s *DuckDBStore) Close() error {
	return s.conn.Close()
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update")
}

// withRetry runs fn, retrying transaction conflicts with exponential backoff.
func withRetry(ctx context.Context, fn func() error) error {
	const maxRetries = 3
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}
		if !isTransactionConflict(err) {
			return err
		}

		backoff := time.Millisecond * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
