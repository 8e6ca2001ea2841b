// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/logging"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
	"github.com/khunjon/placemarks-sub005/internal/tasks"
)

// DefaultOperationTimeout bounds every persistent storage call.
const DefaultOperationTimeout = 1500 * time.Millisecond

var errMalformed = errors.New("cache: malformed entry")

// Entry is a cached payload with its ownership and age.
type Entry[T any] struct {
	Payload   T         `json:"payload"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	Key       string    `json:"key"`

	// IsStale is set on entries returned past their validity window.
	IsStale bool `json:"-"`
}

// entryHeader decodes only the bookkeeping fields of an Entry.
type entryHeader struct {
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures a TTLCache.
type Options struct {
	// Namespace prefixes every storage key. Required.
	Namespace string

	// ValidityWindow is how long an entry is fresh.
	ValidityWindow time.Duration

	// SoftExpiryWindow is how long an entry may be served as stale. Values
	// below ValidityWindow are raised to it.
	SoftExpiryWindow time.Duration

	// OperationTimeout bounds each storage call. Defaults to 1.5s.
	OperationTimeout time.Duration
}

// Option customizes a TTLCache.
type Option func(*settings)

type settings struct {
	now    func() time.Time
	tasks  tasks.Submitter
	logger zerolog.Logger
}

// WithClock replaces time.Now. Tests use it to move time forward.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithTasks sets where background deletions run. Defaults to tasks.Inline.
func WithTasks(t tasks.Submitter) Option {
	return func(s *settings) { s.tasks = t }
}

// WithLogger sets the base logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:    time.Now,
		tasks:  tasks.Inline{},
		logger: logging.Logger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Stats describes the entries of one namespace at a point in time.
type Stats struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
	Fresh     int    `json:"fresh"`
	Stale     int    `json:"stale"`
	Expired   int    `json:"expired"`
	Malformed int    `json:"malformed"`
}

type freshness int

const (
	fresh freshness = iota
	stale
	expired
)

// TTLCache is a namespaced, owner-scoped cache of T over a Store.
type TTLCache[T any] struct {
	store    Store
	opts     Options
	prefix   string
	now      func() time.Time
	tasks    tasks.Submitter
	logger   zerolog.Logger
	cacheTag string
}

// NewTTLCache creates a cache for one namespace.
func NewTTLCache[T any](store Store, opts Options, options ...Option) *TTLCache[T] {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.SoftExpiryWindow < opts.ValidityWindow {
		opts.SoftExpiryWindow = opts.ValidityWindow
	}
	s := newSettings(options)
	return &TTLCache[T]{
		store:    store,
		opts:     opts,
		prefix:   opts.Namespace + "/",
		now:      s.now,
		tasks:    s.tasks,
		cacheTag: opts.Namespace,
		logger: s.logger.With().
			Str("component", "cache").
			Str("namespace", opts.Namespace).
			Logger(),
	}
}

// Namespace returns the namespace this cache writes under.
func (c *TTLCache[T]) Namespace() string {
	return c.opts.Namespace
}

// Save writes payload under key for owner, replacing any previous entry.
// Failures are logged and dropped.
func (c *TTLCache[T]) Save(ctx context.Context, key string, payload T, ownerID string) {
	c.write(ctx, &Entry[T]{
		Payload:   payload,
		OwnerID:   ownerID,
		CreatedAt: c.now(),
		Key:       key,
	})
}

// Load returns the entry for key if it belongs to ownerID and is fresh, or
// stale with allowStale set. A miss is (nil, false).
func (c *TTLCache[T]) Load(ctx context.Context, key, ownerID string, allowStale bool) (*Entry[T], bool) {
	entry, ok := c.load(ctx, key, ownerID, allowStale)
	if !ok {
		metrics.RecordCacheMiss(c.cacheTag)
		return nil, false
	}
	metrics.RecordCacheHit(c.cacheTag, "persistent", "exact")
	if entry.IsStale {
		metrics.CacheStaleHits.WithLabelValues(c.cacheTag).Inc()
	}
	return entry, true
}

// Update applies mutate to a copy of the current payload and writes it back.
// Stale entries are updated when allowStale is set. Update never creates an
// entry and keeps the entry's original creation time; it reports whether a
// write happened.
func (c *TTLCache[T]) Update(ctx context.Context, key, ownerID string, allowStale bool, mutate func(T) T) bool {
	entry, ok := c.load(ctx, key, ownerID, allowStale)
	if !ok {
		return false
	}
	entry.Payload = mutate(entry.Payload)
	entry.IsStale = false
	return c.write(ctx, entry)
}

// Invalidate removes key.
func (c *TTLCache[T]) Invalidate(ctx context.Context, key string) {
	c.delete(ctx, c.storageKey(key), "invalidated")
}

// ClearAll removes every entry in the namespace and returns how many were
// removed.
func (c *TTLCache[T]) ClearAll(ctx context.Context) int {
	keys, err := c.listStorageKeys(ctx, "")
	if err != nil {
		return 0
	}
	removed := 0
	for _, k := range keys {
		if c.delete(ctx, k, "invalidated") {
			removed++
		}
	}
	c.logger.Debug().Int("removed", removed).Msg("Cleared cache namespace")
	return removed
}

// HasValid reports whether Load(key, ownerID, false) would hit.
func (c *TTLCache[T]) HasValid(ctx context.Context, key, ownerID string) bool {
	_, ok := c.load(ctx, key, ownerID, false)
	return ok
}

// Keys lists the caller-facing keys in the namespace.
func (c *TTLCache[T]) Keys(ctx context.Context) []string {
	keys, err := c.listStorageKeys(ctx, "")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.prefix))
	}
	return out
}

// Sweep deletes entries past soft expiry and malformed records. It returns
// the number of entries removed.
func (c *TTLCache[T]) Sweep(ctx context.Context) int {
	keys, err := c.listStorageKeys(ctx, "")
	if err != nil {
		return 0
	}
	removed := 0
	for _, k := range keys {
		h, err := c.header(ctx, k)
		switch {
		case errors.Is(err, errMalformed):
			if c.delete(ctx, k, "malformed") {
				removed++
			}
		case err != nil:
			continue
		case c.classify(h.CreatedAt) == expired:
			if c.delete(ctx, k, "expired") {
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return removed
}

// Stats counts entries by freshness.
func (c *TTLCache[T]) Stats(ctx context.Context) Stats {
	st := Stats{Namespace: c.opts.Namespace}
	keys, err := c.listStorageKeys(ctx, "")
	if err != nil {
		return st
	}
	for _, k := range keys {
		h, err := c.header(ctx, k)
		if err != nil {
			if errors.Is(err, errMalformed) {
				st.Malformed++
			}
			continue
		}
		st.Entries++
		switch c.classify(h.CreatedAt) {
		case fresh:
			st.Fresh++
		case stale:
			st.Stale++
		case expired:
			st.Expired++
		}
	}
	return st
}

// load applies ownership and freshness rules without recording hit metrics.
func (c *TTLCache[T]) load(ctx context.Context, key, ownerID string, allowStale bool) (*Entry[T], bool) {
	storageKey := c.storageKey(key)
	entry, err := c.fetch(ctx, storageKey)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, false
	case errors.Is(err, errMalformed):
		c.scheduleDelete(storageKey, "malformed")
		return nil, false
	case err != nil:
		return nil, false
	}

	if entry.OwnerID != ownerID {
		c.logger.Debug().
			Str("key", key).
			Msg("Cache entry belongs to another owner")
		c.scheduleDelete(storageKey, "owner_mismatch")
		return nil, false
	}

	switch c.classify(entry.CreatedAt) {
	case fresh:
		return entry, true
	case stale:
		if !allowStale {
			return nil, false
		}
		entry.IsStale = true
		return entry, true
	default:
		c.scheduleDelete(storageKey, "expired")
		return nil, false
	}
}

func (c *TTLCache[T]) classify(createdAt time.Time) freshness {
	age := c.now().Sub(createdAt)
	switch {
	case age <= c.opts.ValidityWindow:
		return fresh
	case age <= c.opts.SoftExpiryWindow:
		return stale
	default:
		return expired
	}
}

func (c *TTLCache[T]) fetch(ctx context.Context, storageKey string) (*Entry[T], error) {
	raw, err := c.get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Str("key", storageKey).Msg("Malformed cache entry")
		metrics.CacheStorageErrors.WithLabelValues(c.cacheTag, "decode", "malformed").Inc()
		return nil, errMalformed
	}
	if entry.CreatedAt.IsZero() {
		return nil, errMalformed
	}
	return &entry, nil
}

func (c *TTLCache[T]) header(ctx context.Context, storageKey string) (*entryHeader, error) {
	raw, err := c.get(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	var h entryHeader
	if err := json.Unmarshal(raw, &h); err != nil || h.CreatedAt.IsZero() {
		return nil, errMalformed
	}
	return &h, nil
}

func (c *TTLCache[T]) get(ctx context.Context, storageKey string) ([]byte, error) {
	raw, err := withTimeout(ctx, c.opts.OperationTimeout, func(ctx context.Context) ([]byte, error) {
		return c.store.Get(ctx, storageKey)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn().Err(err).Str("key", storageKey).Msg("Cache read failed, treating as miss")
		metrics.RecordCacheStorageError(c.cacheTag, "get", err)
	}
	return raw, err
}

func (c *TTLCache[T]) write(ctx context.Context, entry *Entry[T]) bool {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", entry.Key).Msg("Failed to encode cache entry")
		return false
	}
	_, err = withTimeout(ctx, c.opts.OperationTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.store.Set(ctx, c.storageKey(entry.Key), raw)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", entry.Key).Msg("Cache write failed")
		metrics.RecordCacheStorageError(c.cacheTag, "set", err)
		return false
	}
	return true
}

func (c *TTLCache[T]) delete(ctx context.Context, storageKey, reason string) bool {
	_, err := withTimeout(ctx, c.opts.OperationTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.store.Delete(ctx, storageKey)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", storageKey).Msg("Cache delete failed")
		metrics.RecordCacheStorageError(c.cacheTag, "delete", err)
		return false
	}
	metrics.CacheEvictions.WithLabelValues(c.cacheTag, reason).Inc()
	return true
}

// scheduleDelete removes storageKey in the background.
func (c *TTLCache[T]) scheduleDelete(storageKey, reason string) {
	c.tasks.Submit("cache-delete", func(ctx context.Context) {
		c.delete(ctx, storageKey, reason)
	})
}

// listStorageKeys lists the storage keys of this namespace that start with sub.
func (c *TTLCache[T]) listStorageKeys(ctx context.Context, sub string) ([]string, error) {
	keys, err := withTimeout(ctx, c.opts.OperationTimeout, func(ctx context.Context) ([]string, error) {
		return c.store.Keys(ctx, c.prefix+sub)
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("Cache key listing failed")
		metrics.RecordCacheStorageError(c.cacheTag, "keys", err)
		return nil, err
	}
	return keys, nil
}

func (c *TTLCache[T]) storageKey(key string) string {
	return c.prefix + key
}

// withTimeout runs op with a deadline. The result of an op that outlives
// its deadline is discarded; stores that ignore ctx keep running op in the
// abandoned goroutine until it finishes on its own.
func withTimeout[R any](ctx context.Context, d time.Duration, op func(context.Context) (R, error)) (R, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value R
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
