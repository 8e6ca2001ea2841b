// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package cache

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/metrics"
	"github.com/khunjon/placemarks-sub005/internal/tasks"
)

// SearchKind distinguishes location searches from text searches.
type SearchKind string

const (
	SearchNearby SearchKind = "nearby"
	SearchText   SearchKind = "text"
)

// SearchQuery identifies a directory search.
type SearchQuery struct {
	Kind    SearchKind      `json:"kind"`
	Center  *geo.Coordinate `json:"center,omitempty"`
	RadiusM float64         `json:"radius_m,omitempty"`
	Type    string          `json:"type,omitempty"`
	Query   string          `json:"query,omitempty"`
}

// NearbyQuery builds a location search.
func NearbyQuery(center geo.Coordinate, radiusM float64, placeType string) SearchQuery {
	return SearchQuery{Kind: SearchNearby, Center: &center, RadiusM: radiusM, Type: placeType}
}

// TextQuery builds a text search, optionally biased to a location.
func TextQuery(query string, bias *geo.Coordinate) SearchQuery {
	return SearchQuery{Kind: SearchText, Query: query, Center: bias}
}

// NormalizeQuery lowercases, trims and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// Normalized returns the query with normalized text and type.
func (q SearchQuery) Normalized() SearchQuery {
	q.Query = NormalizeQuery(q.Query)
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	return q
}

// Key returns the quantized cache key:
//
//	nearby:<lat>,<lng>:r<radius>:<type>
//	text:<query>@<lat>,<lng>    or    text:<query>@-
func (q SearchQuery) Key() string {
	n := q.Normalized()
	switch n.Kind {
	case SearchNearby:
		center := "-"
		if n.Center != nil {
			center = n.Center.Key()
		}
		return fmt.Sprintf("nearby:%s:r%d:%s", center, int(math.Round(n.RadiusM)), n.Type)
	default:
		bias := "-"
		if n.Center != nil {
			bias = n.Center.Key()
		}
		return fmt.Sprintf("text:%s@%s", n.Query, bias)
	}
}

// OwnerKey scopes key to ownerID so owners never share a storage key:
//
//	<escaped owner>/<key>
func OwnerKey(ownerID, key string) string {
	return url.PathEscape(ownerID) + "/" + key
}

// SearchOptions configures a SearchCache.
type SearchOptions struct {
	Namespace string

	// Expiry is the hard age limit for every tier and strategy.
	Expiry time.Duration

	// MemorySize and MemoryTTL bound the in-process tier.
	MemorySize int
	MemoryTTL  time.Duration

	// MaxEntries bounds the persistent tier.
	MaxEntries int

	ProximityMeters       float64
	RadiusToleranceMeters float64
	MinPrefixLength       int
	MaxPrefixGap          int

	OperationTimeout time.Duration
}

// DefaultSearchOptions returns the standard thresholds for namespace.
func DefaultSearchOptions(namespace string) SearchOptions {
	return SearchOptions{
		Namespace:             namespace,
		Expiry:                15 * time.Minute,
		MemorySize:            200,
		MemoryTTL:             5 * time.Minute,
		MaxEntries:            50,
		ProximityMeters:       100,
		RadiusToleranceMeters: 100,
		MinPrefixLength:       3,
		MaxPrefixGap:          3,
		OperationTimeout:      DefaultOperationTimeout,
	}
}

// SearchHit is a search cache hit.
type SearchHit[T any] struct {
	Results   T           `json:"results"`
	Query     SearchQuery `json:"query"`
	CreatedAt time.Time   `json:"created_at"`

	// Tier is "memory" or "persistent"; Strategy is "exact", "proximity"
	// or "prefix".
	Tier     string `json:"tier"`
	Strategy string `json:"strategy"`
}

type searchRecord[T any] struct {
	Query   SearchQuery `json:"query"`
	Results T           `json:"results"`
}

type memoryRecord[T any] struct {
	Query     SearchQuery `json:"query"`
	Results   T           `json:"results"`
	OwnerID   string      `json:"owner_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// SearchCache caches search results in a bounded in-process tier and a
// persistent TTLCache. Reads fall back from exact keys to proximity matching
// (nearby searches) or prefix matching (text searches).
type SearchCache[T any] struct {
	opts       SearchOptions
	persistent *TTLCache[searchRecord[T]]
	memory     *expirable.LRU[string, []byte]
	now        func() time.Time
	tasks      tasks.Submitter
	logger     zerolog.Logger

	sweepPending atomic.Bool
}

// NewSearchCache creates a search cache over store.
func NewSearchCache[T any](store Store, opts SearchOptions, options ...Option) *SearchCache[T] {
	def := DefaultSearchOptions(opts.Namespace)
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.MemorySize <= 0 {
		opts.MemorySize = def.MemorySize
	}
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = def.MemoryTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = def.MaxEntries
	}
	if opts.MinPrefixLength <= 0 {
		opts.MinPrefixLength = def.MinPrefixLength
	}

	s := newSettings(options)
	persistent := NewTTLCache[searchRecord[T]](store, Options{
		Namespace:        opts.Namespace,
		ValidityWindow:   opts.Expiry,
		SoftExpiryWindow: opts.Expiry,
		OperationTimeout: opts.OperationTimeout,
	}, options...)

	return &SearchCache[T]{
		opts:       opts,
		persistent: persistent,
		memory:     expirable.NewLRU[string, []byte](opts.MemorySize, nil, opts.MemoryTTL),
		now:        s.now,
		tasks:      s.tasks,
		logger: s.logger.With().
			Str("component", "search_cache").
			Str("namespace", opts.Namespace).
			Logger(),
	}
}

// Lookup returns cached results for q, trying in order the memory tier
// (exact, then fuzzy) and the persistent tier (exact, then fuzzy).
func (c *SearchCache[T]) Lookup(ctx context.Context, ownerID string, q SearchQuery) (*SearchHit[T], bool) {
	q = q.Normalized()
	key := OwnerKey(ownerID, q.Key())

	if hit, ok := c.lookupMemory(ownerID, q, key); ok {
		return c.recordHit(hit), true
	}

	if entry, ok := c.persistent.load(ctx, key, ownerID, false); ok {
		hit := &SearchHit[T]{
			Results:   entry.Payload.Results,
			Query:     entry.Payload.Query,
			CreatedAt: entry.CreatedAt,
			Tier:      "persistent",
			Strategy:  "exact",
		}
		c.remember(key, ownerID, hit)
		return c.recordHit(hit), true
	}

	if hit, ok := c.scanPersistent(ctx, ownerID, q); ok {
		c.remember(key, ownerID, hit)
		return c.recordHit(hit), true
	}

	metrics.RecordCacheMiss(c.opts.Namespace)
	return nil, false
}

// Store writes results to both tiers and schedules a bound sweep.
func (c *SearchCache[T]) Store(ctx context.Context, ownerID string, q SearchQuery, results T) {
	q = q.Normalized()
	key := OwnerKey(ownerID, q.Key())
	now := c.now()

	c.remember(key, ownerID, &SearchHit[T]{Results: results, Query: q, CreatedAt: now})
	c.persistent.Save(ctx, key, searchRecord[T]{Query: q, Results: results}, ownerID)
	c.scheduleBound()
}

// Invalidate removes ownerID's exact entry for q from both tiers.
func (c *SearchCache[T]) Invalidate(ctx context.Context, ownerID string, q SearchQuery) {
	key := OwnerKey(ownerID, q.Key())
	c.memory.Remove(key)
	c.persistent.Invalidate(ctx, key)
}

// ClearAll empties both tiers and returns the number of persistent entries
// removed.
func (c *SearchCache[T]) ClearAll(ctx context.Context) int {
	c.memory.Purge()
	return c.persistent.ClearAll(ctx)
}

// Sweep removes expired persistent entries.
func (c *SearchCache[T]) Sweep(ctx context.Context) int {
	return c.persistent.Sweep(ctx)
}

// Stats reports persistent tier counts.
func (c *SearchCache[T]) Stats(ctx context.Context) Stats {
	return c.persistent.Stats(ctx)
}

// MemoryLen returns the number of in-process entries.
func (c *SearchCache[T]) MemoryLen() int {
	return c.memory.Len()
}

// Namespace returns the cache namespace.
func (c *SearchCache[T]) Namespace() string {
	return c.opts.Namespace
}

func (c *SearchCache[T]) recordHit(hit *SearchHit[T]) *SearchHit[T] {
	metrics.RecordCacheHit(c.opts.Namespace, hit.Tier, hit.Strategy)
	return hit
}

func (c *SearchCache[T]) lookupMemory(ownerID string, q SearchQuery, key string) (*SearchHit[T], bool) {
	if raw, ok := c.memory.Get(key); ok {
		if rec, ok := c.decodeMemory(key, raw); ok && rec.OwnerID == ownerID {
			return &SearchHit[T]{
				Results:   rec.Results,
				Query:     rec.Query,
				CreatedAt: rec.CreatedAt,
				Tier:      "memory",
				Strategy:  "exact",
			}, true
		}
	}

	ownerPrefix := OwnerKey(ownerID, "")
	for _, k := range c.memory.Keys() {
		if k == key || !strings.HasPrefix(k, ownerPrefix) {
			continue
		}
		raw, ok := c.memory.Peek(k)
		if !ok {
			continue
		}
		rec, ok := c.decodeMemory(k, raw)
		if !ok || rec.OwnerID != ownerID {
			continue
		}
		if strategy, ok := c.matches(rec.Query, q); ok {
			return &SearchHit[T]{
				Results:   rec.Results,
				Query:     rec.Query,
				CreatedAt: rec.CreatedAt,
				Tier:      "memory",
				Strategy:  strategy,
			}, true
		}
	}
	return nil, false
}

// decodeMemory returns a private copy of a memory record, dropping it once
// it is older than Expiry.
func (c *SearchCache[T]) decodeMemory(key string, raw []byte) (*memoryRecord[T], bool) {
	var rec memoryRecord[T]
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.memory.Remove(key)
		return nil, false
	}
	if c.now().Sub(rec.CreatedAt) > c.opts.Expiry {
		c.memory.Remove(key)
		return nil, false
	}
	return &rec, true
}

func (c *SearchCache[T]) scanPersistent(ctx context.Context, ownerID string, q SearchQuery) (*SearchHit[T], bool) {
	keys, err := c.persistent.listStorageKeys(ctx, OwnerKey(ownerID, string(q.Kind)+":"))
	if err != nil {
		return nil, false
	}
	exact := c.persistent.storageKey(OwnerKey(ownerID, q.Key()))

	for _, k := range keys {
		if k == exact {
			continue
		}
		entry, err := c.persistent.fetch(ctx, k)
		if err != nil || entry.OwnerID != ownerID {
			continue
		}
		if c.persistent.classify(entry.CreatedAt) != fresh {
			continue
		}
		if strategy, ok := c.matches(entry.Payload.Query, q); ok {
			return &SearchHit[T]{
				Results:   entry.Payload.Results,
				Query:     entry.Payload.Query,
				CreatedAt: entry.CreatedAt,
				Tier:      "persistent",
				Strategy:  strategy,
			}, true
		}
	}
	return nil, false
}

// matches reports whether a stored query can answer a requested one and by
// which strategy.
func (c *SearchCache[T]) matches(stored, requested SearchQuery) (string, bool) {
	if stored.Kind != requested.Kind {
		return "", false
	}
	switch requested.Kind {
	case SearchNearby:
		if stored.Center == nil || requested.Center == nil || stored.Type != requested.Type {
			return "", false
		}
		if geo.HaversineMeters(*stored.Center, *requested.Center) > c.opts.ProximityMeters {
			return "", false
		}
		if math.Abs(stored.RadiusM-requested.RadiusM) > c.opts.RadiusToleranceMeters {
			return "", false
		}
		return "proximity", true
	case SearchText:
		if !c.biasCompatible(stored.Center, requested.Center) {
			return "", false
		}
		if !c.prefixMatch(stored.Query, requested.Query) {
			return "", false
		}
		return "prefix", true
	}
	return "", false
}

func (c *SearchCache[T]) prefixMatch(stored, requested string) bool {
	storedLen := utf8.RuneCountInString(stored)
	if storedLen < c.opts.MinPrefixLength {
		return false
	}
	if !strings.HasPrefix(requested, stored) {
		return false
	}
	return utf8.RuneCountInString(requested)-storedLen <= c.opts.MaxPrefixGap
}

func (c *SearchCache[T]) biasCompatible(stored, requested *geo.Coordinate) bool {
	if stored == nil || requested == nil {
		return stored == nil && requested == nil
	}
	return geo.HaversineMeters(*stored, *requested) <= c.opts.ProximityMeters
}

// remember writes hit into the memory tier under key.
func (c *SearchCache[T]) remember(key, ownerID string, hit *SearchHit[T]) {
	raw, err := json.Marshal(memoryRecord[T]{
		Query:     hit.Query,
		Results:   hit.Results,
		OwnerID:   ownerID,
		CreatedAt: hit.CreatedAt,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to encode memory cache record")
		return
	}
	c.memory.Add(key, raw)
}

// scheduleBound submits at most one pending bound sweep.
func (c *SearchCache[T]) scheduleBound() {
	if !c.sweepPending.CompareAndSwap(false, true) {
		return
	}
	if !c.tasks.Submit("search-cache-bound", func(ctx context.Context) {
		c.sweepPending.Store(false)
		c.enforceBound(ctx)
	}) {
		c.sweepPending.Store(false)
	}
}

// enforceBound deletes expired entries, then the oldest entries until at
// most MaxEntries remain.
func (c *SearchCache[T]) enforceBound(ctx context.Context) int {
	keys, err := c.persistent.listStorageKeys(ctx, "")
	if err != nil || len(keys) <= c.opts.MaxEntries {
		return 0
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	live := make([]aged, 0, len(keys))
	removed := 0
	for _, k := range keys {
		h, err := c.persistent.header(ctx, k)
		if err != nil {
			continue
		}
		if c.persistent.classify(h.CreatedAt) == expired {
			if c.evict(ctx, k, "expired") {
				removed++
			}
			continue
		}
		live = append(live, aged{key: k, createdAt: h.CreatedAt})
	}

	excess := len(live) - c.opts.MaxEntries
	if excess <= 0 {
		return removed
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].createdAt.Before(live[j].createdAt)
	})
	for _, a := range live[:excess] {
		if c.evict(ctx, a.key, "capacity") {
			removed++
		}
	}
	c.logger.Debug().
		Int("removed", removed).
		Int("max_entries", c.opts.MaxEntries).
		Msg("Bounded search cache")
	return removed
}

func (c *SearchCache[T]) evict(ctx context.Context, storageKey, reason string) bool {
	c.memory.Remove(strings.TrimPrefix(storageKey, c.persistent.prefix))
	return c.persistent.delete(ctx, storageKey, reason)
}
