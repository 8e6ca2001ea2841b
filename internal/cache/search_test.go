// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package cache

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/tasks"
)

const owner = "shared"

func newTestSearchCache(t *testing.T, store Store, clock *fakeClock, opts ...Option) *SearchCache[[]string] {
	t.Helper()
	o := DefaultSearchOptions("search")
	o.OperationTimeout = 50 * time.Millisecond
	all := append([]Option{WithClock(clock.Now), quietLogger()}, opts...)
	return NewSearchCache[[]string](store, o, all...)
}

// restart drops the memory tier so lookups must use the persistent tier.
func restart(t *testing.T, store Store, clock *fakeClock) *SearchCache[[]string] {
	t.Helper()
	return newTestSearchCache(t, store, clock)
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Coffee", "coffee"},
		{"  Coffee   Shop ", "coffee shop"},
		{"ร้านกาแฟ", "ร้านกาแฟ"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchQuery_Key(t *testing.T) {
	center := geo.New(13.75631, 100.50182)
	tests := []struct {
		name string
		q    SearchQuery
		want string
	}{
		{"nearby", NearbyQuery(center, 5000, "Cafe"), "nearby:13.756,100.502:r5000:cafe"},
		{"nearby no type", NearbyQuery(center, 1500.4, ""), "nearby:13.756,100.502:r1500:"},
		{"text", TextQuery(" Coffee  Shop", nil), "text:coffee shop@-"},
		{"text with bias", TextQuery("coffee", &center), "text:coffee@13.756,100.502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSearchCache_ExactHitAndTiers(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock)

	q := NearbyQuery(geo.New(13.7563, 100.5018), 1000, "cafe")
	c.Store(ctx, owner, q, []string{"a", "b"})

	hit, ok := c.Lookup(ctx, owner, q)
	if !ok {
		t.Fatal("Lookup() missed right after Store()")
	}
	if hit.Tier != "memory" || hit.Strategy != "exact" {
		t.Errorf("hit from %s/%s, want memory/exact", hit.Tier, hit.Strategy)
	}
	if !reflect.DeepEqual(hit.Results, []string{"a", "b"}) {
		t.Errorf("Results = %v", hit.Results)
	}

	fresh := restart(t, store, clock)
	hit, ok = fresh.Lookup(ctx, owner, q)
	if !ok || hit.Tier != "persistent" || hit.Strategy != "exact" {
		t.Fatalf("Lookup() after restart = %+v, %v, want persistent/exact", hit, ok)
	}
	if fresh.MemoryLen() != 1 {
		t.Error("persistent hit did not populate the memory tier")
	}
	hit, _ = fresh.Lookup(ctx, owner, q)
	if hit.Tier != "memory" {
		t.Errorf("repeat lookup served from %s, want memory", hit.Tier)
	}
}

func TestSearchCache_ProximityMatch(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()

	stored := NearbyQuery(geo.New(13.7000, 100.5000), 5000, "")
	near := NearbyQuery(geo.New(13.7005, 100.5001), 5050, "")

	tests := []struct {
		name    string
		query   SearchQuery
		wantHit bool
	}{
		{"within thresholds", near, true},
		{"too far", NearbyQuery(geo.New(13.7020, 100.5000), 5000, ""), false},
		{"radius too different", NearbyQuery(geo.New(13.7000, 100.5000), 5200, ""), false},
		{"different type", NearbyQuery(geo.New(13.7000, 100.5000), 5000, "bar"), false},
	}

	for _, tier := range []string{"memory", "persistent"} {
		for _, tt := range tests {
			t.Run(tier+"/"+tt.name, func(t *testing.T) {
				writer := newTestSearchCache(t, store, clock)
				writer.ClearAll(ctx)
				writer.Store(ctx, owner, stored, []string{"stored"})

				reader := writer
				if tier == "persistent" {
					reader = restart(t, store, clock)
				}

				hit, ok := reader.Lookup(ctx, owner, tt.query)
				if ok != tt.wantHit {
					t.Fatalf("Lookup() hit = %v, want %v", ok, tt.wantHit)
				}
				if !ok {
					return
				}
				if hit.Tier != tier {
					t.Errorf("Tier = %s, want %s", hit.Tier, tier)
				}
				if !reflect.DeepEqual(hit.Results, []string{"stored"}) {
					t.Errorf("Results = %v, want the stored results", hit.Results)
				}
			})
		}
	}
}

func TestSearchCache_PrefixMatch(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock)

	c.Store(ctx, owner, TextQuery("coffee", nil), []string{"coffee results"})
	c.Store(ctx, owner, TextQuery("ba", nil), []string{"too short"})

	tests := []struct {
		query   string
		wantHit bool
	}{
		{"coffee s", true},
		{"Coffee Sh", true},
		{"coffee sho", false},
		{"cof", false},
		{"tea", false},
		{"bar", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			for name, reader := range map[string]*SearchCache[[]string]{
				"memory":     c,
				"persistent": restart(t, store, clock),
			} {
				hit, ok := reader.Lookup(ctx, owner, TextQuery(tt.query, nil))
				if ok != tt.wantHit {
					t.Errorf("%s: Lookup(%q) hit = %v, want %v", name, tt.query, ok, tt.wantHit)
					continue
				}
				if ok && hit.Strategy != "prefix" {
					t.Errorf("%s: Strategy = %s, want prefix", name, hit.Strategy)
				}
			}
		})
	}
}

func TestSearchCache_PrefixRespectsLocationBias(t *testing.T) {
	ctx := context.Background()
	c := newTestSearchCache(t, NewMemoryStore(), newFakeClock())

	bangkok := geo.New(13.7563, 100.5018)
	chiangMai := geo.New(18.7883, 98.9853)
	c.Store(ctx, owner, TextQuery("coffee", &bangkok), []string{"bkk"})

	if _, ok := c.Lookup(ctx, owner, TextQuery("coffee s", &chiangMai)); ok {
		t.Error("prefix match crossed location biases")
	}
	if _, ok := c.Lookup(ctx, owner, TextQuery("coffee s", nil)); ok {
		t.Error("biased entry answered an unbiased query")
	}
	if _, ok := c.Lookup(ctx, owner, TextQuery("coffee s", &bangkok)); !ok {
		t.Error("same-bias prefix lookup missed")
	}
}

func TestSearchCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock)

	nearby := NearbyQuery(geo.New(13.7000, 100.5000), 5000, "")
	c.Store(ctx, owner, nearby, []string{"n"})
	c.Store(ctx, owner, TextQuery("coffee", nil), []string{"t"})

	clock.Advance(14 * time.Minute)
	if _, ok := c.Lookup(ctx, owner, nearby); !ok {
		t.Fatal("entry expired before 15 minutes")
	}

	clock.Advance(2 * time.Minute)
	lookups := map[string]SearchQuery{
		"exact":     nearby,
		"proximity": NearbyQuery(geo.New(13.7005, 100.5001), 5050, ""),
		"prefix":    TextQuery("coffee s", nil),
	}
	for name, q := range lookups {
		if _, ok := c.Lookup(ctx, owner, q); ok {
			t.Errorf("%s lookup returned an entry older than 15 minutes", name)
		}
		if _, ok := restart(t, store, clock).Lookup(ctx, owner, q); ok {
			t.Errorf("%s persistent lookup returned an entry older than 15 minutes", name)
		}
	}
}

func TestSearchCache_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestSearchCache(t, NewMemoryStore(), newFakeClock())

	q := TextQuery("coffee", nil)
	c.Store(ctx, "user-a", q, []string{"a"})

	if _, ok := c.Lookup(ctx, "user-b", q); ok {
		t.Error("Lookup() returned another owner's results")
	}
	if _, ok := c.Lookup(ctx, "user-b", TextQuery("coffee s", nil)); ok {
		t.Error("fuzzy lookup returned another owner's results")
	}
}

func TestSearchCache_OwnersKeepTheirEntries(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock)

	nearby := NearbyQuery(geo.New(13.7000, 100.5000), 5000, "")
	text := TextQuery("coffee", nil)
	c.Store(ctx, "user-a", nearby, []string{"a-nearby"})
	c.Store(ctx, "user-a", text, []string{"a-text"})

	// user-b misses on the same and on similar queries, then caches its own.
	if _, ok := c.Lookup(ctx, "user-b", nearby); ok {
		t.Fatal("user-b hit user-a's entry")
	}
	if _, ok := c.Lookup(ctx, "user-b", TextQuery("coffee s", nil)); ok {
		t.Fatal("user-b prefix lookup hit user-a's entry")
	}
	c.Store(ctx, "user-b", nearby, []string{"b-nearby"})

	if store.Len() != 3 {
		t.Errorf("store has %d entries, want 3", store.Len())
	}

	fresh := restart(t, store, clock)
	tests := []struct {
		name     string
		ownerID  string
		q        SearchQuery
		want     string
		strategy string
	}{
		{"user-a exact", "user-a", nearby, "a-nearby", "exact"},
		{"user-a proximity", "user-a", NearbyQuery(geo.New(13.7005, 100.5001), 5050, ""), "a-nearby", "proximity"},
		{"user-a prefix", "user-a", TextQuery("coffee s", nil), "a-text", "prefix"},
		{"user-b exact", "user-b", nearby, "b-nearby", "exact"},
	}
	for _, tt := range tests {
		hit, ok := fresh.Lookup(ctx, tt.ownerID, tt.q)
		if !ok {
			t.Errorf("%s: Lookup() missed", tt.name)
			continue
		}
		if len(hit.Results) != 1 || hit.Results[0] != tt.want || hit.Strategy != tt.strategy {
			t.Errorf("%s: Lookup() = %v via %s, want [%s] via %s", tt.name, hit.Results, hit.Strategy, tt.want, tt.strategy)
		}
	}
}

func TestOwnerKey(t *testing.T) {
	tests := []struct{ owner, key, want string }{
		{"user-a", "text:coffee@-", "user-a/text:coffee@-"},
		{"a/b", "text:coffee@-", "a%2Fb/text:coffee@-"},
		{"", "nearby:", "/nearby:"},
	}
	for _, tt := range tests {
		if got := OwnerKey(tt.owner, tt.key); got != tt.want {
			t.Errorf("OwnerKey(%q, %q) = %q, want %q", tt.owner, tt.key, got, tt.want)
		}
	}
}

func TestSearchCache_BoundEvictsOldest(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock)

	for i := 0; i < 55; i++ {
		c.Store(ctx, owner, TextQuery(fmt.Sprintf("query %02d", i), nil), []string{fmt.Sprint(i)})
		clock.Advance(time.Second)
	}

	keys, _ := store.Keys(ctx, "search/")
	if len(keys) != 50 {
		t.Fatalf("persistent entries = %d, want 50", len(keys))
	}

	for i := 0; i < 5; i++ {
		q := TextQuery(fmt.Sprintf("query %02d", i), nil)
		if _, err := store.Get(ctx, "search/"+OwnerKey(owner, q.Key())); err == nil {
			t.Errorf("oldest entry %q survived the bound", q.Query)
		}
		if _, ok := c.Lookup(ctx, owner, q); ok {
			t.Errorf("evicted entry %q still served from memory", q.Query)
		}
	}
	if _, ok := c.Lookup(ctx, owner, TextQuery("query 54", nil)); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestSearchCache_BoundRunsInBackground(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, clock, WithTasks(tasks.Discard{}))

	for i := 0; i < 55; i++ {
		c.Store(ctx, owner, TextQuery(fmt.Sprintf("query %02d", i), nil), nil)
	}
	if store.Len() != 55 {
		t.Errorf("store has %d entries; the bound should only run on the task queue", store.Len())
	}
}

func TestSearchCache_FailingStore(t *testing.T) {
	ctx := context.Background()
	c := newTestSearchCache(t, failingStore{}, newFakeClock())

	q := TextQuery("coffee", nil)
	c.Store(ctx, owner, q, []string{"x"})

	hit, ok := c.Lookup(ctx, owner, q)
	if !ok || hit.Tier != "memory" {
		t.Errorf("Lookup() = %+v, %v; memory tier should serve while storage is down", hit, ok)
	}
	if _, ok := c.Lookup(ctx, owner, TextQuery("tea", nil)); ok {
		t.Error("Lookup() hit for an unknown query")
	}
}

func TestSearchCache_InvalidateAndClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := newTestSearchCache(t, store, newFakeClock())

	a := TextQuery("coffee", nil)
	b := TextQuery("noodles", nil)
	c.Store(ctx, owner, a, []string{"a"})
	c.Store(ctx, owner, b, []string{"b"})

	c.Invalidate(ctx, owner, a)
	if _, ok := c.Lookup(ctx, owner, a); ok {
		t.Error("Lookup() hit after Invalidate()")
	}
	if got := c.ClearAll(ctx); got != 1 {
		t.Errorf("ClearAll() = %d, want 1", got)
	}
	if c.MemoryLen() != 0 || store.Len() != 0 {
		t.Error("ClearAll() left entries behind")
	}
}
