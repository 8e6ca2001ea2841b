// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package cache provides the freshness-aware caches used in front of the place
store and the places directory.

# Layers

  - Store: the persistent key-value capability. BadgerStore is the production
    implementation; MemoryStore is the in-process double used by tests and the
    development profile. The implementation is chosen at construction time.
  - TTLCache[T]: a namespaced, owner-scoped cache of JSON envelopes with a
    validity window and a longer soft-expiry window.
  - SearchCache[T]: a TTLCache specialization for geo and text searches with a
    bounded in-process tier, proximity matching for nearby searches and prefix
    matching for text searches.

# Freshness

Every entry carries the time it was written. For a TTLCache:

	age <= validity            fresh
	validity < age <= soft     stale, returned only when the caller allows it
	age > soft                 absent

Stale entries let callers render immediately and refresh in the background
(stale-while-revalidate) without the cache knowing how data is fetched.

# Failure model

The cache is best-effort. Storage failures, storage timeouts and malformed
records are logged, counted and reported as misses. Misses are (nil, false),
never errors. Writes that fail are dropped.

# Ownership

Entries belong to an owner id. Loading with a different owner is a miss and
schedules deletion of the foreign entry. Payloads are decoded fresh on every
read, so callers never hold a reference into cached state; updates go through
Update, which copies, mutates and replaces.

Caches shared by many owners put the owner in the key with OwnerKey, so
owners never contend for one storage key. SearchCache does this for both
tiers and scans only the requesting owner's keys on fuzzy lookups:

	<namespace>/<escaped owner>/nearby:<lat>,<lng>:r<radius>:<type>
	<namespace>/<escaped owner>/text:<query>@<bias>

# Background work

Deletions triggered by reads and the search cache's size bound run through a
tasks.Submitter so that reads and writes never wait on them.
*/
package cache
