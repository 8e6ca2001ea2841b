// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/logging"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blockingStore blocks every read until ctx is done.
type blockingStore struct {
	*MemoryStore
}

func (s blockingStore) Get(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// failingStore fails every operation.
type failingStore struct{}

var errBroken = errors.New("storage unavailable")

func (failingStore) Get(context.Context, string) ([]byte, error)    { return nil, errBroken }
func (failingStore) Set(context.Context, string, []byte) error      { return errBroken }
func (failingStore) Delete(context.Context, string) error           { return errBroken }
func (failingStore) Keys(context.Context, string) ([]string, error) { return nil, errBroken }

// countingStore counts writes.
type countingStore struct {
	*MemoryStore
	mu   sync.Mutex
	sets int
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *countingStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func quietLogger() Option {
	return WithLogger(logging.NewTestLogger(io.Discard))
}
