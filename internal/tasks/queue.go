// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package tasks runs fire-and-forget background work (cache bound sweeps,
// owner-mismatch deletions, stale-while-revalidate refreshes) on a fixed pool
// of workers.
//
// Submitting never blocks: when the buffer is full the task is dropped and
// counted. Queue implements suture.Service; tasks submitted before Serve starts
// wait in the buffer.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khunjon/placemarks-sub005/internal/metrics"
)

// Func is a unit of background work. It must honor ctx cancellation.
type Func func(ctx context.Context)

// Submitter accepts background work.
type Submitter interface {
	// Submit enqueues fn and reports whether it was accepted.
	Submit(name string, fn Func) bool
}

// Config sizes the queue.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type task struct {
	name string
	fn   Func
}

// Queue is a bounded task queue drained by a fixed number of workers.
type Queue struct {
	tasks   chan task
	workers int
	timeout time.Duration
	logger  zerolog.Logger
}

// NewQueue creates a queue. Zero config values fall back to 4 workers,
// 256 slots and a 30s task timeout.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewQueue(cfg Config, logger zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	return &Queue{
		tasks:   make(chan task, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.TaskTimeout,
		logger:  logger.With().Str("component", "tasks").Logger(),
	}
}

// Submit enqueues fn without blocking.
func (q *Queue) Submit(name string, fn Func) bool {
	select {
	case q.tasks <- task{name: name, fn: fn}:
		metrics.TaskQueueDepth.Set(float64(len(q.tasks)))
		return true
	default:
		metrics.RecordTask(name, "dropped", 0)
		q.logger.Warn().Str("task", name).Int("capacity", cap(q.tasks)).Msg("Task queue full, dropping task")
		return false
	}
}

// Len returns the number of tasks waiting.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Serve runs the workers until ctx is canceled. Tasks still buffered at
// shutdown are abandoned.
func (q *Queue) Serve(ctx context.Context) error {
	q.logger.Info().Int("workers", q.workers).Int("capacity", cap(q.tasks)).Msg("Task queue starting")

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}
	wg.Wait()

	q.logger.Info().Int("abandoned", len(q.tasks)).Msg("Task queue stopped")
	return ctx.Err()
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.tasks:
			metrics.TaskQueueDepth.Set(float64(len(q.tasks)))
			q.run(ctx, t)
		}
	}
}

func (q *Queue) run(ctx context.Context, t task) {
	taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	start := time.Now()
	result := "ok"
	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			q.logger.Error().Str("task", t.name).Str("panic", fmt.Sprint(r)).Msg("Background task panicked")
		}
		metrics.RecordTask(t.name, result, time.Since(start))
	}()

	t.fn(taskCtx)
}

// String returns the service name for suture logs.
func (q *Queue) String() string {
	return "task-queue"
}

// Inline runs every task synchronously on the caller's goroutine with a
// background context. It suits tests and tools that have no queue running.
type Inline struct{}

// Submit runs fn immediately and always reports acceptance.
func (Inline) Submit(_ string, fn Func) bool {
	fn(context.Background())
	return true
}

// Discard drops every task. Useful when background work must not run.
type Discard struct{}

// Submit drops fn.
func (Discard) Submit(string, Func) bool { return false }
