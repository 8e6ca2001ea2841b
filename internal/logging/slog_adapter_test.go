// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_WritesThroughZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	slogger.Warn("service restarted",
		"service", "task-queue",
		"attempt", 3,
		"backoff", 2*time.Second,
		"err", errors.New("panic in worker"),
	)

	output := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"message":"service restarted"`,
		`"service":"task-queue"`,
		`"attempt":3`,
		`"err":"panic in worker"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in %s", want, output)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	slogger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf))).
		With("supervisor", "placemarks").
		WithGroup("event")

	slogger.Info("terminated", "name", "http")

	output := buf.String()
	if !strings.Contains(output, `"event.supervisor":"placemarks"`) && !strings.Contains(output, `"supervisor":"placemarks"`) {
		t.Errorf("expected supervisor attr in %s", output)
	}
	if !strings.Contains(output, `"event.name":"http"`) {
		t.Errorf("expected grouped key in %s", output)
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewSlogHandlerWithLogger(NewTestLogger(&bytes.Buffer{}).Level(zerolog.WarnLevel))
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled for a warn logger")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Error("error should be enabled for a warn logger")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
