// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package recommend

import (
	"testing"
	"time"
)

func TestTimeOfDayForHour(t *testing.T) {
	want := map[int]TimeOfDay{
		0: Evening, 5: Evening,
		6: Morning, 10: Morning,
		11: Lunch, 14: Lunch,
		15: Afternoon, 16: Afternoon,
		17: Dinner, 20: Dinner,
		21: Evening, 23: Evening,
	}
	for hour, tod := range want {
		if got := TimeOfDayForHour(hour); got != tod {
			t.Errorf("TimeOfDayForHour(%d) = %s, want %s", hour, got, tod)
		}
	}
}

func TestNewTimeContext(t *testing.T) {
	tests := []struct {
		name        string
		at          time.Time
		wantTOD     TimeOfDay
		wantHour    int
		wantWeekend bool
	}{
		{"saturday morning", time.Date(2026, 3, 14, 10, 59, 0, 0, time.UTC), Morning, 10, true},
		{"sunday night", time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC), Evening, 23, true},
		{"monday lunch", time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC), Lunch, 12, false},
		{"friday dinner", time.Date(2026, 3, 20, 17, 0, 0, 0, time.UTC), Dinner, 17, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := NewTimeContext(tt.at)
			if tc.TimeOfDay != tt.wantTOD || tc.Hour != tt.wantHour || tc.IsWeekend != tt.wantWeekend {
				t.Errorf("NewTimeContext() = %+v", tc)
			}
			if !tc.Instant.Equal(tt.at) {
				t.Errorf("Instant = %v, want %v", tc.Instant, tt.at)
			}
		})
	}
}

func TestParseTimeContext(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 3, 16, 2, 0, 0, 0, time.UTC) }

	tc, err := ParseTimeContext("", "", now)
	if err != nil || tc.Hour != 2 || tc.TimeOfDay != Evening {
		t.Errorf("ParseTimeContext(now) = %+v, %v", tc, err)
	}

	// 02:00 UTC is 09:00 in Bangkok.
	tc, err = ParseTimeContext("", "Asia/Bangkok", now)
	if err != nil {
		t.Skipf("time zone database unavailable: %v", err)
	}
	if tc.Hour != 9 || tc.TimeOfDay != Morning {
		t.Errorf("ParseTimeContext(tz) = %+v, want 09:00 morning", tc)
	}

	tc, err = ParseTimeContext("2026-03-14T18:30:00+07:00", "", now)
	if err != nil || tc.TimeOfDay != Dinner || !tc.IsWeekend {
		t.Errorf("ParseTimeContext(timestamp) = %+v, %v", tc, err)
	}

	if _, err := ParseTimeContext("yesterday", "", now); err == nil {
		t.Error("ParseTimeContext() accepted a malformed timestamp")
	}
	if _, err := ParseTimeContext("", "Mars/Olympus_Mons", now); err == nil {
		t.Error("ParseTimeContext() accepted an unknown zone")
	}
}
