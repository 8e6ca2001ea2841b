// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package recommend

import (
	"fmt"
	"time"

	"github.com/khunjon/placemarks-sub005/internal/models"
)

// TimeOfDay is a part of the day used to bias scoring.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // 06:00-10:59
	Lunch     TimeOfDay = "lunch"     // 11:00-14:59
	Afternoon TimeOfDay = "afternoon" // 15:00-16:59
	Dinner    TimeOfDay = "dinner"    // 17:00-20:59
	Evening   TimeOfDay = "evening"   // 21:00-05:59
)

// TimeOfDayForHour maps an hour (0-23) to its part of the day.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 6 && hour < 11:
		return Morning
	case hour >= 11 && hour < 15:
		return Lunch
	case hour >= 15 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Dinner
	default:
		return Evening
	}
}

// TimeContext classifies an instant for scoring.
type TimeContext struct {
	TimeOfDay TimeOfDay `json:"time_of_day"`
	Hour      int       `json:"hour"`
	IsWeekend bool      `json:"is_weekend"`
	Instant   time.Time `json:"instant"`
}

// NewTimeContext derives the context of t in t's location.
func NewTimeContext(t time.Time) TimeContext {
	wd := t.Weekday()
	return TimeContext{
		TimeOfDay: TimeOfDayForHour(t.Hour()),
		Hour:      t.Hour(),
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		Instant:   t,
	}
}

// ParseTimeContext builds a context from an optional RFC3339 timestamp and
// an optional IANA zone name. An empty timestamp means now; an empty zone
// keeps the timestamp's own offset (UTC for now).
func ParseTimeContext(timestamp, zone string, now func() time.Time) (TimeContext, error) {
	t := now().UTC()
	if timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return TimeContext{}, fmt.Errorf("parse time %q: %w", timestamp, err)
		}
		t = parsed
	}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return TimeContext{}, fmt.Errorf("load time zone %q: %w", zone, err)
		}
		t = t.In(loc)
	}
	return NewTimeContext(t), nil
}

// TimeAdjustment is the bonus and penalty applied during one part of the day.
type TimeAdjustment struct {
	Prefer  []string
	Bonus   float64
	Avoid   []string
	Penalty float64
}

// TimeAdjustments is the time-of-day table used by Score.
var TimeAdjustments = map[TimeOfDay]TimeAdjustment{
	Morning: {
		Prefer:  []string{models.CategoryCafe, models.CategoryBakery},
		Bonus:   10,
		Avoid:   []string{models.CategoryBar, models.CategoryNightClub},
		Penalty: 15,
	},
	Lunch: {
		Prefer:  []string{models.CategoryRestaurant, models.CategoryMealTakeaway, models.CategoryCafe},
		Bonus:   8,
		Avoid:   []string{models.CategoryNightClub},
		Penalty: 10,
	},
	Afternoon: {
		Prefer:  []string{models.CategoryCafe, models.CategoryBakery, models.CategoryPark, models.CategoryMuseum, models.CategoryShoppingMall, models.CategoryTouristAttraction},
		Bonus:   5,
		Avoid:   []string{models.CategoryNightClub},
		Penalty: 10,
	},
	Dinner: {
		Prefer: []string{models.CategoryRestaurant},
		Bonus:  10,
	},
	Evening: {
		Prefer:  []string{models.CategoryBar, models.CategoryNightClub, models.CategoryRestaurant},
		Bonus:   8,
		Avoid:   []string{models.CategoryMuseum, models.CategoryPark},
		Penalty: 10,
	},
}
