// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package recommend

import (
	"math"

	"github.com/khunjon/placemarks-sub005/internal/models"
)

// Scoring weights.
const (
	BaseScore          = 50.0
	MaxRatingBonus     = 40.0
	MaxReviewBonus     = 20.0
	ReviewLogScale     = 5.0
	MaxDistancePenalty = 15.0
	KnownPriceBonus    = 2.0
	NotOperationalCost = 20.0

	MinScore = 0.0
	MaxScore = 100.0
)

// Score rates p for a user distanceKm away. maxDistanceKm is the distance
// that incurs the full distance penalty. tc may be nil.
func Score(p *models.CandidatePlace, distanceKm, maxDistanceKm float64, tc *TimeContext) float64 {
	score := BaseScore

	if p.Rating != nil {
		rating := clamp(*p.Rating, 0, models.MaxRating)
		score += MaxRatingBonus * rating / models.MaxRating
	}

	reviews := math.Max(float64(p.RatingCount), 0)
	score += math.Min(MaxReviewBonus, math.Log10(reviews+1)*ReviewLogScale)

	if maxDistanceKm > 0 && distanceKm > 0 {
		score -= MaxDistancePenalty * math.Min(1, distanceKm/maxDistanceKm)
	}

	if p.PriceLevel != nil {
		score += KnownPriceBonus
	}

	if !p.IsOperational() {
		score -= NotOperationalCost
	}

	score = clamp(score, MinScore, MaxScore)

	if tc != nil {
		score = clamp(score+TimeAdjustmentFor(p, tc.TimeOfDay), MinScore, MaxScore)
	}
	return score
}

// TimeAdjustmentFor returns the net time-of-day adjustment for p. Any
// preferred category earns the bonus once and any avoided category costs the
// penalty once.
func TimeAdjustmentFor(p *models.CandidatePlace, tod TimeOfDay) float64 {
	adj, ok := TimeAdjustments[tod]
	if !ok {
		return 0
	}
	delta := 0.0
	if p.HasAnyCategory(adj.Prefer) {
		delta += adj.Bonus
	}
	if p.HasAnyCategory(adj.Avoid) {
		delta -= adj.Penalty
	}
	return delta
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
