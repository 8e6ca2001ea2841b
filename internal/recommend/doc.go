// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package recommend ranks nearby places for a user.

# Pipeline

Each call to Engine.Recommend is independent; the engine holds no mutable
state between requests.

 1. Validate the request. Invalid coordinates or a negative limit return a
    *validation.ValidationError.
 2. Check availability around the user with the default radius and minimum.
    When too few places exist the result is empty and carries the observed
    count. This is a normal outcome, not an error.
 3. Fetch the ids the user has visited. Failure degrades to an empty
    exclusion set.
 4. Fetch CandidateMultiplier x limit candidates within the radius,
    excluding visited ids. If the radius query fails the engine lists places
    and filters them in process.
 5. Score, sort (stable, descending) and truncate.

Any other failure yields an empty result echoing the default radius.

# Scoring

	score = 50
	      + 40 * rating/5
	      + min(20, 5*log10(reviews+1))
	      - 15 * min(1, distance/max_distance)
	      + 2  if the price level is known
	      - 20 if the place is not operational

The score is clamped to [0, 100]. A TimeContext then applies at most one bonus
and one penalty from the time-of-day table, and the score is clamped again.
*/
package recommend
