// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

// Package geo provides coordinate handling and great-circle distance helpers.
//
// All distances use a spherical Earth with a mean radius of 6371 km. Coordinates
// must be validated with Coordinate.Validate before use; the distance functions
// do not check their inputs and propagate NaN.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// QuantizePrecision is the number of decimal places kept when quantizing a
// coordinate for cache keys. Three decimals is roughly 110 m at the equator.
const QuantizePrecision = 3

// ErrOutOfRange is returned when a coordinate component is outside its valid range.
var ErrOutOfRange = errors.New("coordinate out of range")

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// New returns a coordinate for the given latitude and longitude.
func New(lat, lon float64) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon}
}

// Validate reports whether the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrOutOfRange, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrOutOfRange, c.Longitude)
	}
	return nil
}

// Point converts the coordinate to an orb point (longitude first).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Quantized returns the coordinate rounded to QuantizePrecision decimals.
func (c Coordinate) Quantized() Coordinate {
	return Coordinate{
		Latitude:  Round(c.Latitude, QuantizePrecision),
		Longitude: Round(c.Longitude, QuantizePrecision),
	}
}

// Key renders the quantized coordinate as a stable string, e.g. "13.756,100.502".
func (c Coordinate) Key() string {
	q := c.Quantized()
	return fmt.Sprintf("%.*f,%.*f", QuantizePrecision, q.Latitude, QuantizePrecision, q.Longitude)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b Coordinate) float64 {
	dLat := ToRadians(b.Latitude - a.Latitude)
	dLon := ToRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(ToRadians(a.Latitude))*math.Cos(ToRadians(b.Latitude))*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// HaversineMeters returns the great-circle distance between a and b in metres.
func HaversineMeters(a, b Coordinate) float64 {
	return HaversineKm(a, b) * 1000
}

// Round rounds v to the given number of decimal places (half away from zero).
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// boundPadding widens prefilter boxes; orb measures with the WGS84 equatorial
// radius, which is slightly larger than EarthRadiusKm.
const boundPadding = 1.01

// BoundAround returns the bounding box that contains every point within
// radiusMeters of center. It is used as a cheap prefilter before an exact
// haversine comparison.
func BoundAround(center Coordinate, radiusMeters float64) orb.Bound {
	return orbgeo.NewBoundAroundPoint(center.Point(), radiusMeters*boundPadding)
}

// BoundContains reports whether c falls inside b. Bounds from BoundAround
// that cross the antimeridian have Min east of Max.
func BoundContains(b orb.Bound, c Coordinate) bool {
	if c.Latitude < b.Min.Lat() || c.Latitude > b.Max.Lat() {
		return false
	}
	if b.Min.Lon() <= b.Max.Lon() {
		return c.Longitude >= b.Min.Lon() && c.Longitude <= b.Max.Lon()
	}
	return c.Longitude >= b.Min.Lon() || c.Longitude <= b.Max.Lon()
}
