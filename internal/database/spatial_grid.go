// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

package database

import (
	"math"

	"github.com/khunjon/placemarks-sub005/internal/geo"
	"github.com/khunjon/placemarks-sub005/internal/models"
)

// kmPerDegree is the approximate length of one degree of latitude.
const kmPerDegree = 111.0

// cellKey identifies a grid cell.
type cellKey struct {
	X, Y int
}

// spatialGrid buckets places into fixed-size lat/lon cells so radius queries
// only visit cells that overlap the query's bounding box.
//
//   - insert: O(1)
//   - remove: O(cell size)
//   - query: O(k), k = places in overlapping cells
//
// The grid is not safe for concurrent use; MemoryStore guards it.
type spatialGrid struct {
	cells    map[cellKey][]*models.CandidatePlace
	cellSize float64 // degrees
	byID     map[string]cellKey
}

func newSpatialGrid(cellSizeKm float64) *spatialGrid {
	if cellSizeKm <= 0 {
		cellSizeKm = 5
	}
	return &spatialGrid{
		cells:    make(map[cellKey][]*models.CandidatePlace),
		cellSize: cellSizeKm / kmPerDegree,
		byID:     make(map[string]cellKey),
	}
}

func (g *spatialGrid) keyFor(lat, lon float64) cellKey {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return cellKey{
		X: int(math.Floor(lon / g.cellSize)),
		Y: int(math.Floor(lat / g.cellSize)),
	}
}

// insert adds p, replacing any place with the same id.
func (g *spatialGrid) insert(p *models.CandidatePlace) {
	g.remove(p.ID)
	key := g.keyFor(p.Location.Latitude, p.Location.Longitude)
	g.cells[key] = append(g.cells[key], p)
	g.byID[p.ID] = key
}

func (g *spatialGrid) remove(id string) bool {
	key, ok := g.byID[id]
	if !ok {
		return false
	}
	cell := g.cells[key]
	for i, p := range cell {
		if p.ID == id {
			cell[i] = cell[len(cell)-1]
			cell = cell[:len(cell)-1]
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, key)
	} else {
		g.cells[key] = cell
	}
	delete(g.byID, id)
	return true
}

// each calls fn with every place within radiusKm of center and its distance,
// stopping when fn returns false. Longitude spans widen with latitude, so the
// cell range comes from a bounding box rather than a fixed cell count.
func (g *spatialGrid) each(center geo.Coordinate, radiusKm float64, fn func(p *models.CandidatePlace, distanceKm float64) bool) {
	bound := geo.BoundAround(center, radiusKm*1000)
	lo := g.keyFor(bound.Min.Lat(), bound.Min.Lon())
	hi := g.keyFor(bound.Max.Lat(), bound.Max.Lon())

	xs := g.xRange(lo.X, hi.X)
	for y := lo.Y; y <= hi.Y; y++ {
		for _, x := range xs {
			for _, p := range g.cells[cellKey{X: x, Y: y}] {
				d := geo.HaversineKm(center, p.Location)
				if d > radiusKm {
					continue
				}
				if !fn(p, d) {
					return
				}
			}
		}
	}
}

// xRange lists the cell columns between lo and hi, wrapping across the
// antimeridian when the box crosses it.
func (g *spatialGrid) xRange(lo, hi int) []int {
	if lo <= hi {
		xs := make([]int, 0, hi-lo+1)
		for x := lo; x <= hi; x++ {
			xs = append(xs, x)
		}
		return xs
	}
	minX := int(math.Floor(-180 / g.cellSize))
	maxX := int(math.Floor(180 / g.cellSize))
	var xs []int
	for x := lo; x <= maxX; x++ {
		xs = append(xs, x)
	}
	for x := minX; x <= hi; x++ {
		xs = append(xs, x)
	}
	return xs
}

func (g *spatialGrid) size() int {
	return len(g.byID)
}

func (g *spatialGrid) numCells() int {
	return len(g.cells)
}
