// Placemarks - Geospatial Place Recommendations
// Copyright 2026 khunjon
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/khunjon/placemarks

/*
Package database provides the place store: the relational tables and the
"count/list places within radius" primitives the availability checker and the
recommendation engine query.

Two implementations share the Store interface and are selected by
config.DatabaseConfig.Driver:

  - DuckDBStore keeps places and visits in DuckDB. Radius queries prefilter on
    a latitude/longitude bounding box and then compare the haversine distance
    in SQL. HasMinimumWithinRadius wraps the filter in a LIMIT subquery so
    DuckDB stops scanning once the minimum is reached.
  - MemoryStore keeps places in a spatial hash grid and is used for
    development, demos and tests.

Only operational places (empty status or OPERATIONAL) are counted or listed
by the radius primitives. Results are ordered by distance, then id.

Tables:

	places(id PK, name, address, rating, rating_count, price_level,
	       categories JSON, business_status, latitude, longitude, updated_at)
	visits(user_id, place_id, visited_at, PK(user_id, place_id))
*/
package database
