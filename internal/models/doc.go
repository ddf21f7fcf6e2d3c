// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package models defines the data structures shared by the Altivion components.

Core types:

  - Sighting: one timestamped position report for an entity, with optional
    height, horizontal speed and heading. Optional values are pointers so an
    unknown value serializes as null rather than 0.
  - TrackPoint: a (timestamp, latitude, longitude) sample.
  - Track: an entity id plus its ordered samples, as returned by the
    tracks endpoints.

Wire decoding:

The upstream source speaks a compact record format (sn, ts, lat, lon,
height_m, speed_h_mps, direction_deg). DecodeSighting, DecodeSightings and
DecodeTracks convert those records into the types above and drop any record
that fails validation instead of failing the whole payload. ParseTimestamp
accepts RFC 3339 (with or without fractional seconds) and zone-less ISO 8601,
which is read as UTC.
*/
package models
