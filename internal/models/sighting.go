// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package models

import (
	"math"
	"sort"
	"time"
)

// Sighting is one position report for an entity.
//
// HeightM, HorizontalSpeedMPS and HeadingDeg are nil when the source did not
// report them; nil and 0 are different values.
type Sighting struct {
	EntityID           string    `json:"entity_id"`
	Timestamp          time.Time `json:"timestamp"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	HeightM            *float64  `json:"height_m"`
	HorizontalSpeedMPS *float64  `json:"horizontal_speed_mps"`
	HeadingDeg         *float64  `json:"heading_deg"`
}

// Valid reports whether s may be stored: a non-empty entity id, a timestamp
// and finite coordinates.
func (s *Sighting) Valid() bool {
	return s.EntityID != "" &&
		!s.Timestamp.IsZero() &&
		finite(s.Latitude) &&
		finite(s.Longitude)
}

// Point returns the path sample for s.
func (s *Sighting) Point() TrackPoint {
	return TrackPoint{Timestamp: s.Timestamp, Latitude: s.Latitude, Longitude: s.Longitude}
}

// TrackPoint is one path sample.
type TrackPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Valid reports whether p has a timestamp and finite coordinates.
func (p TrackPoint) Valid() bool {
	return !p.Timestamp.IsZero() && finite(p.Latitude) && finite(p.Longitude)
}

// Track is the ordered path of one entity.
type Track struct {
	EntityID string       `json:"entity_id"`
	Points   []TrackPoint `json:"points"`
}

// SortPoints orders the samples by timestamp, keeping source order for
// coincident timestamps.
func (t *Track) SortPoints() {
	sort.SliceStable(t.Points, func(i, j int) bool {
		return t.Points[i].Timestamp.Before(t.Points[j].Timestamp)
	})
}

// Last returns the newest sample and false when the track is empty.
func (t *Track) Last() (TrackPoint, bool) {
	if len(t.Points) == 0 {
		return TrackPoint{}, false
	}
	return t.Points[len(t.Points)-1], true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float returns a pointer to v, for building optional sighting fields.
func Float(v float64) *float64 {
	return &v
}
