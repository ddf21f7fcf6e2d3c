// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package merger

import (
	"sort"
	"time"

	"github.com/tomtom215/altivion/internal/models"
)

// View is one published state of the merger. A View and everything it
// references are never modified after publication; callers must not modify
// them either.
type View struct {
	Latest map[string]models.Sighting
	Paths  map[string][]models.TrackPoint

	// Connected mirrors the live feed connection; Degraded is true while
	// the merger polls instead.
	Connected bool
	Degraded  bool

	// Version increases with every publication.
	Version   uint64
	UpdatedAt time.Time
}

func emptyView() *View {
	return &View{
		Latest: map[string]models.Sighting{},
		Paths:  map[string][]models.TrackPoint{},
	}
}

// Sighting returns the latest sighting for id.
func (v *View) Sighting(id string) (models.Sighting, bool) {
	s, ok := v.Latest[id]
	return s, ok
}

// Path returns the path for id, or nil.
func (v *View) Path(id string) []models.TrackPoint {
	return v.Paths[id]
}

// EntityIDs returns the ids present in the latest view, sorted.
func (v *View) EntityIDs() []string {
	ids := make([]string, 0, len(v.Latest))
	for id := range v.Latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sightings returns the latest view as a slice sorted by entity id.
func (v *View) Sightings() []models.Sighting {
	out := make([]models.Sighting, 0, len(v.Latest))
	for _, id := range v.EntityIDs() {
		out = append(out, v.Latest[id])
	}
	return out
}

// PointCount returns the number of samples across all paths.
func (v *View) PointCount() int {
	n := 0
	for _, p := range v.Paths {
		n += len(p)
	}
	return n
}

// OnlineCount returns how many entities have a latest sighting no older
// than window at now. Sightings stamped in the future count as online.
func (v *View) OnlineCount(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, s := range v.Latest {
		if !s.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}
