// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package replay

import (
	"sort"
	"time"

	"github.com/tomtom215/altivion/internal/models"
)

// Timeline is a strictly increasing list of frame timestamps.
type Timeline []time.Time

// BuildTimeline returns the sorted distinct sample timestamps of tracks.
func BuildTimeline(tracks []models.Track) Timeline {
	n := 0
	for _, t := range tracks {
		n += len(t.Points)
	}
	all := make([]time.Time, 0, n)
	for _, t := range tracks {
		for _, p := range t.Points {
			all = append(all, p.Timestamp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })

	tl := make(Timeline, 0, len(all))
	for _, ts := range all {
		if len(tl) > 0 && tl[len(tl)-1].Equal(ts) {
			continue
		}
		tl = append(tl, ts)
	}
	return tl
}

// EntityFrame is one entity as of a frame: its path up to the cutoff and
// the last sample of that path.
type EntityFrame struct {
	EntityID string              `json:"entity_id"`
	Path     []models.TrackPoint `json:"path"`
	Position models.TrackPoint   `json:"position"`
}

// Frame is the reconstruction at one timeline index. Entities are sorted
// by id.
type Frame struct {
	Index     int           `json:"index"`
	Timestamp time.Time     `json:"timestamp"`
	Entities  []EntityFrame `json:"entities"`
}

// Reconstruct builds frame i of tl from tracks, which must each be sorted
// by timestamp. Paths share backing arrays with tracks and are capped so
// appending to them cannot write into tracks.
func Reconstruct(tracks []models.Track, tl Timeline, i int) (Frame, bool) {
	if i < 0 || i >= len(tl) {
		return Frame{}, false
	}
	cutoff := tl[i]
	frame := Frame{Index: i, Timestamp: cutoff, Entities: make([]EntityFrame, 0, len(tracks))}

	for _, t := range tracks {
		pts := t.Points
		n := sort.Search(len(pts), func(j int) bool { return pts[j].Timestamp.After(cutoff) })
		if n == 0 {
			continue
		}
		frame.Entities = append(frame.Entities, EntityFrame{
			EntityID: t.EntityID,
			Path:     pts[:n:n],
			Position: pts[n-1],
		})
	}
	sort.Slice(frame.Entities, func(a, b int) bool {
		return frame.Entities[a].EntityID < frame.Entities[b].EntityID
	})
	return frame, true
}

// normalizeTracks merges tracks that share an entity id, sorts samples and
// drops empty tracks. The result is sorted by entity id.
func normalizeTracks(in []models.Track) []models.Track {
	byID := make(map[string][]models.TrackPoint, len(in))
	for _, t := range in {
		byID[t.EntityID] = append(byID[t.EntityID], t.Points...)
	}

	ids := make([]string, 0, len(byID))
	for id, pts := range byID {
		if len(pts) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]models.Track, 0, len(ids))
	for _, id := range ids {
		t := models.Track{EntityID: id, Points: byID[id]}
		t.SortPoints()
		out = append(out, t)
	}
	return out
}
