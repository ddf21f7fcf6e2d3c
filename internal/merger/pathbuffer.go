// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package merger

import (
	"github.com/tomtom215/altivion/internal/models"
)

// PathBuffer is a fixed-capacity ring of path samples. When full, appending
// evicts the oldest sample. It is not safe for concurrent use.
type PathBuffer struct {
	buf   []models.TrackPoint
	start int
	size  int
}

// NewPathBuffer creates an empty buffer. A capacity below 1 is treated as 1.
func NewPathBuffer(capacity int) *PathBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &PathBuffer{buf: make([]models.TrackPoint, capacity)}
}

// Len returns the number of samples held.
func (b *PathBuffer) Len() int { return b.size }

// Cap returns the capacity.
func (b *PathBuffer) Cap() int { return len(b.buf) }

// Append adds p at the tail, evicting the oldest sample when full.
func (b *PathBuffer) Append(p models.TrackPoint) {
	if b.size < len(b.buf) {
		b.buf[(b.start+b.size)%len(b.buf)] = p
		b.size++
		return
	}
	b.buf[b.start] = p
	b.start = (b.start + 1) % len(b.buf)
}

// AppendAfterTail appends p only if it is strictly newer than the current
// tail, and reports whether it did.
func (b *PathBuffer) AppendAfterTail(p models.TrackPoint) bool {
	if tail, ok := b.Tail(); ok && !p.Timestamp.After(tail.Timestamp) {
		return false
	}
	b.Append(p)
	return true
}

// Tail returns the newest sample and false when empty.
func (b *PathBuffer) Tail() (models.TrackPoint, bool) {
	if b.size == 0 {
		return models.TrackPoint{}, false
	}
	return b.buf[(b.start+b.size-1)%len(b.buf)], true
}

// Points returns a copy of the samples, oldest first.
func (b *PathBuffer) Points() []models.TrackPoint {
	out := make([]models.TrackPoint, b.size)
	for i := range out {
		out[i] = b.buf[(b.start+i)%len(b.buf)]
	}
	return out
}

// mergePath builds the published path of one entity: the baseline samples,
// then every live sample newer than the tail so far, keeping at most
// capacity samples.
func mergePath(base []models.TrackPoint, live *PathBuffer, capacity int) []models.TrackPoint {
	merged := NewPathBuffer(capacity)
	for _, p := range base {
		merged.Append(p)
	}
	if live != nil {
		for _, p := range live.Points() {
			merged.AppendAfterTail(p)
		}
	}
	return merged.Points()
}
