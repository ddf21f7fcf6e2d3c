// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package merger

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/altivion/internal/models"
)

func TestPathBuffer_AppendEvictsOldest(t *testing.T) {
	t.Parallel()

	b := NewPathBuffer(3)
	for _, sec := range []int{1, 2, 3, 4, 5} {
		b.Append(pt(sec))
	}

	if b.Len() != 3 || b.Cap() != 3 {
		t.Fatalf("Len/Cap = %d/%d, want 3/3", b.Len(), b.Cap())
	}
	if diff := cmp.Diff(pts(3, 4, 5), b.Points()); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}
	tail, ok := b.Tail()
	if !ok || !tail.Timestamp.Equal(at(5)) {
		t.Errorf("Tail() = %v, %v", tail, ok)
	}
}

func TestPathBuffer_AppendAfterTail(t *testing.T) {
	t.Parallel()

	b := NewPathBuffer(10)
	steps := []struct {
		sec  int
		want bool
	}{
		{5, true},
		{5, false},
		{4, false},
		{6, true},
	}
	for _, s := range steps {
		if got := b.AppendAfterTail(pt(s.sec)); got != s.want {
			t.Errorf("AppendAfterTail(%d) = %v, want %v", s.sec, got, s.want)
		}
	}
	if diff := cmp.Diff(pts(5, 6), b.Points()); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}
}

func TestPathBuffer_Empty(t *testing.T) {
	t.Parallel()

	b := NewPathBuffer(0)
	if b.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1", b.Cap())
	}
	if _, ok := b.Tail(); ok {
		t.Error("Tail() ok on empty buffer")
	}
	if got := b.Points(); len(got) != 0 {
		t.Errorf("Points() = %v, want empty", got)
	}
}

func TestMergePath(t *testing.T) {
	t.Parallel()

	live := func(secs ...int) *PathBuffer {
		b := NewPathBuffer(100)
		for _, s := range secs {
			b.Append(pt(s))
		}
		return b
	}

	tests := []struct {
		name     string
		base     []models.TrackPoint
		live     *PathBuffer
		capacity int
		want     []models.TrackPoint
	}{
		{name: "baseline only", base: pts(0, 10), capacity: 10, want: pts(0, 10)},
		{name: "live only", live: live(3, 4), capacity: 10, want: pts(3, 4)},
		{name: "live after tail appended", base: pts(0, 10), live: live(20, 30), capacity: 10, want: pts(0, 10, 20, 30)},
		{name: "live at or before tail skipped", base: pts(0, 10), live: live(5, 10, 15), capacity: 10, want: pts(0, 10, 15)},
		{name: "truncated from front", base: pts(0, 1, 2), live: live(3, 4), capacity: 3, want: pts(2, 3, 4)},
		{name: "baseline longer than capacity", base: pts(0, 1, 2, 3, 4), capacity: 2, want: pts(3, 4)},
		{name: "empty", capacity: 5, want: []models.TrackPoint{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mergePath(tt.base, tt.live, tt.capacity)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mergePath() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
