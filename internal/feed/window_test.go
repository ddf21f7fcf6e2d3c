// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/altivion/internal/cache"
	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/models"
)

func testReplayConfig() config.ReplayConfig {
	return config.ReplayConfig{MaxPoints: 5000, LoadRate: 1000, LoadBurst: 10}
}

func TestWindow_Contains(t *testing.T) {
	t.Parallel()

	w := Window{From: at(0), To: at(10)}
	tests := []struct {
		sec  int
		want bool
	}{
		{-1, false},
		{0, true},
		{5, true},
		{10, false},
	}
	for _, tt := range tests {
		if got := w.Contains(at(tt.sec)); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.sec, got, tt.want)
		}
	}
}

func TestWindowLoader_Load(t *testing.T) {
	t.Parallel()

	src := &fakeSource{window: &TracksResult{
		Tracks: []models.Track{
			track("D1", -5, 0, 5, 10),
			track("D2", 20, 30),
			track("D3", 3),
			{EntityID: "D4"},
		},
		Dropped: 2,
	}}
	loader := NewWindowLoader(src, testReplayConfig())

	got := loader.Load(context.Background(), Window{From: at(0), To: at(10)})

	want := []models.Track{track("D1", 0, 5), track("D3", 3)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if src.lastQuery.MaxPoints != 5000 {
		t.Errorf("MaxPoints = %d, want 5000", src.lastQuery.MaxPoints)
	}
	if !src.lastQuery.From.Equal(at(0)) || !src.lastQuery.To.Equal(at(10)) {
		t.Errorf("query window = %v..%v", src.lastQuery.From, src.lastQuery.To)
	}
}

func TestWindowLoader_EntityFilter(t *testing.T) {
	t.Parallel()

	src := &fakeSource{window: &TracksResult{Tracks: []models.Track{track("D1", 1), track("D2", 2)}}}
	loader := NewWindowLoader(src, testReplayConfig())

	got := loader.Load(context.Background(), Window{From: at(0), To: at(10), EntityID: "D2"})
	if len(got) != 1 || got[0].EntityID != "D2" {
		t.Errorf("Load() = %+v, want only D2", got)
	}
	if src.lastQuery.EntityID != "D2" {
		t.Errorf("EntityID = %q, want D2", src.lastQuery.EntityID)
	}
}

func TestWindowLoader_FailureYieldsEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  *fakeSource
	}{
		{name: "transport error", src: &fakeSource{windowErr: errors.New("connection refused")}},
		{name: "not an array", src: &fakeSource{windowErr: models.ErrNotArray}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewWindowLoader(tt.src, testReplayConfig()).Load(context.Background(), Window{From: at(0), To: at(10)})
			if got == nil || len(got) != 0 {
				t.Errorf("Load() = %#v, want empty non-nil slice", got)
			}
		})
	}
}

func TestWindowLoader_CancelledContext(t *testing.T) {
	t.Parallel()

	src := &fakeSource{window: &TracksResult{Tracks: []models.Track{track("D1", 1)}}}
	loader := NewWindowLoader(src, config.ReplayConfig{MaxPoints: 10, LoadRate: 0.001, LoadBurst: 1})

	// Drain the only token so the next Load has to wait.
	loader.Load(context.Background(), Window{From: at(0), To: at(10)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := loader.Load(ctx, Window{From: at(0), To: at(10)}); len(got) != 0 {
		t.Errorf("Load() = %+v, want empty for cancelled context", got)
	}
	if _, _, window := src.calls(); window != 1 {
		t.Errorf("upstream calls = %d, want 1", window)
	}
}

func TestWindowLoader_Cache(t *testing.T) {
	t.Parallel()

	cachedConfig := func() config.ReplayConfig {
		cfg := testReplayConfig()
		cfg.CacheSize = 4
		cfg.CacheTTL = time.Minute
		return cfg
	}

	t.Run("historical window is served from cache", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{window: &TracksResult{Tracks: []models.Track{track("D1", 1, 2)}}}
		loader := NewWindowLoader(src, cachedConfig())
		loader.now = func() time.Time { return at(60) }

		w := Window{From: at(0), To: at(10)}
		first := loader.Load(context.Background(), w)
		second := loader.Load(context.Background(), w)

		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("cached load differs (-first +second):\n%s", diff)
		}
		if _, _, window := src.calls(); window != 1 {
			t.Errorf("upstream calls = %d, want 1", window)
		}

		loader.Load(context.Background(), Window{From: at(0), To: at(10), EntityID: "D1"})
		if _, _, window := src.calls(); window != 2 {
			t.Errorf("filtered window should miss the cache, upstream calls = %d", window)
		}

		stats, ok := loader.CacheStats()
		if !ok {
			t.Fatal("CacheStats() reported no cache")
		}
		want := cache.Stats{Hits: 1, Misses: 2, Size: 2}
		if diff := cmp.Diff(want, stats); diff != "" {
			t.Errorf("cache stats mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("window reaching now is not cached", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{window: &TracksResult{Tracks: []models.Track{track("D1", 1)}}}
		loader := NewWindowLoader(src, cachedConfig())
		loader.now = func() time.Time { return at(5) }

		w := Window{From: at(0), To: at(10)}
		loader.Load(context.Background(), w)
		loader.Load(context.Background(), w)

		if _, _, window := src.calls(); window != 2 {
			t.Errorf("upstream calls = %d, want 2", window)
		}
	})

	t.Run("disabled cache", func(t *testing.T) {
		t.Parallel()

		loader := NewWindowLoader(&fakeSource{}, testReplayConfig())
		if _, ok := loader.CacheStats(); ok {
			t.Error("CacheStats() reported a cache with CacheSize 0")
		}
	})

	t.Run("failed load is not cached", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{windowErr: errors.New("unavailable")}
		loader := NewWindowLoader(src, cachedConfig())
		loader.now = func() time.Time { return at(60) }

		w := Window{From: at(0), To: at(10)}
		loader.Load(context.Background(), w)
		loader.Load(context.Background(), w)

		if _, _, window := src.calls(); window != 2 {
			t.Errorf("upstream calls = %d, want 2", window)
		}
	})
}
