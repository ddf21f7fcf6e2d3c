// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package merger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

// pt returns a sample whose coordinates encode its second offset.
func pt(sec int) models.TrackPoint {
	return models.TrackPoint{Timestamp: at(sec), Latitude: float64(sec), Longitude: float64(sec) / 2}
}

func pts(secs ...int) []models.TrackPoint {
	out := make([]models.TrackPoint, 0, len(secs))
	for _, s := range secs {
		out = append(out, pt(s))
	}
	return out
}

func sighting(id string, sec int) models.Sighting {
	p := pt(sec)
	return models.Sighting{EntityID: id, Timestamp: p.Timestamp, Latitude: p.Latitude, Longitude: p.Longitude}
}

// pollSource serves scripted /latest results to the degraded poller.
type pollSource struct {
	mu     sync.Mutex
	latest []models.Sighting
	calls  int
}

func (s *pollSource) Latest(ctx context.Context, _ int) (*feed.LatestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &feed.LatestResult{Sightings: append([]models.Sighting(nil), s.latest...)}, nil
}

func (s *pollSource) Tracks(context.Context, int, int) (*feed.TracksResult, error) {
	return &feed.TracksResult{}, nil
}

func (s *pollSource) TracksWindow(context.Context, feed.WindowQuery) (*feed.TracksResult, error) {
	return &feed.TracksResult{}, nil
}

func (s *pollSource) set(latest ...models.Sighting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = latest
}

func (s *pollSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() config.MergeConfig {
	return config.MergeConfig{
		PathCapacity:     4000,
		DegradedInterval: time.Hour,
		DegradedMinutes:  2,
		OnlineWindow:     15 * time.Second,
	}
}

// startMerger runs m until the test ends.
func startMerger(t *testing.T, m *Merger) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = m.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// newConnected returns a running merger whose live feed is connected, so
// degraded polls no longer touch the overlay.
func newConnected(t *testing.T, cfg config.MergeConfig) *Merger {
	t.Helper()
	m := New(cfg, &pollSource{})
	startMerger(t, m)
	m.OnConnectionChange(true)
	syncMerger(t, m)
	return m
}

func syncMerger(t *testing.T, m *Merger) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}
