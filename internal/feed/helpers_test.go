// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/altivion/internal/models"
)

// fakeSource is a scripted Source. Each method returns the configured result
// and records the arguments it was called with.
type fakeSource struct {
	mu sync.Mutex

	latest    *LatestResult
	latestErr error
	tracks    *TracksResult
	tracksErr error
	window    *TracksResult
	windowErr error

	latestCalls  int
	tracksCalls  int
	windowCalls  int
	lastMinutes  int
	lastMaxPts   int
	lastQuery    WindowQuery
	latestSignal chan struct{}
}

func (f *fakeSource) Latest(ctx context.Context, minutes int) (*LatestResult, error) {
	f.mu.Lock()
	f.latestCalls++
	f.lastMinutes = minutes
	res, err, signal := f.latest, f.latestErr, f.latestSignal
	f.mu.Unlock()

	if signal != nil {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, err
}

func (f *fakeSource) Tracks(ctx context.Context, minutes, maxPoints int) (*TracksResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracksCalls++
	f.lastMinutes = minutes
	f.lastMaxPts = maxPoints
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.tracks, f.tracksErr
}

func (f *fakeSource) TracksWindow(ctx context.Context, q WindowQuery) (*TracksResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowCalls++
	f.lastQuery = q
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.window, f.windowErr
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) calls() (latest, tracks, window int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latestCalls, f.tracksCalls, f.windowCalls
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func sighting(id string, sec int, lat, lon float64) models.Sighting {
	return models.Sighting{EntityID: id, Timestamp: at(sec), Latitude: lat, Longitude: lon}
}

func track(id string, secs ...int) models.Track {
	tr := models.Track{EntityID: id}
	for _, s := range secs {
		tr.Points = append(tr.Points, models.TrackPoint{Timestamp: at(s), Latitude: float64(s), Longitude: float64(-s)})
	}
	return tr
}

// eventually polls cond until it holds or the deadline passes.
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
