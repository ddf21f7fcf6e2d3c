// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/altivion/internal/models"
)

func TestPoller_PollsImmediatelyAndRepeatedly(t *testing.T) {
	t.Parallel()

	src := &fakeSource{latest: &LatestResult{Sightings: []models.Sighting{sighting("D1", 0, 1, 1)}}}
	p := NewPoller(src, 20*time.Millisecond, 2)

	var results atomic.Int32
	p.SetOnResult(func(_ context.Context, s []models.Sighting) {
		if len(s) == 1 {
			results.Add(1)
		}
	})

	p.Start(context.Background())
	if !p.Running() {
		t.Fatal("Running() = false after Start")
	}
	eventually(t, func() bool { return results.Load() >= 3 }, "three poll results")
	p.Stop()

	if p.Running() {
		t.Error("Running() = true after Stop")
	}
	if src.lastMinutes != 2 {
		t.Errorf("minutes = %d, want 2", src.lastMinutes)
	}
}

func TestPoller_FailedPollSkipsCallback(t *testing.T) {
	t.Parallel()

	signal := make(chan struct{}, 1)
	src := &fakeSource{latestErr: errors.New("down"), latestSignal: signal}
	p := NewPoller(src, time.Hour, 2)

	var results atomic.Int32
	p.SetOnResult(func(context.Context, []models.Sighting) { results.Add(1) })

	p.Start(context.Background())
	<-signal
	p.Stop()

	if results.Load() != 0 {
		t.Errorf("callback ran %d times for a failed poll", results.Load())
	}
}

func TestPoller_StopCancelsBlockedCallback(t *testing.T) {
	t.Parallel()

	src := &fakeSource{latest: &LatestResult{}}
	p := NewPoller(src, time.Hour, 2)

	entered := make(chan struct{})
	p.SetOnResult(func(ctx context.Context, _ []models.Sighting) {
		close(entered)
		<-ctx.Done()
	})

	p.Start(context.Background())
	<-entered

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop() blocked on a waiting callback")
	}
}

func TestPoller_Restart(t *testing.T) {
	t.Parallel()

	src := &fakeSource{latest: &LatestResult{}}
	p := NewPoller(src, time.Hour, 2)

	var results atomic.Int32
	p.SetOnResult(func(context.Context, []models.Sighting) { results.Add(1) })

	p.Start(context.Background())
	p.Start(context.Background())
	eventually(t, func() bool { return results.Load() == 1 }, "first result")
	p.Stop()

	p.Start(context.Background())
	eventually(t, func() bool { return results.Load() == 2 }, "result after restart")
	p.Stop()
}
