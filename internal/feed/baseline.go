// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// Snapshot is the baseline as last fetched. Snapshots are immutable once
// published; each fetch cycle publishes a new one.
//
// The two halves are independent: a failed latest fetch keeps the previous
// Latest slice and sets LatestErr, and the next successful latest fetch
// clears it. The same holds for tracks.
type Snapshot struct {
	Latest        []models.Sighting
	LatestErr     error
	LatestUpdated time.Time

	Tracks        []models.Track
	TracksErr     error
	TracksUpdated time.Time

	// Cycle counts completed fetch cycles.
	Cycle uint64
}

// BaselineFetcher polls /latest and /tracks on a fixed interval.
type BaselineFetcher struct {
	source Source
	cfg    config.BaselineConfig
	log    zerolog.Logger
	now    func() time.Time

	snapshot  atomic.Pointer[Snapshot]
	publishMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	onUpdate func(*Snapshot)
}

// NewBaselineFetcher creates a fetcher. Nothing is fetched until Start.
func NewBaselineFetcher(source Source, cfg config.BaselineConfig) *BaselineFetcher {
	f := &BaselineFetcher{
		source: source,
		cfg:    cfg,
		log:    logging.WithComponent("baseline"),
		now:    time.Now,
	}
	f.snapshot.Store(&Snapshot{})
	return f
}

// SetOnUpdate registers a callback invoked after every cycle in which at
// least one half succeeded. The callback runs on the fetch goroutine.
func (f *BaselineFetcher) SetOnUpdate(callback func(*Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = callback
}

// Snapshot returns the current snapshot. It never blocks on a fetch and
// never returns nil.
func (f *BaselineFetcher) Snapshot() *Snapshot {
	return f.snapshot.Load()
}

// Start begins polling. The first cycle runs immediately in the background.
func (f *BaselineFetcher) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.stopChan = make(chan struct{})
	f.mu.Unlock()

	f.log.Info().Dur("interval", f.cfg.Interval).Msg("Starting baseline fetcher")

	f.wg.Add(1)
	go f.pollLoop(ctx)
	return nil
}

// Stop stops polling and waits for an in-flight cycle to finish.
func (f *BaselineFetcher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.stopChan)
	f.mu.Unlock()

	f.wg.Wait()
	f.log.Info().Msg("Baseline fetcher stopped")
}

func (f *BaselineFetcher) pollLoop(ctx context.Context) {
	defer f.wg.Done()

	// stopChan is replaced on restart; keep the one this loop was started with.
	f.mu.RLock()
	stop := f.stopChan
	f.mu.RUnlock()

	f.Fetch(ctx)

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			f.Fetch(ctx)
		}
	}
}

// Fetch runs one cycle: both halves concurrently, then one snapshot publish.
// It returns the published snapshot.
func (f *BaselineFetcher) Fetch(ctx context.Context) *Snapshot {
	ctx = logging.ContextWithNewCorrelationID(ctx)

	var (
		latest    *LatestResult
		latestErr error
		tracks    *TracksResult
		tracksErr error
	)

	// A plain Group: one half failing must not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		latest, latestErr = f.source.Latest(ctx, f.cfg.LatestMinutes)
		dropped := 0
		if latest != nil {
			dropped = latest.Dropped
		}
		metrics.RecordBaselineFetch("latest", time.Since(start), dropped, latestErr)
		return latestErr
	})
	g.Go(func() error {
		start := time.Now()
		tracks, tracksErr = f.source.Tracks(ctx, f.cfg.TracksMinutes, f.cfg.MaxPoints)
		dropped := 0
		if tracks != nil {
			dropped = tracks.Dropped
		}
		metrics.RecordBaselineFetch("tracks", time.Since(start), dropped, tracksErr)
		return tracksErr
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logging.Ctx(ctx).Warn().
			Str("component", "baseline").
			AnErr("latest_error", latestErr).
			AnErr("tracks_error", tracksErr).
			Msg("Baseline cycle incomplete, keeping previous data")
	}

	f.publishMu.Lock()
	prev := f.snapshot.Load()
	next := *prev
	next.Cycle = prev.Cycle + 1
	now := f.now()

	if latestErr == nil {
		next.Latest = latest.Sightings
		next.LatestErr = nil
		next.LatestUpdated = now
	} else {
		next.LatestErr = latestErr
	}
	if tracksErr == nil {
		next.Tracks = tracks.Tracks
		next.TracksErr = nil
		next.TracksUpdated = now
	} else {
		next.TracksErr = tracksErr
	}
	f.snapshot.Store(&next)
	f.publishMu.Unlock()

	if latestErr == nil || tracksErr == nil {
		f.log.Debug().
			Int("latest", len(next.Latest)).
			Int("tracks", len(next.Tracks)).
			Uint64("cycle", next.Cycle).
			Msg("Baseline refreshed")

		f.mu.RLock()
		callback := f.onUpdate
		f.mu.RUnlock()
		if callback != nil {
			callback(&next)
		}
	}
	return &next
}
