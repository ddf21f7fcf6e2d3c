// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/altivion/internal/cache"
	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// Window is a half-open time interval [From, To) with an optional entity filter.
type Window struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	EntityID string    `json:"entity_id,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// WindowLoader fetches replay data for an explicit window.
//
// Load never fails: a transport error, a non-array payload or a cancelled
// context all yield an empty result, so replay degrades to "no data".
// Requests are paced by a token bucket so rapid scrubbing through windows
// cannot flood the upstream.
//
// With a cache configured, successful loads of windows that ended before
// the load started are kept for the cache TTL. Cached track slices are
// shared between callers and must not be modified.
type WindowLoader struct {
	source    Source
	maxPoints int
	limiter   *rate.Limiter
	cache     *cache.LRU[windowKey, []models.Track]
	now       func() time.Time
	log       zerolog.Logger
}

type windowKey struct {
	from, to int64
	entityID string
}

func keyOf(w Window) windowKey {
	return windowKey{from: w.From.UnixNano(), to: w.To.UnixNano(), entityID: w.EntityID}
}

// NewWindowLoader creates a loader using the replay max_points, load pacing
// and cache settings. A zero CacheSize disables the cache.
func NewWindowLoader(source Source, cfg config.ReplayConfig) *WindowLoader {
	l := &WindowLoader{
		source:    source,
		maxPoints: cfg.MaxPoints,
		limiter:   rate.NewLimiter(rate.Limit(cfg.LoadRate), cfg.LoadBurst),
		now:       time.Now,
		log:       logging.WithComponent("window-loader"),
	}
	if cfg.CacheSize > 0 {
		l.cache = cache.NewLRU[windowKey, []models.Track](cfg.CacheSize, cfg.CacheTTL)
	}
	return l
}

// CacheStats returns the window cache counters, and false when the cache
// is disabled.
func (l *WindowLoader) CacheStats() (cache.Stats, bool) {
	if l.cache == nil {
		return cache.Stats{}, false
	}
	return l.cache.Stats(), true
}

func (l *WindowLoader) recordCacheStats() {
	stats := l.cache.Stats()
	metrics.SetWindowCacheStats(stats.Size, stats.Evictions)
}

// Load fetches tracks for w. Samples outside [From, To) are dropped, as are
// tracks left without samples and tracks for other entities when a filter
// is set. Each returned track is sorted by timestamp.
func (l *WindowLoader) Load(ctx context.Context, w Window) []models.Track {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := l.log.With().Str("correlation_id", logging.CorrelationIDFromContext(ctx)).Logger()

	key := keyOf(w)
	if l.cache != nil {
		if tracks, ok := l.cache.Get(key); ok {
			metrics.WindowCacheResults.WithLabelValues("hit").Inc()
			log.Debug().Int("tracks", len(tracks)).Msg("Window served from cache")
			return tracks
		}
		metrics.WindowCacheResults.WithLabelValues("miss").Inc()
		l.recordCacheStats()
	}
	requested := l.now()

	if err := l.limiter.Wait(ctx); err != nil {
		log.Debug().Err(err).Msg("Window load abandoned while waiting for rate limiter")
		return []models.Track{}
	}

	start := time.Now()
	result, err := l.source.TracksWindow(ctx, WindowQuery{
		From:      w.From,
		To:        w.To,
		EntityID:  w.EntityID,
		MaxPoints: l.maxPoints,
	})
	if err != nil {
		metrics.RecordWindowLoad(time.Since(start), 0, err)
		if ctx.Err() == nil {
			log.Warn().Err(err).Time("from", w.From).Time("to", w.To).Msg("Window load failed, using empty result")
		}
		return []models.Track{}
	}

	if result.Dropped > 0 {
		metrics.WindowSamplesDropped.WithLabelValues("decode").Add(float64(result.Dropped))
	}

	tracks, outside := sanitizeWindow(result.Tracks, w)
	if outside > 0 {
		metrics.WindowSamplesDropped.WithLabelValues("out_of_window").Add(float64(outside))
	}
	metrics.RecordWindowLoad(time.Since(start), len(tracks), nil)

	if l.cache != nil && !w.To.After(requested) {
		l.cache.Add(key, tracks)
		l.recordCacheStats()
	}

	log.Debug().
		Int("tracks", len(tracks)).
		Int("dropped_decode", result.Dropped).
		Int("dropped_outside", outside).
		Msg("Window loaded")
	return tracks
}

// sanitizeWindow confines tracks to w and returns the number of samples removed.
func sanitizeWindow(in []models.Track, w Window) (out []models.Track, outside int) {
	out = make([]models.Track, 0, len(in))
	for _, t := range in {
		if w.EntityID != "" && t.EntityID != w.EntityID {
			outside += len(t.Points)
			continue
		}
		kept := make([]models.TrackPoint, 0, len(t.Points))
		for _, p := range t.Points {
			if !w.Contains(p.Timestamp) {
				outside++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		track := models.Track{EntityID: t.EntityID, Points: kept}
		track.SortPoints()
		out = append(out, track)
	}
	return out, outside
}
