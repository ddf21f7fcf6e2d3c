// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Live feed

	LiveMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "altivion_live_messages_total",
			Help: "Total number of push feed messages decoded into sightings",
		},
	)

	LiveDecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "altivion_live_decode_failures_total",
			Help: "Total number of push feed messages dropped as malformed",
		},
	)

	LiveConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_live_connected",
			Help: "Push feed connection state (1=connected, 0=disconnected)",
		},
	)

	LiveReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "altivion_live_reconnect_attempts_total",
			Help: "Total number of push feed reconnect attempts",
		},
	)

	// Baseline

	BaselineFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_baseline_fetch_total",
			Help: "Total number of baseline fetches",
		},
		[]string{"kind", "result"}, // kind: latest, tracks; result: success, error
	)

	BaselineFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "altivion_baseline_fetch_duration_seconds",
			Help:    "Baseline fetch duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	BaselineRecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_baseline_records_dropped_total",
			Help: "Total number of baseline records or samples dropped during decoding",
		},
		[]string{"kind"},
	)

	// Merger

	MergerEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_merger_entities",
			Help: "Number of entities in the latest view",
		},
	)

	MergerPathPoints = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_merger_path_points",
			Help: "Total number of samples held across all merged paths",
		},
	)

	MergerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_merger_events_total",
			Help: "Total number of events processed by the merger",
		},
		[]string{"event"}, // baseline, sighting, connection, degraded_poll
	)

	MergerLiveSamplesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_merger_live_samples_dropped_total",
			Help: "Total number of live samples not appended to a path",
		},
		[]string{"reason"}, // stale, invalid
	)

	MergerDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_merger_degraded",
			Help: "Degraded polling state (1=polling because the push feed is down)",
		},
	)

	MergerDegradedPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_merger_degraded_polls_total",
			Help: "Total number of degraded-mode polls",
		},
		[]string{"result"}, // success, error, ignored
	)

	// Window loader

	WindowLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_window_loads_total",
			Help: "Total number of replay window loads",
		},
		[]string{"result"}, // success, empty, error
	)

	WindowLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "altivion_window_load_duration_seconds",
			Help:    "Replay window load duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	WindowCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_window_cache_results_total",
			Help: "Replay window cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	WindowCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_window_cache_entries",
			Help: "Replay windows held in the cache, expired ones included",
		},
	)

	WindowCacheEvictions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_window_cache_evictions",
			Help: "Replay windows evicted from the cache since start",
		},
	)

	WindowSamplesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_window_samples_dropped_total",
			Help: "Total number of window samples dropped during sanitizing",
		},
		[]string{"reason"}, // decode, out_of_window
	)

	// Replay

	ReplayFrames = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_replay_frames",
			Help: "Number of frames in the loaded replay timeline",
		},
	)

	ReplayFrameIndex = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_replay_frame_index",
			Help: "Current replay frame index",
		},
	)

	ReplayPlaying = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_replay_playing",
			Help: "Replay playback state (1=playing)",
		},
	)

	ReplayStaleLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "altivion_replay_stale_loads_total",
			Help: "Total number of window load results discarded because a newer load superseded them",
		},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Presentation websocket

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages broadcast, by message type",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Sighting export

	EventsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altivion_events_exported_total",
			Help: "Merged live sightings offered to the NATS export, by result",
		},
		[]string{"result"}, // published, error, dropped
	)

	EventsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "altivion_events_queue_depth",
			Help: "Sightings waiting in the NATS export queue",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBaselineFetch records one half of a baseline cycle.
func RecordBaselineFetch(kind string, duration time.Duration, dropped int, err error) {
	BaselineFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		BaselineFetchTotal.WithLabelValues(kind, "error").Inc()
		return
	}
	BaselineFetchTotal.WithLabelValues(kind, "success").Inc()
	if dropped > 0 {
		BaselineRecordsDropped.WithLabelValues(kind).Add(float64(dropped))
	}
}

// RecordWindowLoad records one window load. tracks is the number of tracks
// returned; err is the transport error, if any.
func RecordWindowLoad(duration time.Duration, tracks int, err error) {
	WindowLoadDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		WindowLoadsTotal.WithLabelValues("error").Inc()
	case tracks == 0:
		WindowLoadsTotal.WithLabelValues("empty").Inc()
	default:
		WindowLoadsTotal.WithLabelValues("success").Inc()
	}
}

// SetWindowCacheStats mirrors the window cache size and eviction count.
func SetWindowCacheStats(size int, evictions int64) {
	WindowCacheEntries.Set(float64(size))
	WindowCacheEvictions.Set(float64(evictions))
}

// SetLiveConnected mirrors the push feed connection flag.
func SetLiveConnected(connected bool) {
	LiveConnected.Set(boolToFloat(connected))
}

// SetDegraded mirrors the merger's degraded polling flag.
func SetDegraded(degraded bool) {
	MergerDegraded.Set(boolToFloat(degraded))
}

// UpdateReplayGauges mirrors the replay engine state.
func UpdateReplayGauges(frames, index int, playing bool) {
	ReplayFrames.Set(float64(frames))
	ReplayFrameIndex.Set(float64(index))
	ReplayPlaying.Set(boolToFloat(playing))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
