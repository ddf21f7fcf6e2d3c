// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package metrics defines the Prometheus instrumentation for Altivion.

All collectors are registered on the default registry through promauto and
served by promhttp on /metrics.

Metric families:

  - altivion_live_*: push feed messages, decode drops, connection state, reconnects
  - altivion_baseline_*: latest/tracks fetch results and latency
  - altivion_merger_*: entities, path samples, dropped live samples, degraded mode
  - altivion_window_*: on-demand window loads and sanitized samples
  - altivion_replay_*: timeline size, playback state, stale loads
  - circuit_breaker_*: breaker state around the REST source
  - api_* and websocket_*: HTTP API and presentation push channel

Example alerts:

	- alert: LiveFeedDown
	  expr: altivion_live_connected == 0
	  for: 5m
	- alert: BaselineFailing
	  expr: rate(altivion_baseline_fetch_total{result="error"}[5m]) > 0
	  for: 10m
	- alert: CircuitBreakerOpen
	  expr: circuit_breaker_state > 0
	  for: 2m
*/
package metrics
