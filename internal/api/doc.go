// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package api serves the Altivion presentation API over HTTP.

Routes (all JSON, wrapped in the APIResponse envelope):

	GET  /api/v1/latest                 merged latest sighting per entity
	GET  /api/v1/paths                  merged path per entity
	GET  /api/v1/paths/{entityID}       one path
	GET  /api/v1/status                 connection, degraded mode, baseline errors, counts
	GET  /api/v1/replay                 replay status
	GET  /api/v1/replay/frames          timeline timestamps
	GET  /api/v1/replay/frames/{index}  one reconstructed frame
	GET  /api/v1/replay/current         frame at the current index
	POST /api/v1/replay/window          {"from","to","entity_id"} or {"minutes"}; empty body loads the default window
	POST /api/v1/replay/filter          {"entity_id"} reloads the current window
	POST /api/v1/replay/play|pause|toggle
	POST /api/v1/replay/speed           {"speed"}
	POST /api/v1/replay/step            {"delta"}, default 1
	POST /api/v1/replay/scrub           {"index"}
	GET  /api/v1/health/live|ready
	GET  /api/v1/ws                     websocket push channel
	GET  /metrics                       Prometheus

The handler only reads published merger views and drives the replay engine
through ReplayController; it holds no state of its own. Request bodies are
decoded with goccy/go-json and validated with internal/validation.
*/
package api
