// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package main is the entry point for the Altivion server.

Altivion merges drone sightings from an upstream sighting service into one
live view (latest position and bounded path per entity) and replays
historical windows of recorded tracks. Both are served over a JSON API and a
websocket.

# Supervision

	altivion
	├── ingest-layer
	│   ├── baseline-fetcher   periodic /latest + /tracks
	│   ├── live-feed          upstream websocket push
	│   └── state-merger       merged view, degraded polling
	├── replay-layer
	│   └── replay-engine      window loads and the playback clock
	└── api-layer
	    ├── websocket-hub      fan-out to browser clients
	    ├── http-server        chi router
	    └── event-exporter     sightings to NATS (EVENTS_ENABLED)

# Configuration

Settings come from built-in defaults, an optional config.yaml (or the file
named by CONFIG_PATH) and environment variables, with the environment
winning:

	SOURCE_URL=http://sightings:8000 \
	HTTP_PORT=8090 \
	CORS_ORIGINS=https://console.example \
	LOG_FORMAT=console \
	./altivion

# Signals

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up
to the server timeout, the hub closes every client, and the replay engine
cancels any in-flight load. The event exporter stops, then the NATS
connection and the embedded server, if any, are closed.
*/
package main
