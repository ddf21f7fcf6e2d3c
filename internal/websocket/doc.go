// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package websocket pushes merger and replay changes to browser clients.

The package uses a hub-and-spoke layout on top of gorilla/websocket:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each client runs a readPump (answers application-level pings, detects
disconnects) and a writePump (serializes messages, sends keepalive pings).
A client whose send buffer is full is dropped rather than slowing the hub.

Message types:

  - sighting: one live sighting merged into the latest view
  - view_updated: a baseline merge or degraded poll changed the view
  - connection: the upstream push feed connected or disconnected
  - replay_state: a window load, play/pause or speed change
  - replay_frame: the replay frame index moved
  - ping / pong: application-level keepalive initiated by the client

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	m.SetOnChange(hub.OnMergerChange)
	engine.SetOnChange(hub.OnReplayChange)
*/
package websocket
