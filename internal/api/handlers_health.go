// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"net/http"
)

// HealthLive answers the liveness probe. It only proves the process serves
// HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{
		"alive":  true,
		"uptime": h.now().Sub(h.startTime).Seconds(),
	})
}

// HealthReady answers the readiness probe: ready once the live feed is
// connected or a baseline fetch has succeeded, i.e. once there is state
// worth serving.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	liveConnected := h.deps.Live != nil && h.deps.Live.IsConnected()

	baselineLoaded := false
	if h.deps.Baseline != nil {
		if snap := h.deps.Baseline.Snapshot(); snap != nil {
			baselineLoaded = !snap.LatestUpdated.IsZero() || !snap.TracksUpdated.IsZero()
		}
	}

	data := map[string]any{
		"live_connected":  liveConnected,
		"baseline_loaded": baselineLoaded,
		"ready_to_serve":  liveConnected || baselineLoaded,
		"uptime":          h.now().Sub(h.startTime).Seconds(),
	}

	rw := NewResponseWriter(w, r)
	if liveConnected || baselineLoaded {
		rw.Success(data)
		return
	}
	rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not ready", data)
}
