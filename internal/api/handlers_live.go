// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/altivion/internal/models"
	"github.com/tomtom215/altivion/internal/replay"
	"github.com/tomtom215/altivion/internal/validation"
)

// PathResponse is one entity's merged path.
type PathResponse struct {
	EntityID string              `json:"entity_id"`
	Points   []models.TrackPoint `json:"points"`
}

// BaselineStatus reports each baseline half. An error stays set until the
// next successful fetch of that half.
type BaselineStatus struct {
	LatestError   string     `json:"latest_error,omitempty"`
	LatestUpdated *time.Time `json:"latest_updated,omitempty"`
	TracksError   string     `json:"tracks_error,omitempty"`
	TracksUpdated *time.Time `json:"tracks_updated,omitempty"`
	Cycles        uint64     `json:"cycles"`
}

// StatusResponse is the status document.
type StatusResponse struct {
	Connected    bool   `json:"connected"`
	Degraded     bool   `json:"degraded"`
	MessageCount uint64 `json:"message_count"`

	EntityCount int        `json:"entity_count"`
	OnlineCount int        `json:"online_count"`
	PointCount  int        `json:"point_count"`
	ViewVersion uint64     `json:"view_version"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	Baseline BaselineStatus `json:"baseline"`
	Replay   replay.Status  `json:"replay"`

	WebSocketClients int     `json:"websocket_clients"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// Latest returns the merged latest sighting of every entity, sorted by id.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	sightings := h.deps.Views.View().Sightings()
	NewResponseWriter(w, r).List(sightings, len(sightings))
}

// Paths returns every merged path, sorted by entity id.
func (h *Handler) Paths(w http.ResponseWriter, r *http.Request) {
	view := h.deps.Views.View()

	ids := make([]string, 0, len(view.Paths))
	for id := range view.Paths {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	paths := make([]PathResponse, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, PathResponse{EntityID: id, Points: view.Paths[id]})
	}
	NewResponseWriter(w, r).List(paths, len(paths))
}

// Path returns one entity's merged path.
func (h *Handler) Path(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "entityID")
	if !validation.IsEntityID(id) {
		rw.BadRequest("invalid entity id")
		return
	}

	points := h.deps.Views.View().Path(id)
	if points == nil {
		rw.NotFound("no path for entity " + id)
		return
	}
	rw.Success(PathResponse{EntityID: id, Points: points})
}

// Status returns the status document.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	view := h.deps.Views.View()

	resp := StatusResponse{
		Connected:     view.Connected,
		Degraded:      view.Degraded,
		EntityCount:   len(view.Latest),
		OnlineCount:   view.OnlineCount(now, h.cfg.Merge.OnlineWindow),
		PointCount:    view.PointCount(),
		ViewVersion:   view.Version,
		UpdatedAt:     timePtr(view.UpdatedAt),
		UptimeSeconds: now.Sub(h.startTime).Seconds(),
	}

	if h.deps.Live != nil {
		resp.MessageCount = h.deps.Live.MessageCount()
	}
	if h.deps.Baseline != nil {
		if snap := h.deps.Baseline.Snapshot(); snap != nil {
			resp.Baseline = BaselineStatus{
				LatestError:   errString(snap.LatestErr),
				LatestUpdated: timePtr(snap.LatestUpdated),
				TracksError:   errString(snap.TracksErr),
				TracksUpdated: timePtr(snap.TracksUpdated),
				Cycles:        snap.Cycle,
			}
		}
	}
	if h.deps.Replay != nil {
		resp.Replay = h.deps.Replay.Status()
	}
	if h.deps.Hub != nil {
		resp.WebSocketClients = h.deps.Hub.GetClientCount()
	}

	NewResponseWriter(w, r).Success(resp)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
