// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/replay"
	ws "github.com/tomtom215/altivion/internal/websocket"
)

// ViewSource publishes merged views. *merger.Merger implements it.
type ViewSource interface {
	View() *merger.View
}

// LiveFeedState reports the push feed. *feed.LiveClient implements it.
type LiveFeedState interface {
	IsConnected() bool
	MessageCount() uint64
}

// BaselineState exposes the last baseline snapshot. *feed.BaselineFetcher
// implements it.
type BaselineState interface {
	Snapshot() *feed.Snapshot
}

// ReplayController is the replay surface the API drives. *replay.Engine
// implements it.
type ReplayController interface {
	Status() replay.Status
	Timeline() replay.Timeline
	Reconstruct(i int) (replay.Frame, error)
	Current() (replay.Frame, bool)

	SetWindow(ctx context.Context, w feed.Window) (replay.Status, error)
	SetRecentWindow(ctx context.Context, d time.Duration, entityID string) (replay.Status, error)
	SetFilter(ctx context.Context, entityID string) (replay.Status, error)

	Play() replay.Status
	Pause() replay.Status
	Toggle() replay.Status
	SetSpeed(speed int) replay.Status
	Step(delta int) replay.Status
	Scrub(index int) replay.Status
}

// Dependencies are the components the handlers read from and drive.
// Baseline, Live and Hub may be nil; the affected fields then report
// their zero values.
type Dependencies struct {
	Views    ViewSource
	Baseline BaselineState
	Live     LiveFeedState
	Replay   ReplayController
	Hub      *ws.Hub
}

// Handler serves the presentation API.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, websocket upgrade
//   - handlers_live.go: merged live state and the status document
//   - handlers_replay.go: replay inspection and control
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	deps Dependencies
	cfg  *config.Config
	log  zerolog.Logger
	now  func() time.Time

	startTime time.Time
}

// NewHandler creates the API handler.
//
//	handler := api.NewHandler(cfg, api.Dependencies{Views: m, Replay: engine, Hub: hub})
//	router := api.NewRouter(handler, cfg.Server)
//	srv := &http.Server{Handler: router.SetupChi()}
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		deps:      deps,
		cfg:       cfg,
		log:       logging.WithComponent("api"),
		now:       time.Now,
		startTime: time.Now(),
	}
}

// WebSocket upgrades the request and registers the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		h.log.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.deps.Hub, conn)
	h.deps.Hub.Register <- client
	client.Start()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin allows listed origins (or "*") and rejects requests
// without an Origin header. Browsers always send one.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		h.log.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	for _, allowed := range h.cfg.Server.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	h.log.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and bounds the length of a
// client-supplied value before it is logged.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
