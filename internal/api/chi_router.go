// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/middleware"
)

// Router binds the handler to routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFromServer(cfg)),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// The upgrade must not pass through compression.
	r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/api/v1/ws", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/latest", h.Latest)
		r.Get("/paths", h.Paths)
		r.Get("/paths/{entityID}", h.Path)
		r.Get("/status", h.Status)

		r.Route("/replay", func(r chi.Router) {
			r.Get("/", h.ReplayStatus)
			r.Get("/frames", h.ReplayFrames)
			r.Get("/frames/{index}", h.ReplayFrame)
			r.Get("/current", h.ReplayCurrent)

			r.With(router.chiMiddleware.RateLimitReplayLoad()).Post("/window", h.ReplayWindow)
			r.With(router.chiMiddleware.RateLimitReplayLoad()).Post("/filter", h.ReplayFilter)

			r.Post("/play", h.ReplayPlay)
			r.Post("/pause", h.ReplayPause)
			r.Post("/toggle", h.ReplayToggle)
			r.Post("/speed", h.ReplaySpeed)
			r.Post("/step", h.ReplayStep)
			r.Post("/scrub", h.ReplayScrub)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
