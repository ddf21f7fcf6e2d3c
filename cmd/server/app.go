// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/altivion/internal/api"
	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/events"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/replay"
	"github.com/tomtom215/altivion/internal/supervisor"
	"github.com/tomtom215/altivion/internal/supervisor/services"
	ws "github.com/tomtom215/altivion/internal/websocket"
)

// app holds the wired components. Nothing runs until the tree is served.
type app struct {
	baseline *feed.BaselineFetcher
	live     *feed.LiveClient
	merger   *merger.Merger
	engine   *replay.Engine
	hub      *ws.Hub
	server   *http.Server

	// Set only when events.enabled.
	exporter   *events.Exporter
	publisher  *events.Publisher
	natsServer *events.EmbeddedServer
}

// newApp builds every component from cfg and connects their callbacks.
//
// Data flows one way:
//
//	baseline ──┐
//	live ──────┼─> merger ─┬─> hub ─> browser clients
//	           │           └─> exporter ─> NATS
//	window loader ─> replay engine ─> hub
func newApp(cfg *config.Config) (*app, error) {
	upstream := feed.NewCircuitBreakerClient(
		feed.NewHTTPClient(cfg.Source.BaseURL, cfg.Source.RequestTimeout),
		cfg.Breaker,
		"upstream",
	)

	a := &app{
		baseline: feed.NewBaselineFetcher(upstream, cfg.Baseline),
		live:     feed.NewLiveClient(cfg.Source.WebSocketURL(), cfg.Live),
		merger:   merger.New(cfg.Merge, upstream),
		engine:   replay.NewEngine(feed.NewWindowLoader(upstream, cfg.Replay), cfg.Replay),
		hub:      ws.NewHub(),
	}

	if cfg.Events.Enabled {
		if err := a.initEvents(cfg); err != nil {
			a.close()
			return nil, err
		}
	}

	a.baseline.SetOnUpdate(a.merger.OnBaseline)
	a.live.SetCallbacks(a.merger.OnSighting, a.merger.OnConnectionChange)
	a.merger.SetOnChange(func(c merger.Change) {
		a.hub.OnMergerChange(c)
		if a.exporter != nil {
			a.exporter.OnMergerChange(c)
		}
	})
	a.engine.SetOnChange(a.hub.OnReplayChange)

	handler := api.NewHandler(cfg, api.Dependencies{
		Views:    a.merger,
		Baseline: a.baseline,
		Live:     a.live,
		Replay:   a.engine,
		Hub:      a.hub,
	})
	router := api.NewRouter(handler, cfg.Server)

	// WriteTimeout leaves room for the replay window handler, which answers
	// 202 once cfg.Server.Timeout has elapsed.
	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *app) initEvents(cfg *config.Config) error {
	url := cfg.Events.URL
	if cfg.Events.Embedded {
		srv, err := events.NewEmbeddedServer(cfg.Events.EmbeddedHost, cfg.Events.EmbeddedPort)
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		a.natsServer = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	pub, err := events.NewPublisher(url, cfg.Breaker, events.NewLogger(logging.WithComponent("nats")))
	if err != nil {
		return err
	}
	a.publisher = pub
	a.exporter = events.NewExporter(pub, cfg.Events)
	return nil
}

// supervise adds every component to its layer of tree.
func (a *app) supervise(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	tree.AddIngestService(services.NewMergerService(a.merger))
	tree.AddIngestService(services.NewFeedService(a.baseline, "baseline-fetcher"))
	tree.AddIngestService(services.NewFeedService(a.live, "live-feed"))

	tree.AddReplayService(services.NewReplayService(a.engine))

	tree.AddAPIService(services.NewWebSocketHubService(a.hub))
	tree.AddAPIService(services.NewHTTPServerService(a.server, shutdownTimeout))
	if a.exporter != nil {
		tree.AddAPIService(services.NewEventExportService(a.exporter))
	}
}

// close releases what the supervisor does not own: the NATS connection and
// the embedded server. It runs after the tree has stopped.
func (a *app) close() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close NATS publisher: %w", err))
		}
	}
	if a.natsServer != nil {
		a.natsServer.Shutdown()
	}
	return errors.Join(errs...)
}
