// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package supervisor runs Altivion's long-lived components under a suture v4
supervisor tree.

# Tree

	altivion
	├── ingest-layer
	│   ├── baseline-fetcher   (FeedService)
	│   ├── live-feed          (FeedService)
	│   └── state-merger       (RunnerService)
	├── replay-layer
	│   └── replay-engine      (RunnerService)
	└── api-layer
	    ├── websocket-hub      (RunnerService)
	    ├── http-server        (HTTPServerService)
	    └── event-exporter     (RunnerService, when events are enabled)

Each layer counts failures on its own. A service that returns an error is
restarted; once FailureThreshold is exceeded its layer backs off for
FailureBackoff while the other layers keep running.

# Logging

Supervisor events (start, restart, backoff, stop timeouts) are written
through sutureslog to an slog.Logger. main passes logging.NewSlogLogger so
these land in the zerolog stream:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddIngestService(services.NewFeedService(baseline, "baseline-fetcher"))
	tree.AddIngestService(services.NewMergerService(merger))
	tree.AddReplayService(services.NewReplayService(engine))
	tree.AddAPIService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor tree stopped")
	}

# Shutdown

Canceling the context passed to Serve stops every service. Services that do
not return within ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor
