// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package services provides suture.Service wrappers for Altivion components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and fmt.Stringer, which suture uses to name the service in its events.

# Available Services

Feed components (FeedService):
  - Wraps the Start/Stop lifecycle of feed.BaselineFetcher and feed.LiveClient
  - Stop waits for the component's goroutines before Serve returns

State merger, replay engine, websocket hub and event exporter (RunnerService):
  - Delegate to the component's RunWithContext
  - NewMergerService, NewReplayService, NewWebSocketHubService and
    NewEventExportService fix the service name

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve

# Usage

	tree.AddIngestService(services.NewMergerService(m))
	tree.AddIngestService(services.NewFeedService(baseline, "baseline-fetcher"))
	tree.AddIngestService(services.NewFeedService(live, "live-feed"))
	tree.AddReplayService(services.NewReplayService(engine))
	tree.AddAPIService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddAPIService(services.NewEventExportService(exporter))
*/
package services
