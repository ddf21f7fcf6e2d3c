// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package feed talks to the upstream sighting service.

Components:

  - HTTPClient: REST calls for /latest, /tracks and /tracks_window.
  - CircuitBreakerClient: wraps any Source with a gobreaker circuit breaker
    and mirrors its state to Prometheus.
  - BaselineFetcher: polls latest + tracks on a fixed interval and exposes
    the last good snapshot through an atomic pointer, with a sticky error per
    half.
  - LiveClient: persistent websocket to the push endpoint with exponential
    reconnect backoff; every decoded message is delivered to a callback.
  - Poller: generic fixed-interval latest poll, used by the merger while the
    push feed is down.
  - WindowLoader: on-demand, rate-limited /tracks_window fetches, sanitized
    to the requested half-open interval.

None of these components return transport or decode failures past their own
boundary except through the explicit error fields of Snapshot; a failed cycle
leaves the previous state in place.
*/
package feed
