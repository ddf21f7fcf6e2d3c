// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package middleware provides the HTTP middleware shared by the Altivion API.

Two middlewares live here:

  - RequestID reads or generates X-Request-ID, echoes it on the response and
    stores it, together with a fresh correlation id, in the logging context.
  - PrometheusMetrics counts requests and observes their duration. The
    endpoint label is the chi route pattern ("/api/v1/paths/{entityID}"),
    not the raw path, so entity ids and frame indexes do not explode label
    cardinality.

Both have the func(http.HandlerFunc) http.HandlerFunc shape; the router
adapts them to chi with a small shim.
*/
package middleware
