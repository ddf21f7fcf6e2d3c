// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package events exports merged live sightings to NATS.

When events.enabled is set, every live sighting the merger accepts is
published as one JSON message on events.subject. Downstream consumers
(alerting, archiving, other consoles) subscribe there instead of polling
the API. Export is best-effort: the queue is bounded and drops when full,
and publishes fail fast while the NATS circuit breaker is open.

# Components

  - Exporter: bounded queue fed from merger changes, drained by
    RunWithContext under the supervisor. It accepts any watermill
    message.Publisher.
  - Publisher: watermill-nats core NATS publisher (JetStream disabled)
    behind a gobreaker circuit breaker.
  - EmbeddedServer: optional in-process nats-server for single-node
    deployments (events.embedded).
  - Logger: watermill.LoggerAdapter writing through zerolog.

# Message format

	subject:  altivion.sightings
	headers:  entity_id, timestamp (RFC 3339)
	payload:  {"entity_id":"DR-1","timestamp":"2026-03-01T12:00:00Z",
	           "latitude":52.1,"longitude":4.3,"height_m":null,...}
*/
package events
