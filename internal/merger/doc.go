// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package merger combines the baseline snapshot and the live feed into one
consistent view of every entity's latest sighting and recent path.

# Precedence

For the latest view the live overlay always wins over the baseline entry for
the same entity. Entries are never aged out; use View.OnlineCount to ask how
many entities reported recently.

Paths start from the baseline track of each entity. Live samples newer than
the tail of that track are appended, and the result is trimmed from the
front to the path capacity, so every published path is ordered by
timestamp.

# Degraded Mode

While the live feed is disconnected the merger polls the latest endpoint
with a short lookback, and each successful poll replaces the live overlay
wholesale. Polling stops as soon as the feed reconnects. Degraded polling
only touches the latest view, never paths.

# Concurrency

All inputs (baseline updates, live sightings, connection changes and poll
results) are events on one buffered channel drained by RunWithContext. The
actor goroutine is the only writer; it publishes an immutable View through
an atomic pointer after each event, so readers never lock:

	m := merger.New(cfg.Merge, source)
	baseline.SetOnUpdate(m.OnBaseline)
	live.SetCallbacks(m.OnSighting, m.OnConnectionChange)
	go m.RunWithContext(ctx)

	view := m.View()
	s, ok := view.Sighting("D1")
*/
package merger
