// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package cache provides a small generic LRU cache with per-entry TTL.

The replay window loader keeps recently loaded historical windows here so
that flipping the entity filter back and forth, or reloading the same
window, does not hit the upstream again.

	c := cache.NewLRU[string, []models.Track](32, time.Minute)
	c.Add(key, tracks)
	if tracks, ok := c.Get(key); ok {
	    return tracks
	}

Expired entries are removed lazily, on Get and when capacity forces an
eviction. All methods are safe for concurrent use.
*/
package cache
