// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

/*
Package replay plays back historical paths for a time window.

A window load yields per-entity tracks. The distinct sample timestamps
across all tracks, sorted, form the Timeline; each timestamp is a frame.
Reconstructing frame i keeps, per entity, the samples at or before
Timeline[i]. Entities without such samples are absent from the frame.
Reconstruction is a filter; nothing is interpolated.

# States

	Idle    --load completes-->  Loaded   (index 0, paused)
	Loaded  --Play, frames>0-->  Playing
	Playing --Pause----------->  Loaded
	Playing --tick------------>  Playing  (index+1 mod frames)
	any     --SetWindow------->  Idle

While playing, the clock advances one frame every 1000ms/speed, with speed
clamped to [1, max_speed]. Changing speed re-arms the clock and keeps the
index. Step wraps around the timeline; Scrub clamps to it. Navigation on an
empty timeline does nothing.

Every load carries a token. A load that finishes after a newer SetWindow is
discarded.
*/
package replay
