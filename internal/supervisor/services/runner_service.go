// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package services

import (
	"context"
)

// ContextRunner matches components whose RunWithContext blocks until the
// context is canceled: *merger.Merger, *replay.Engine, *websocket.Hub and
// *events.Exporter.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name. State lives
// on the runner, not the service, so a restart resumes with whatever the
// component already holds: the merger keeps its view and paths, the
// exporter keeps its queue.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner under name.
func NewRunnerService(runner ContextRunner, name string) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewMergerService wraps the state merger's event loop.
//
//	tree.AddIngestService(services.NewMergerService(m))
func NewMergerService(m ContextRunner) *RunnerService {
	return NewRunnerService(m, "state-merger")
}

// NewReplayService ties the replay engine's lifetime to the supervisor.
// RunWithContext returns once the engine has closed, which cancels
// in-flight loads and stops the playback clock.
func NewReplayService(engine ContextRunner) *RunnerService {
	return NewRunnerService(engine, "replay-engine")
}

// NewWebSocketHubService wraps the presentation hub. The hub closes every
// client before RunWithContext returns.
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return NewRunnerService(hub, "websocket-hub")
}

// NewEventExportService wraps the NATS sighting exporter.
func NewEventExportService(exporter ContextRunner) *RunnerService {
	return NewRunnerService(exporter, "event-exporter")
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (s *RunnerService) String() string {
	return s.name
}
