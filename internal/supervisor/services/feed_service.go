// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package services

import (
	"context"
	"fmt"
)

// StartStopComponent matches the lifecycle of feed.BaselineFetcher and
// feed.LiveClient: Start spawns goroutines and returns, Stop waits for them.
type StartStopComponent interface {
	Start(ctx context.Context) error
	Stop()
}

// FeedService wraps a Start/Stop component as a supervised service.
//
// It adapts the Start/Stop lifecycle to suture's Serve pattern:
//  1. Calls Start(ctx)
//  2. Waits for context cancellation
//  3. Calls Stop(), which blocks until the component's goroutines exit
type FeedService struct {
	component StartStopComponent
	name      string
}

// NewFeedService creates a wrapper named name.
func NewFeedService(component StartStopComponent, name string) *FeedService {
	return &FeedService{
		component: component,
		name:      name,
	}
}

// Serve implements suture.Service.
//
// If Start fails the error is returned immediately and suture restarts the
// service according to its backoff policy.
func (s *FeedService) Serve(ctx context.Context) error {
	if err := s.component.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}

	<-ctx.Done()

	s.component.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *FeedService) String() string {
	return s.name
}
