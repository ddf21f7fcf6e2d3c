// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// Poller fetches /latest?minutes=N on a fixed interval and hands each
// successful result to a callback. The merger runs one while the push feed
// is down. Failed polls are logged and skipped.
type Poller struct {
	source   Source
	interval time.Duration
	minutes  int
	log      zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	onResult func(context.Context, []models.Sighting)
}

// NewPoller creates a stopped poller.
func NewPoller(source Source, interval time.Duration, minutes int) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		minutes:  minutes,
		log:      logging.WithComponent("degraded-poller"),
	}
}

// SetOnResult registers the result callback. It runs on the poll goroutine
// with a context that is cancelled when the poller stops; a callback that
// blocks must give up when it is done.
func (p *Poller) SetOnResult(callback func(context.Context, []models.Sighting)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = callback
}

// Running reports whether the poll loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins polling; the first poll runs immediately. Starting a running
// poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopChan = make(chan struct{})

	p.log.Info().Dur("interval", p.interval).Int("minutes", p.minutes).Msg("Starting degraded polling")

	p.wg.Add(1)
	go p.pollLoop(ctx, p.stopChan)
}

// Stop ends polling and waits for an in-flight poll. A result that arrives
// while stopping is discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info().Msg("Degraded polling stopped")
}

func (p *Poller) pollLoop(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.poll(ctx, stop)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, stop)
		}
	}
}

func (p *Poller) poll(ctx context.Context, stop <-chan struct{}) {
	result, err := p.source.Latest(ctx, p.minutes)
	if err != nil {
		if ctx.Err() == nil {
			metrics.MergerDegradedPolls.WithLabelValues("error").Inc()
			p.log.Warn().Err(err).Msg("Degraded poll failed")
		}
		return
	}
	metrics.MergerDegradedPolls.WithLabelValues("success").Inc()

	select {
	case <-stop:
		return
	default:
	}

	p.mu.Lock()
	callback := p.onResult
	p.mu.Unlock()
	if callback != nil {
		callback(ctx, result.Sightings)
	}
}
