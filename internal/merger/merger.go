// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package merger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// ErrAlreadyRunning is returned by RunWithContext when the actor loop is already active.
var ErrAlreadyRunning = errors.New("merger already running")

// eventQueueSize bounds the event channel. Producers block when it is full.
const eventQueueSize = 1024

type eventKind int

const (
	eventBaseline eventKind = iota
	eventSighting
	eventConnection
	eventDegradedPoll
	eventBarrier
)

func (k eventKind) String() string {
	switch k {
	case eventBaseline:
		return "baseline"
	case eventSighting:
		return "sighting"
	case eventConnection:
		return "connection"
	case eventDegradedPoll:
		return "degraded_poll"
	default:
		return "barrier"
	}
}

type event struct {
	kind      eventKind
	snapshot  *feed.Snapshot
	sighting  models.Sighting
	connected bool
	polled    []models.Sighting
	done      chan struct{}
}

// ChangeKind tells subscribers what caused a publication.
type ChangeKind string

const (
	// ChangeSighting follows a live sighting that updated the view.
	ChangeSighting ChangeKind = "sighting"
	// ChangeView follows a baseline merge or a degraded poll.
	ChangeView ChangeKind = "view_updated"
	// ChangeConnection follows a live feed connect or disconnect.
	ChangeConnection ChangeKind = "connection"
)

// Change describes one publication.
type Change struct {
	Kind ChangeKind
	View *View
	// Sighting is set for ChangeSighting.
	Sighting *models.Sighting
}

// Merger owns the latest view and path buffers. See the package
// documentation for precedence rules.
type Merger struct {
	cfg    config.MergeConfig
	log    zerolog.Logger
	now    func() time.Time
	poller *feed.Poller

	events chan event
	view   atomic.Pointer[View]

	mu       sync.Mutex
	running  bool
	stopped  bool
	quit     chan struct{} // closed while the loop has exited
	onChange func(Change)

	// Owned by the actor goroutine.
	baseLatest []models.Sighting
	baseTracks map[string][]models.TrackPoint
	liveLatest map[string]models.Sighting
	liveAcc    map[string]*PathBuffer
	connected  bool
	version    uint64
}

// New creates a merger. source serves the degraded-mode polls.
func New(cfg config.MergeConfig, source feed.Source) *Merger {
	m := &Merger{
		cfg:        cfg,
		log:        logging.WithComponent("merger"),
		now:        time.Now,
		poller:     feed.NewPoller(source, cfg.DegradedInterval, cfg.DegradedMinutes),
		events:     make(chan event, eventQueueSize),
		quit:       make(chan struct{}),
		baseTracks: map[string][]models.TrackPoint{},
		liveLatest: map[string]models.Sighting{},
		liveAcc:    map[string]*PathBuffer{},
	}
	m.poller.SetOnResult(m.onDegradedResult)
	m.view.Store(emptyView())
	return m
}

// View returns the current view. It never blocks and never returns nil.
func (m *Merger) View() *View {
	return m.view.Load()
}

// SetOnChange registers a callback invoked on the actor goroutine after
// every publication. It must not block for long.
func (m *Merger) SetOnChange(callback func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = callback
}

// OnBaseline queues a baseline snapshot. It matches BaselineFetcher.SetOnUpdate.
func (m *Merger) OnBaseline(snap *feed.Snapshot) {
	if snap == nil {
		return
	}
	m.enqueue(context.Background(), event{kind: eventBaseline, snapshot: snap})
}

// OnSighting queues a live sighting.
func (m *Merger) OnSighting(s models.Sighting) {
	m.enqueue(context.Background(), event{kind: eventSighting, sighting: s})
}

// OnConnectionChange queues a live feed connection change.
func (m *Merger) OnConnectionChange(connected bool) {
	m.enqueue(context.Background(), event{kind: eventConnection, connected: connected})
}

func (m *Merger) onDegradedResult(ctx context.Context, sightings []models.Sighting) {
	m.enqueue(ctx, event{kind: eventDegradedPoll, polled: sightings})
}

// Sync waits until every event queued before the call has been applied.
func (m *Merger) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !m.enqueue(ctx, event{kind: eventBarrier, done: done}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue blocks until the event is queued, ctx ends or the actor loop has
// exited. Before the first run events simply queue up.
func (m *Merger) enqueue(ctx context.Context, ev event) bool {
	m.mu.Lock()
	quit := m.quit
	m.mu.Unlock()

	select {
	case m.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-quit:
		return false
	}
}

// RunWithContext runs the actor loop until ctx is cancelled. Degraded
// polling starts immediately because the live feed starts disconnected.
func (m *Merger) RunWithContext(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	if m.stopped {
		m.quit = make(chan struct{})
		m.stopped = false
	}
	m.mu.Unlock()

	m.log.Info().Int("path_capacity", m.cfg.PathCapacity).Msg("Merger started")

	defer func() {
		m.poller.Stop()
		metrics.SetDegraded(false)

		m.mu.Lock()
		close(m.quit)
		m.stopped = true
		m.running = false
		m.mu.Unlock()
		m.log.Info().Msg("Merger stopped")
	}()

	if !m.connected {
		m.startDegraded(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.apply(ctx, ev)
		}
	}
}

func (m *Merger) apply(ctx context.Context, ev event) {
	if ev.kind == eventBarrier {
		close(ev.done)
		return
	}
	metrics.MergerEvents.WithLabelValues(ev.kind.String()).Inc()

	switch ev.kind {
	case eventBaseline:
		m.applyBaseline(ev.snapshot)
	case eventSighting:
		m.applySighting(ev.sighting)
	case eventConnection:
		m.applyConnection(ctx, ev.connected)
	case eventDegradedPoll:
		m.applyDegraded(ev.polled)
	}
}

func (m *Merger) applyBaseline(snap *feed.Snapshot) {
	latest := make([]models.Sighting, 0, len(snap.Latest))
	for i := range snap.Latest {
		if snap.Latest[i].Valid() {
			latest = append(latest, snap.Latest[i])
		}
	}
	m.baseLatest = latest

	tracks := make(map[string][]models.TrackPoint, len(snap.Tracks))
	for _, t := range snap.Tracks {
		tracks[t.EntityID] = t.Points
	}
	m.baseTracks = tracks

	paths := make(map[string][]models.TrackPoint, len(tracks)+len(m.liveAcc))
	for id, pts := range tracks {
		paths[id] = mergePath(pts, m.liveAcc[id], m.cfg.PathCapacity)
	}
	for id, acc := range m.liveAcc {
		if _, ok := paths[id]; !ok {
			paths[id] = mergePath(nil, acc, m.cfg.PathCapacity)
		}
	}

	m.publish(Change{Kind: ChangeView}, m.buildLatest(), paths)
}

func (m *Merger) applySighting(s models.Sighting) {
	if !s.Valid() {
		metrics.MergerLiveSamplesDropped.WithLabelValues("invalid").Inc()
		return
	}

	m.liveLatest[s.EntityID] = s

	prev := m.view.Load()
	paths := prev.Paths

	acc, ok := m.liveAcc[s.EntityID]
	if !ok {
		acc = NewPathBuffer(m.cfg.PathCapacity)
		m.liveAcc[s.EntityID] = acc
	}
	if acc.AppendAfterTail(s.Point()) {
		paths = copyPaths(prev.Paths)
		paths[s.EntityID] = mergePath(m.baseTracks[s.EntityID], acc, m.cfg.PathCapacity)
	} else {
		metrics.MergerLiveSamplesDropped.WithLabelValues("stale").Inc()
	}

	latest := copyLatest(prev.Latest)
	latest[s.EntityID] = s
	m.publish(Change{Kind: ChangeSighting, Sighting: &s}, latest, paths)
}

func (m *Merger) applyConnection(ctx context.Context, connected bool) {
	if connected == m.connected {
		return
	}
	m.connected = connected
	if connected {
		m.log.Info().Msg("Live feed connected, leaving degraded mode")
		m.poller.Stop()
		metrics.SetDegraded(false)
	} else {
		m.log.Warn().Msg("Live feed disconnected, entering degraded mode")
		m.startDegraded(ctx)
	}

	prev := m.view.Load()
	m.publish(Change{Kind: ChangeConnection}, prev.Latest, prev.Paths)
}

func (m *Merger) applyDegraded(polled []models.Sighting) {
	if m.connected {
		metrics.MergerDegradedPolls.WithLabelValues("ignored").Inc()
		return
	}

	overlay := make(map[string]models.Sighting, len(polled))
	for i := range polled {
		s := polled[i]
		if !s.Valid() {
			continue
		}
		if cur, ok := overlay[s.EntityID]; ok && cur.Timestamp.After(s.Timestamp) {
			continue
		}
		overlay[s.EntityID] = s
	}
	m.liveLatest = overlay

	m.publish(Change{Kind: ChangeView}, m.buildLatest(), m.view.Load().Paths)
}

func (m *Merger) startDegraded(ctx context.Context) {
	m.poller.Start(ctx)
	metrics.SetDegraded(true)
}

// buildLatest overlays the live map on the baseline.
func (m *Merger) buildLatest() map[string]models.Sighting {
	latest := make(map[string]models.Sighting, len(m.baseLatest)+len(m.liveLatest))
	for _, s := range m.baseLatest {
		latest[s.EntityID] = s
	}
	for id, s := range m.liveLatest {
		latest[id] = s
	}
	return latest
}

func (m *Merger) publish(change Change, latest map[string]models.Sighting, paths map[string][]models.TrackPoint) {
	m.version++
	v := &View{
		Latest:    latest,
		Paths:     paths,
		Connected: m.connected,
		Degraded:  !m.connected,
		Version:   m.version,
		UpdatedAt: m.now(),
	}
	m.view.Store(v)

	metrics.MergerEntities.Set(float64(len(latest)))
	metrics.MergerPathPoints.Set(float64(v.PointCount()))

	m.mu.Lock()
	callback := m.onChange
	m.mu.Unlock()
	if callback != nil {
		change.View = v
		callback(change)
	}
}

func copyLatest(in map[string]models.Sighting) map[string]models.Sighting {
	out := make(map[string]models.Sighting, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyPaths(in map[string][]models.TrackPoint) map[string][]models.TrackPoint {
	out := make(map[string][]models.TrackPoint, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
