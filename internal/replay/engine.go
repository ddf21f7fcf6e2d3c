// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package replay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

var (
	// ErrInvalidWindow is returned for a window with a zero bound or To before From.
	ErrInvalidWindow = errors.New("invalid replay window")

	// ErrNoWindow is returned when changing the filter before any window was set.
	ErrNoWindow = errors.New("no replay window set")

	// ErrFrameOutOfRange is returned by Reconstruct for an index outside the timeline.
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("replay engine closed")
)

// State is the playback state.
type State string

const (
	StateIdle    State = "idle"
	StateLoaded  State = "loaded"
	StatePlaying State = "playing"
)

// Loader fetches the tracks of a window. It must not fail; problems yield
// an empty result. *feed.WindowLoader implements it.
type Loader interface {
	Load(ctx context.Context, w feed.Window) []models.Track
}

// Status is a copy of the engine state.
type Status struct {
	State        State        `json:"state"`
	Loading      bool         `json:"loading"`
	Playing      bool         `json:"playing"`
	FrameIndex   int          `json:"frame_index"`
	FrameCount   int          `json:"frame_count"`
	Speed        int          `json:"speed"`
	Window       *feed.Window `json:"window,omitempty"`
	EntityFilter string       `json:"entity_filter,omitempty"`
	// Timestamp is the cutoff of the current frame.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	// Seq increases with every published change. Callbacks run outside the
	// engine lock and may arrive out of order; a lower Seq is stale.
	Seq uint64 `json:"seq"`
}

// ChangeKind tells subscribers what changed.
type ChangeKind string

const (
	// ChangeState follows a load, play/pause or speed change.
	ChangeState ChangeKind = "replay_state"
	// ChangeFrame follows a frame index change.
	ChangeFrame ChangeKind = "replay_frame"
)

// Change is delivered to the OnChange callback. Frame is set on frame
// changes and was reconstructed together with Status.
type Change struct {
	Kind   ChangeKind
	Status Status
	Frame  *Frame
}

// Engine owns the loaded tracks, the timeline and the playback state. All
// mutations are serialized behind one mutex; the playback clock runs on its
// own goroutine and is torn down whenever playback stops.
type Engine struct {
	loader Loader
	cfg    config.ReplayConfig
	log    zerolog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	loading    bool
	hasWindow  bool
	window     feed.Window
	tracks     []models.Track
	timeline   Timeline
	index      int
	speed      int
	token      uint64
	loadCancel context.CancelFunc
	timerStop  chan struct{}
	generation uint64
	seq        uint64
	closed     bool

	callbackMu sync.RWMutex
	onChange   func(Change)
}

// NewEngine creates an idle engine.
func NewEngine(loader Loader, cfg config.ReplayConfig) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		loader: loader,
		cfg:    cfg,
		log:    logging.WithComponent("replay"),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
	}
	e.speed = e.clampSpeed(cfg.DefaultSpeed)
	return e
}

// SetOnChange registers a callback. It runs after the engine lock is
// released, on the goroutine that made the change.
func (e *Engine) SetOnChange(callback func(Change)) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()
	e.onChange = callback
}

// changeLocked stamps the next sequence number and snapshots the status,
// plus the current frame for frame changes. e.mu must be held, so sequence
// numbers follow the order in which changes were applied.
func (e *Engine) changeLocked(kind ChangeKind) Change {
	e.seq++
	c := Change{Kind: kind, Status: e.statusLocked()}
	if kind == ChangeFrame {
		if frame, ok := Reconstruct(e.tracks, e.timeline, e.index); ok {
			c.Frame = &frame
		}
	}
	metrics.UpdateReplayGauges(c.Status.FrameCount, c.Status.FrameIndex, c.Status.Playing)
	return c
}

func (e *Engine) emit(c Change) {
	e.callbackMu.RLock()
	callback := e.onChange
	e.callbackMu.RUnlock()
	if callback != nil {
		callback(c)
	}
}

// SetWindow loads w, resetting the engine to Idle until the load completes.
// It waits for the load unless ctx ends first; the load itself is bound to
// the engine's lifetime, not to ctx. A load superseded by a later call is
// discarded, and the returned status then reflects the newer window.
func (e *Engine) SetWindow(ctx context.Context, w feed.Window) (Status, error) {
	if w.From.IsZero() || w.To.IsZero() || w.To.Before(w.From) {
		return Status{}, ErrInvalidWindow
	}

	done, err := e.beginLoad(w)
	if err != nil {
		return Status{}, err
	}
	select {
	case <-done:
		return e.Status(), nil
	case <-ctx.Done():
		return e.Status(), ctx.Err()
	}
}

// SetRecentWindow loads the window ending now and spanning d.
func (e *Engine) SetRecentWindow(ctx context.Context, d time.Duration, entityID string) (Status, error) {
	to := e.now().UTC()
	return e.SetWindow(ctx, feed.Window{From: to.Add(-d), To: to, EntityID: entityID})
}

// SetFilter reloads the current window with a new entity filter. An empty
// id removes the filter.
func (e *Engine) SetFilter(ctx context.Context, entityID string) (Status, error) {
	e.mu.Lock()
	if !e.hasWindow {
		e.mu.Unlock()
		return Status{}, ErrNoWindow
	}
	w := e.window
	e.mu.Unlock()

	w.EntityID = entityID
	return e.SetWindow(ctx, w)
}

func (e *Engine) beginLoad(w feed.Window) (<-chan struct{}, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.loadCancel != nil {
		e.loadCancel()
	}
	e.disarmLocked()
	e.token++
	token := e.token
	loadCtx, cancel := context.WithCancel(e.ctx)
	e.loadCancel = cancel

	e.state = StateIdle
	e.loading = true
	e.hasWindow = true
	e.window = w
	e.tracks = nil
	e.timeline = nil
	e.index = 0
	c := e.changeLocked(ChangeState)

	done := make(chan struct{})
	e.wg.Add(1)
	e.mu.Unlock()

	e.emit(c)

	go func() {
		defer e.wg.Done()
		defer close(done)
		defer cancel()

		start := time.Now()
		tracks := e.loader.Load(loadCtx, w)
		e.finishLoad(token, w, tracks, time.Since(start))
	}()
	return done, nil
}

func (e *Engine) finishLoad(token uint64, w feed.Window, tracks []models.Track, took time.Duration) {
	e.mu.Lock()
	if e.closed || token != e.token {
		e.mu.Unlock()
		metrics.ReplayStaleLoads.Inc()
		e.log.Debug().Uint64("token", token).Msg("Discarding superseded window load")
		return
	}

	e.tracks = normalizeTracks(tracks)
	e.timeline = BuildTimeline(e.tracks)
	e.index = 0
	e.state = StateLoaded
	e.loading = false
	e.loadCancel = nil
	loaded := len(e.tracks)
	c := e.changeLocked(ChangeState)
	e.mu.Unlock()

	e.log.Info().
		Time("from", w.From).
		Time("to", w.To).
		Str("entity_filter", w.EntityID).
		Int("tracks", loaded).
		Int("frames", c.Status.FrameCount).
		Dur("took", took).
		Msg("Replay window loaded")
	e.emit(c)
}

// Play starts playback. It does nothing unless frames are loaded.
func (e *Engine) Play() Status {
	e.mu.Lock()
	if e.closed || e.state != StateLoaded || len(e.timeline) == 0 {
		st := e.statusLocked()
		e.mu.Unlock()
		return st
	}
	e.state = StatePlaying
	e.armLocked()
	c := e.changeLocked(ChangeState)
	e.mu.Unlock()

	e.emit(c)
	return c.Status
}

// Pause stops playback and keeps the frame index.
func (e *Engine) Pause() Status {
	e.mu.Lock()
	if e.state != StatePlaying {
		st := e.statusLocked()
		e.mu.Unlock()
		return st
	}
	e.state = StateLoaded
	e.disarmLocked()
	c := e.changeLocked(ChangeState)
	e.mu.Unlock()

	e.emit(c)
	return c.Status
}

// Toggle pauses when playing and plays otherwise.
func (e *Engine) Toggle() Status {
	e.mu.Lock()
	playing := e.state == StatePlaying
	e.mu.Unlock()

	if playing {
		return e.Pause()
	}
	return e.Play()
}

// SetSpeed sets frames per second, clamped to [1, max_speed]. While
// playing the clock is re-armed at the new rate; the index is kept.
func (e *Engine) SetSpeed(speed int) Status {
	e.mu.Lock()
	e.speed = e.clampSpeed(speed)
	if e.state == StatePlaying && !e.closed {
		e.disarmLocked()
		e.armLocked()
	}
	c := e.changeLocked(ChangeState)
	e.mu.Unlock()

	e.emit(c)
	return c.Status
}

// Step moves delta frames, wrapping around the timeline.
func (e *Engine) Step(delta int) Status {
	e.mu.Lock()
	n := len(e.timeline)
	if n == 0 {
		st := e.statusLocked()
		e.mu.Unlock()
		return st
	}
	e.index = ((e.index+delta)%n + n) % n
	c := e.changeLocked(ChangeFrame)
	e.mu.Unlock()

	e.emit(c)
	return c.Status
}

// Scrub jumps to index, clamped to the timeline.
func (e *Engine) Scrub(index int) Status {
	e.mu.Lock()
	n := len(e.timeline)
	if n == 0 {
		st := e.statusLocked()
		e.mu.Unlock()
		return st
	}
	e.index = max(0, min(index, n-1))
	c := e.changeLocked(ChangeFrame)
	e.mu.Unlock()

	e.emit(c)
	return c.Status
}

// Status returns a copy of the current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Timeline returns a copy of the current timeline.
func (e *Engine) Timeline() Timeline {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append(Timeline(nil), e.timeline...)
}

// Reconstruct returns frame i of the loaded window.
func (e *Engine) Reconstruct(i int) (Frame, error) {
	e.mu.Lock()
	tracks, tl := e.tracks, e.timeline
	e.mu.Unlock()

	frame, ok := Reconstruct(tracks, tl, i)
	if !ok {
		return Frame{}, ErrFrameOutOfRange
	}
	return frame, nil
}

// Current returns the frame at the current index, and false when the
// timeline is empty.
func (e *Engine) Current() (Frame, bool) {
	e.mu.Lock()
	tracks, tl, i := e.tracks, e.timeline, e.index
	e.mu.Unlock()
	return Reconstruct(tracks, tl, i)
}

// Close stops playback, abandons in-flight loads and waits for them.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.disarmLocked()
	if e.state == StatePlaying {
		e.state = StateLoaded
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	metrics.UpdateReplayGauges(0, 0, false)
	e.log.Info().Msg("Replay engine closed")
}

// RunWithContext keeps the engine alive until ctx ends, then closes it.
func (e *Engine) RunWithContext(ctx context.Context) error {
	<-ctx.Done()
	e.Close()
	return ctx.Err()
}

func (e *Engine) clampSpeed(speed int) int {
	maxSpeed := max(e.cfg.MaxSpeed, 1)
	return max(1, min(speed, maxSpeed))
}

func (e *Engine) period() time.Duration {
	return time.Second / time.Duration(e.speed)
}

// armLocked starts the playback clock. e.mu must be held.
func (e *Engine) armLocked() {
	e.generation++
	gen := e.generation
	stop := make(chan struct{})
	e.timerStop = stop
	period := e.period()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.tick(gen)
			}
		}
	}()
}

// disarmLocked stops the playback clock. e.mu must be held. The clock
// goroutine exits on its own; a tick already waiting for the lock sees a
// newer generation and does nothing.
func (e *Engine) disarmLocked() {
	if e.timerStop != nil {
		close(e.timerStop)
		e.timerStop = nil
	}
	e.generation++
}

// tick advances one frame if the clock of generation gen is still current.
func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.state != StatePlaying || len(e.timeline) == 0 {
		e.mu.Unlock()
		return
	}
	e.index = (e.index + 1) % len(e.timeline)
	c := e.changeLocked(ChangeFrame)
	e.mu.Unlock()

	e.emit(c)
}

func (e *Engine) statusLocked() Status {
	st := Status{
		State:      e.state,
		Loading:    e.loading,
		Playing:    e.state == StatePlaying,
		FrameIndex: e.index,
		FrameCount: len(e.timeline),
		Speed:      e.speed,
		Seq:        e.seq,
	}
	if e.hasWindow {
		w := e.window
		st.Window = &w
		st.EntityFilter = w.EntityID
	}
	if e.index < len(e.timeline) {
		ts := e.timeline[e.index]
		st.Timestamp = &ts
	}
	return st
}
