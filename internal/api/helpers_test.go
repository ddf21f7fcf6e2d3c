// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/models"
	"github.com/tomtom215/altivion/internal/replay"
)

//nolint:gochecknoinits // keep handler logs out of test output
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const allowedOrigin = "http://console.example"

func testConfig() *config.Config {
	return &config.Config{
		Merge:  config.MergeConfig{OnlineWindow: 30 * time.Second},
		Replay: config.ReplayConfig{DefaultSpeed: 4, MaxSpeed: 60, DefaultWindow: 5 * time.Minute},
		Server: config.ServerConfig{
			Timeout:     2 * time.Second,
			CORSOrigins: []string{allowedOrigin},
		},
	}
}

type fakeViews struct {
	mu   sync.Mutex
	view *merger.View
}

func (f *fakeViews) View() *merger.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.view == nil {
		return &merger.View{Latest: map[string]models.Sighting{}, Paths: map[string][]models.TrackPoint{}}
	}
	return f.view
}

type fakeLive struct {
	connected bool
	messages  uint64
}

func (f *fakeLive) IsConnected() bool    { return f.connected }
func (f *fakeLive) MessageCount() uint64 { return f.messages }

type fakeBaseline struct {
	mu   sync.Mutex
	snap *feed.Snapshot
}

func (f *fakeBaseline) Snapshot() *feed.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return &feed.Snapshot{}
	}
	return f.snap
}

// fakeReplay records the calls the handlers make.
type fakeReplay struct {
	mu sync.Mutex

	status   replay.Status
	timeline replay.Timeline
	frames   map[int]replay.Frame
	current  *replay.Frame
	loadErr  error

	windows []feed.Window
	recent  []time.Duration
	filters []string
	speeds  []int
	steps   []int
	scrubs  []int
	calls   []string
}

var _ ReplayController = (*fakeReplay)(nil)

func (f *fakeReplay) record(call string) replay.Status {
	f.calls = append(f.calls, call)
	return f.status
}

func (f *fakeReplay) Status() replay.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeReplay) Timeline() replay.Timeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeline
}

func (f *fakeReplay) Reconstruct(i int) (replay.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame, ok := f.frames[i]
	if !ok {
		return replay.Frame{}, replay.ErrFrameOutOfRange
	}
	return frame, nil
}

func (f *fakeReplay) Current() (replay.Frame, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return replay.Frame{}, false
	}
	return *f.current, true
}

func (f *fakeReplay) SetWindow(ctx context.Context, w feed.Window) (replay.Status, error) {
	f.mu.Lock()
	f.windows = append(f.windows, w)
	st, loadErr := f.status, f.loadErr
	f.mu.Unlock()

	if w.To.Before(w.From) {
		return replay.Status{}, replay.ErrInvalidWindow
	}
	if errors.Is(loadErr, context.DeadlineExceeded) {
		<-ctx.Done()
		return st, ctx.Err()
	}
	return st, loadErr
}

func (f *fakeReplay) SetRecentWindow(_ context.Context, d time.Duration, entityID string) (replay.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, d)
	f.filters = append(f.filters, entityID)
	return f.status, f.loadErr
}

func (f *fakeReplay) SetFilter(_ context.Context, entityID string) (replay.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, entityID)
	return f.status, f.loadErr
}

func (f *fakeReplay) Play() replay.Status   { f.mu.Lock(); defer f.mu.Unlock(); return f.record("play") }
func (f *fakeReplay) Pause() replay.Status  { f.mu.Lock(); defer f.mu.Unlock(); return f.record("pause") }
func (f *fakeReplay) Toggle() replay.Status { f.mu.Lock(); defer f.mu.Unlock(); return f.record("toggle") }

func (f *fakeReplay) SetSpeed(speed int) replay.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds = append(f.speeds, speed)
	return f.record("speed")
}

func (f *fakeReplay) Step(delta int) replay.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, delta)
	return f.record("step")
}

func (f *fakeReplay) Scrub(index int) replay.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrubs = append(f.scrubs, index)
	return f.record("scrub")
}

// envelope mirrors APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// newTestRouter returns the full route tree over deps.
func newTestRouter(t *testing.T, deps Dependencies) (*Handler, http.Handler) {
	t.Helper()
	if deps.Views == nil {
		deps.Views = &fakeViews{}
	}
	if deps.Replay == nil {
		deps.Replay = &fakeReplay{}
	}
	cfg := testConfig()
	h := NewHandler(cfg, deps)
	h.now = func() time.Time { return t0 }
	return h, NewRouter(h, cfg.Server).SetupChi()
}

// do runs one request against handler and decodes the envelope.
func do(t *testing.T, handler http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v (body %q)", method, path, err, rec.Body.String())
	}
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (data %s)", err, env.Data)
	}
	return v
}

func ptr[T any](v T) *T { return &v }
