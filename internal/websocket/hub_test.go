// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/models"
	"github.com/tomtom215/altivion/internal/replay"
)

//nolint:gochecknoinits // keep hub logs out of test output
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

// startHub runs a hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// testClient returns a connectionless client registered with hub.
func testClient(t *testing.T, hub *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{id: clientIDCounter.Add(1), label: "test", hub: hub, send: make(chan Message, buffer)}
	hub.Register <- c
	waitFor(t, func() bool { return hub.GetClientCount() >= 1 }, "client registered")
	return c
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	a := testClient(t, hub, 8)
	b := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 8)}
	hub.Register <- b
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "two clients")

	hub.BroadcastJSON("custom", map[string]int{"n": 1})

	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != "custom" {
			t.Errorf("message type = %q, want custom", msg.Type)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	c := testClient(t, hub, 8)

	hub.Unregister <- c
	waitFor(t, func() bool { return hub.GetClientCount() == 0 }, "client removed")
	if _, ok := <-c.send; ok {
		t.Error("send channel still open after unregister")
	}

	// Unregistering twice must not panic on a closed channel.
	hub.Unregister <- c
}

func TestHub_DropsSlowClient(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	slow := testClient(t, hub, 1)

	hub.BroadcastJSON("one", nil)
	hub.BroadcastJSON("two", nil)

	waitFor(t, func() bool { return hub.GetClientCount() == 0 }, "slow client dropped")
	if msg := <-slow.send; msg.Type != "one" {
		t.Errorf("first message = %q, want one", msg.Type)
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel not closed")
	}
}

func TestHub_OnMergerChange(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	c := testClient(t, hub, 8)

	s := models.Sighting{EntityID: "D1", Timestamp: time.Now(), Latitude: 1, Longitude: 2}
	view := &merger.View{
		Latest:    map[string]models.Sighting{"D1": s},
		Paths:     map[string][]models.TrackPoint{"D1": {s.Point()}},
		Connected: true,
		Version:   7,
		UpdatedAt: time.Now(),
	}

	hub.OnMergerChange(merger.Change{Kind: merger.ChangeSighting, View: view, Sighting: &s})
	hub.OnMergerChange(merger.Change{Kind: merger.ChangeView, View: view})
	hub.OnMergerChange(merger.Change{Kind: merger.ChangeConnection, View: view})

	if msg := receive(t, c); msg.Type != MessageTypeSighting {
		t.Errorf("first type = %q", msg.Type)
	}
	msg := receive(t, c)
	if msg.Type != MessageTypeViewUpdated {
		t.Fatalf("second type = %q", msg.Type)
	}
	if data, ok := msg.Data.(ViewUpdatedData); !ok || data.Version != 7 || data.Entities != 1 || data.Points != 1 {
		t.Errorf("view data = %#v", msg.Data)
	}
	msg = receive(t, c)
	if data, ok := msg.Data.(ConnectionData); msg.Type != MessageTypeConnection || !ok || !data.Connected {
		t.Errorf("connection message = %#v", msg)
	}
}

func TestHub_OnReplayChange(t *testing.T) {
	t.Parallel()

	hub := startHub(t)
	c := testClient(t, hub, 8)

	frame := replay.Frame{Index: 2, Entities: []replay.EntityFrame{{EntityID: "D1"}}}
	hub.OnReplayChange(replay.Change{Kind: replay.ChangeState, Status: replay.Status{State: replay.StateLoaded, Seq: 1}})
	hub.OnReplayChange(replay.Change{Kind: replay.ChangeFrame, Status: replay.Status{FrameIndex: 2, Seq: 3}, Frame: &frame})
	// Applied before seq 3 but delivered after it.
	hub.OnReplayChange(replay.Change{Kind: replay.ChangeFrame, Status: replay.Status{FrameIndex: 1, Seq: 2}})
	hub.OnReplayChange(replay.Change{Kind: replay.ChangeFrame, Status: replay.Status{FrameIndex: 0, Seq: 4}})

	if msg := receive(t, c); msg.Type != MessageTypeReplayState {
		t.Errorf("first type = %q", msg.Type)
	}
	msg := receive(t, c)
	data, ok := msg.Data.(ReplayFrameData)
	if msg.Type != MessageTypeReplayFrame || !ok || data.Frame == nil || data.Frame.Index != 2 {
		t.Fatalf("frame message = %#v", msg)
	}
	msg = receive(t, c)
	data, ok = msg.Data.(ReplayFrameData)
	if !ok || data.Status.Seq != 4 || data.Frame != nil {
		t.Errorf("after stale change got %#v, want seq 4 without frame", msg)
	}
}

func TestHub_RunWithContextClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := testClient(t, hub, 8)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel not closed on shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after shutdown", hub.GetClientCount())
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()

	if got := getShutdownReason(cancelled); got != ShutdownReasonContextCanceled {
		t.Errorf("cancelled = %q", got)
	}
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("expired = %q", got)
	}
}

func TestMarshalMessage(t *testing.T) {
	t.Parallel()

	h := 12.5
	payload, err := MarshalMessage(Message{Type: MessageTypeSighting, Data: models.Sighting{
		EntityID:  "D1",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		HeightM:   &h,
	}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data := decoded["data"].(map[string]any)
	if decoded["type"] != "sighting" || data["entity_id"] != "D1" || data["height_m"] != 12.5 {
		t.Errorf("payload = %s", payload)
	}
	if v, ok := data["heading_deg"]; !ok || v != nil {
		t.Errorf("heading_deg = %v (present %v), want explicit null", v, ok)
	}
}
