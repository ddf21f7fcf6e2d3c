// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package events

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
)

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 100, FailureRatio: 1}
}

func startServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv, err := NewEmbeddedServer("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestPublisher_RoundTripThroughEmbeddedServer(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	if !srv.Running() {
		t.Fatal("embedded server not running")
	}

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync(testSubject)
	if err != nil {
		t.Fatalf("SubscribeSync: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	pub, err := NewPublisher(srv.ClientURL(), testBreakerConfig(), NewLogger(logging.WithComponent("events-test")))
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	s := sighting("DR-7", 3)
	msg, err := newSightingMessage(&s)
	if err != nil {
		t.Fatalf("newSightingMessage: %v", err)
	}
	if err := pub.Publish(testSubject, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg: %v", err)
	}
	if string(got.Data) != string(msg.Payload) {
		t.Errorf("data = %s, want %s", got.Data, msg.Payload)
	}
	if id := msg.Metadata.Get(natsgo.MsgIdHdr); id != msg.UUID {
		t.Errorf("Nats-Msg-Id = %q, want message UUID %q", id, msg.UUID)
	}
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	pub, err := NewPublisher(srv.ClientURL(), testBreakerConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))
	if err := pub.Publish(testSubject, msg); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish after Close = %v, want ErrPublisherClosed", err)
	}
}
