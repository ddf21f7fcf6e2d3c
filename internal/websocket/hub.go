// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
	"github.com/tomtom215/altivion/internal/replay"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeSighting    = "sighting"
	MessageTypeViewUpdated = "view_updated"
	MessageTypeConnection  = "connection"
	MessageTypeReplayState = "replay_state"
	MessageTypeReplayFrame = "replay_frame"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ViewUpdatedData summarizes a merger publication.
type ViewUpdatedData struct {
	Version   uint64 `json:"version"`
	Entities  int    `json:"entities"`
	Points    int    `json:"points"`
	Timestamp string `json:"timestamp"`
}

// ConnectionData reports the upstream push feed state.
type ConnectionData struct {
	Connected bool   `json:"connected"`
	Degraded  bool   `json:"degraded"`
	Timestamp string `json:"timestamp"`
}

// ReplayFrameData carries the replay status and the reconstructed frame.
type ReplayFrameData struct {
	Status replay.Status `json:"status"`
	Frame  *replay.Frame `json:"frame,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger

	// replayMu orders replay messages; lastReplaySeq is the newest sent.
	replayMu      sync.Mutex
	lastReplaySeq uint64
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        logging.WithComponent("websocket-hub"),
	}
}

// RunWithContext runs the hub until ctx is cancelled, then closes every
// client and returns ctx.Err().
//
// Selection is prioritized: shutdown first, then client lifecycle events,
// then broadcasts, so client state is settled before a message goes out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.log.Info().Str("client_id", client.label).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.log.Info().Str("client_id", client.label).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown. The context
// error is not logged as an error; cancellation is the expected path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	h.log.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients sends a message to all clients in id order. Clients
// whose buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.WithLabelValues(message.Type).Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
		h.log.Warn().Str("client_id", client.label).Msg("dropping slow websocket client")
	}
	metrics.WSConnections.Set(float64(len(h.clients)))
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastJSON queues a message for all clients. It never blocks; when the
// broadcast buffer is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		h.log.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastSighting sends one merged live sighting.
func (h *Hub) BroadcastSighting(s *models.Sighting) {
	h.BroadcastJSON(MessageTypeSighting, s)
}

// BroadcastViewUpdated sends a summary of v.
func (h *Hub) BroadcastViewUpdated(v *merger.View) {
	h.BroadcastJSON(MessageTypeViewUpdated, ViewUpdatedData{
		Version:   v.Version,
		Entities:  len(v.Latest),
		Points:    v.PointCount(),
		Timestamp: v.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// BroadcastConnection sends the push feed state.
func (h *Hub) BroadcastConnection(connected, degraded bool) {
	h.BroadcastJSON(MessageTypeConnection, ConnectionData{
		Connected: connected,
		Degraded:  degraded,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// OnMergerChange forwards merger publications. It matches Merger.SetOnChange.
func (h *Hub) OnMergerChange(c merger.Change) {
	switch c.Kind {
	case merger.ChangeSighting:
		if c.Sighting != nil {
			h.BroadcastSighting(c.Sighting)
		}
	case merger.ChangeConnection:
		h.BroadcastConnection(c.View.Connected, c.View.Degraded)
	default:
		h.BroadcastViewUpdated(c.View)
	}
}

// OnReplayChange forwards replay changes. It matches Engine.SetOnChange.
// Changes older than the last one forwarded are dropped, so a late
// callback cannot replace a newer frame on the clients.
func (h *Hub) OnReplayChange(c replay.Change) {
	h.replayMu.Lock()
	defer h.replayMu.Unlock()

	if seq := c.Status.Seq; seq != 0 {
		if seq <= h.lastReplaySeq {
			metrics.WSErrors.WithLabelValues("stale_replay_change").Inc()
			return
		}
		h.lastReplaySeq = seq
	}

	if c.Kind == replay.ChangeState {
		h.BroadcastJSON(MessageTypeReplayState, c.Status)
		return
	}
	h.BroadcastJSON(MessageTypeReplayFrame, ReplayFrameData{Status: c.Status, Frame: c.Frame})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
