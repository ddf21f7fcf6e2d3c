// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// LiveClient keeps a websocket open to the push endpoint and turns every
// well-formed message into a Sighting.
//
// Malformed messages are dropped. When the connection fails or closes the
// client reports itself disconnected and redials with exponential backoff
// (ReconnectInitial doubling up to ReconnectMax); the backoff resets once a
// connection opens.
type LiveClient struct {
	wsURL string
	cfg   config.LiveConfig
	log   zerolog.Logger
	now   func() time.Time

	connected atomic.Bool
	messages  atomic.Uint64

	connMu sync.Mutex
	conn   *websocket.Conn

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	callbackMu    sync.RWMutex
	onSighting    func(models.Sighting)
	onStateChange func(connected bool)
}

// NewLiveClient creates a client for wsURL. Nothing is dialed until Start.
func NewLiveClient(wsURL string, cfg config.LiveConfig) *LiveClient {
	return &LiveClient{
		wsURL: wsURL,
		cfg:   cfg,
		log:   logging.WithComponent("live-feed"),
		now:   time.Now,
	}
}

// SetCallbacks registers the sighting and connection-state callbacks. Both
// run on the read goroutine and must not block for long.
func (c *LiveClient) SetCallbacks(onSighting func(models.Sighting), onStateChange func(connected bool)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onSighting = onSighting
	c.onStateChange = onStateChange
}

// IsConnected reports whether a connection is currently open.
func (c *LiveClient) IsConnected() bool {
	return c.connected.Load()
}

// MessageCount returns the number of messages decoded since creation.
func (c *LiveClient) MessageCount() uint64 {
	return c.messages.Load()
}

// Start launches the connect/read/reconnect loop.
func (c *LiveClient) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.stopChan = make(chan struct{})
	stop := c.stopChan
	c.mu.Unlock()

	c.log.Info().Str("url", c.wsURL).Msg("Starting live feed client")

	c.wg.Add(1)
	go c.run(ctx, stop)
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (c *LiveClient) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopChan)
	c.mu.Unlock()

	c.closeConnection()
	c.wg.Wait()
	c.log.Info().Msg("Live feed client stopped")
}

func (c *LiveClient) run(ctx context.Context, stop <-chan struct{}) {
	defer c.wg.Done()

	delay := c.cfg.ReconnectInitial
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		conn, err := c.dial(ctx)
		if err == nil {
			delay = c.cfg.ReconnectInitial
			c.setConnected(true)
			c.readLoop(ctx, stop, conn)
			c.closeConnection()
			c.setConnected(false)
		} else if ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("Dial failed")
		}

		c.log.Info().Dur("delay", delay).Msg("Connection lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(delay):
		}
		metrics.LiveReconnectAttempts.Inc()
		delay *= 2
		if delay > c.cfg.ReconnectMax {
			delay = c.cfg.ReconnectMax
		}
	}
}

func (c *LiveClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  c.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.DialContext(ctx, c.wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.log.Info().Str("url", c.wsURL).Msg("Connected")
	return conn, nil
}

// readLoop reads until the connection fails, ctx ends or Stop is called.
func (c *LiveClient) readLoop(ctx context.Context, stop <-chan struct{}, conn *websocket.Conn) {
	extend := func() {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	done := make(chan struct{})
	var pinger sync.WaitGroup
	pinger.Add(1)
	go func() {
		defer pinger.Done()
		c.keepAlive(ctx, stop, done, conn)
	}()
	defer func() {
		close(done)
		pinger.Wait()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.log.Info().Msg("Connection closed by server")
			default:
				c.log.Warn().Err(err).Msg("Read error")
			}
			return
		}
		extend()
		c.handleMessage(data)
	}
}

// keepAlive pings on PingInterval and closes conn when ctx ends or Stop is
// called, which unblocks ReadMessage.
func (c *LiveClient) keepAlive(ctx context.Context, stop <-chan struct{}, done <-chan struct{}, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-stop:
			_ = conn.Close()
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.HandshakeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug().Err(err).Msg("Ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *LiveClient) handleMessage(data []byte) {
	s, err := models.DecodeSighting(data, c.now())
	if err != nil {
		metrics.LiveDecodeFailures.Inc()
		c.log.Debug().Err(err).Msg("Dropping malformed message")
		return
	}

	c.messages.Add(1)
	metrics.LiveMessagesTotal.Inc()

	c.callbackMu.RLock()
	callback := c.onSighting
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(s)
	}
}

func (c *LiveClient) setConnected(connected bool) {
	if c.connected.Swap(connected) == connected {
		return
	}
	metrics.SetLiveConnected(connected)

	c.callbackMu.RLock()
	callback := c.onStateChange
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(connected)
	}
}

func (c *LiveClient) closeConnection() {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = c.conn.Close()
	c.conn = nil
}
