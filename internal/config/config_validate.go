// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateSource,
		c.validateBaseline,
		c.validateLive,
		c.validateMerge,
		c.validateReplay,
		c.validateBreaker,
		c.validateServer,
		c.validateEvents,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.BaseURL == "" {
		return errors.New("SOURCE_URL is required")
	}
	if err := validateURL(c.Source.BaseURL, "SOURCE_URL", "http", "https"); err != nil {
		return err
	}
	if c.Source.WSURL != "" {
		if err := validateURL(c.Source.WSURL, "SOURCE_WS_URL", "ws", "wss"); err != nil {
			return err
		}
	}
	if c.Source.RequestTimeout <= 0 {
		return errors.New("SOURCE_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateBaseline() error {
	if c.Baseline.Interval <= 0 {
		return errors.New("BASELINE_INTERVAL must be positive")
	}
	if c.Baseline.LatestMinutes < 1 {
		return errors.New("BASELINE_LATEST_MINUTES must be at least 1")
	}
	if c.Baseline.TracksMinutes < 1 {
		return errors.New("BASELINE_TRACKS_MINUTES must be at least 1")
	}
	if c.Baseline.MaxPoints < 1 {
		return errors.New("BASELINE_MAX_POINTS must be at least 1")
	}
	return nil
}

func (c *Config) validateLive() error {
	if c.Live.ReconnectInitial <= 0 {
		return errors.New("LIVE_RECONNECT_INITIAL must be positive")
	}
	if c.Live.ReconnectMax < c.Live.ReconnectInitial {
		return fmt.Errorf("LIVE_RECONNECT_MAX (%v) must not be below LIVE_RECONNECT_INITIAL (%v)",
			c.Live.ReconnectMax, c.Live.ReconnectInitial)
	}
	if c.Live.HandshakeTimeout <= 0 {
		return errors.New("LIVE_HANDSHAKE_TIMEOUT must be positive")
	}
	if c.Live.PingInterval <= 0 {
		return errors.New("LIVE_PING_INTERVAL must be positive")
	}
	if c.Live.ReadTimeout <= c.Live.PingInterval {
		return errors.New("LIVE_READ_TIMEOUT must be longer than LIVE_PING_INTERVAL")
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.PathCapacity < 1 {
		return errors.New("PATH_CAPACITY must be at least 1")
	}
	if c.Merge.DegradedInterval <= 0 {
		return errors.New("DEGRADED_POLL_INTERVAL must be positive")
	}
	if c.Merge.DegradedMinutes < 1 {
		return errors.New("DEGRADED_POLL_MINUTES must be at least 1")
	}
	if c.Merge.OnlineWindow <= 0 {
		return errors.New("ONLINE_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateReplay() error {
	if c.Replay.MaxSpeed < 1 {
		return errors.New("REPLAY_MAX_SPEED must be at least 1")
	}
	if c.Replay.DefaultSpeed < 1 || c.Replay.DefaultSpeed > c.Replay.MaxSpeed {
		return fmt.Errorf("REPLAY_DEFAULT_SPEED must be between 1 and %d", c.Replay.MaxSpeed)
	}
	if c.Replay.DefaultWindow <= 0 {
		return errors.New("REPLAY_DEFAULT_WINDOW must be positive")
	}
	if c.Replay.MaxPoints < 1 {
		return errors.New("REPLAY_MAX_POINTS must be at least 1")
	}
	if c.Replay.LoadRate <= 0 {
		return errors.New("REPLAY_LOAD_RATE must be positive")
	}
	if c.Replay.LoadBurst < 1 {
		return errors.New("REPLAY_LOAD_BURST must be at least 1")
	}
	if c.Replay.CacheSize < 0 {
		return errors.New("REPLAY_CACHE_SIZE must not be negative")
	}
	if c.Replay.CacheSize > 0 && c.Replay.CacheTTL <= 0 {
		return errors.New("REPLAY_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Subject == "" || strings.ContainsAny(c.Events.Subject, " \t*>") {
		return fmt.Errorf("EVENTS_SUBJECT %q must be a non-empty subject without wildcards or whitespace", c.Events.Subject)
	}
	if c.Events.BufferSize < 1 {
		return errors.New("EVENTS_BUFFER_SIZE must be at least 1")
	}
	if c.Events.Embedded {
		if c.Events.EmbeddedPort < 1 || c.Events.EmbeddedPort > 65535 {
			return fmt.Errorf("EVENTS_EMBEDDED_PORT must be between 1 and 65535, got %d", c.Events.EmbeddedPort)
		}
		return nil
	}
	return validateURL(c.Events.URL, "EVENTS_URL", "nats", "tls")
}

func (c *Config) validateBreaker() error {
	if c.Breaker.MaxRequests < 1 {
		return errors.New("BREAKER_MAX_REQUESTS must be at least 1")
	}
	if c.Breaker.Timeout <= 0 {
		return errors.New("BREAKER_TIMEOUT must be positive")
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return errors.New("BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	if c.Server.RateLimitRequests < 0 {
		return errors.New("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return errors.New("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
