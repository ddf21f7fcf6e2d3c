// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Source   SourceConfig   `koanf:"source"`
	Baseline BaselineConfig `koanf:"baseline"`
	Live     LiveConfig     `koanf:"live"`
	Merge    MergeConfig    `koanf:"merge"`
	Replay   ReplayConfig   `koanf:"replay"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Server   ServerConfig   `koanf:"server"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// SourceConfig points at the upstream sighting service.
type SourceConfig struct {
	// BaseURL serves /latest, /tracks and /tracks_window.
	BaseURL string `koanf:"base_url"`

	// WSURL is the push endpoint. Empty derives it from BaseURL.
	WSURL string `koanf:"ws_url"`

	// RequestTimeout bounds every REST call.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// WebSocketURL returns WSURL, or BaseURL with a ws/wss scheme and /ws appended.
func (s *SourceConfig) WebSocketURL() string {
	if s.WSURL != "" {
		return s.WSURL
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = ""
	return u.String()
}

// BaselineConfig controls the periodic latest + tracks poll.
type BaselineConfig struct {
	Interval      time.Duration `koanf:"interval"`
	LatestMinutes int           `koanf:"latest_minutes"`
	TracksMinutes int           `koanf:"tracks_minutes"`

	// MaxPoints caps the samples per entity requested from /tracks.
	MaxPoints int `koanf:"max_points"`
}

// LiveConfig controls the push feed connection.
type LiveConfig struct {
	ReconnectInitial time.Duration `koanf:"reconnect_initial"`
	ReconnectMax     time.Duration `koanf:"reconnect_max"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`

	// ReadTimeout is extended by every message and pong. A connection that
	// stays silent longer is treated as dropped.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	PingInterval time.Duration `koanf:"ping_interval"`
}

// MergeConfig controls the state merger.
type MergeConfig struct {
	PathCapacity     int           `koanf:"path_capacity"`
	DegradedInterval time.Duration `koanf:"degraded_interval"`
	DegradedMinutes  int           `koanf:"degraded_minutes"`

	// OnlineWindow is how recent a latest sighting must be for the entity
	// to count as online in status reports. It never removes entries.
	OnlineWindow time.Duration `koanf:"online_window"`
}

// ReplayConfig controls window loading and playback.
type ReplayConfig struct {
	DefaultSpeed  int           `koanf:"default_speed"`
	MaxSpeed      int           `koanf:"max_speed"`
	DefaultWindow time.Duration `koanf:"default_window"`
	MaxPoints     int           `koanf:"max_points"`

	// LoadRate and LoadBurst pace /tracks_window requests.
	LoadRate  float64 `koanf:"load_rate"`
	LoadBurst int     `koanf:"load_burst"`

	// CacheSize is the number of loaded historical windows kept in memory.
	// Zero disables the cache.
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// BreakerConfig configures the circuit breaker around the REST source.
type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed origins. Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Addr returns host:port for net/http.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EventsConfig controls the optional export of merged live sightings to NATS.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// Subject receives one message per merged live sighting.
	Subject string `koanf:"subject"`

	// BufferSize bounds the export queue. Sightings arriving while it is
	// full are dropped.
	BufferSize int `koanf:"buffer_size"`

	// Embedded starts an in-process NATS server on EmbeddedHost:EmbeddedPort
	// and publishes to it instead of URL.
	Embedded     bool   `koanf:"embedded"`
	EmbeddedHost string `koanf:"embedded_host"`
	EmbeddedPort int    `koanf:"embedded_port"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}
