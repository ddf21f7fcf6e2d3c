// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/altivion/config.yaml",
	"/etc/altivion/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:        "http://127.0.0.1:8000",
			WSURL:          "", // derived from BaseURL
			RequestTimeout: 10 * time.Second,
		},
		Baseline: BaselineConfig{
			Interval:      5 * time.Second,
			LatestMinutes: 120,
			TracksMinutes: 120,
			MaxPoints:     4000,
		},
		Live: LiveConfig{
			ReconnectInitial: 1 * time.Second,
			ReconnectMax:     32 * time.Second,
			HandshakeTimeout: 10 * time.Second,
			ReadTimeout:      90 * time.Second,
			PingInterval:     30 * time.Second,
		},
		Merge: MergeConfig{
			PathCapacity:     4000,
			DegradedInterval: 1500 * time.Millisecond,
			DegradedMinutes:  2,
			OnlineWindow:     15 * time.Second,
		},
		Replay: ReplayConfig{
			DefaultSpeed:  4,
			MaxSpeed:      60,
			DefaultWindow: 5 * time.Minute,
			MaxPoints:     20000,
			LoadRate:      2,
			LoadBurst:     4,
			CacheSize:     32,
			CacheTTL:      1 * time.Minute,
		},
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     1 * time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  10,
			FailureRatio: 0.6,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8090,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 300,
			RateLimitWindow:   1 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:      false,
			URL:          "nats://127.0.0.1:4222",
			Subject:      "altivion.sightings",
			BufferSize:   1024,
			Embedded:     false,
			EmbeddedHost: "127.0.0.1",
			EmbeddedPort: 4222,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment, in that order of precedence (environment wins).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice keys.
// Values from YAML are already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		trimmed := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config keys.
var envMappings = map[string]string{
	"source_url":             "source.base_url",
	"source_ws_url":          "source.ws_url",
	"source_request_timeout": "source.request_timeout",

	"baseline_interval":       "baseline.interval",
	"baseline_latest_minutes": "baseline.latest_minutes",
	"baseline_tracks_minutes": "baseline.tracks_minutes",
	"baseline_max_points":     "baseline.max_points",

	"live_reconnect_initial": "live.reconnect_initial",
	"live_reconnect_max":     "live.reconnect_max",
	"live_handshake_timeout": "live.handshake_timeout",
	"live_read_timeout":      "live.read_timeout",
	"live_ping_interval":     "live.ping_interval",

	"path_capacity":          "merge.path_capacity",
	"degraded_poll_interval": "merge.degraded_interval",
	"degraded_poll_minutes":  "merge.degraded_minutes",
	"online_window":          "merge.online_window",

	"replay_default_speed":  "replay.default_speed",
	"replay_max_speed":      "replay.max_speed",
	"replay_default_window": "replay.default_window",
	"replay_max_points":     "replay.max_points",
	"replay_load_rate":      "replay.load_rate",
	"replay_load_burst":     "replay.load_burst",
	"replay_cache_size":     "replay.cache_size",
	"replay_cache_ttl":      "replay.cache_ttl",

	"breaker_max_requests":  "breaker.max_requests",
	"breaker_interval":      "breaker.interval",
	"breaker_timeout":       "breaker.timeout",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	"events_enabled":       "events.enabled",
	"events_url":           "events.url",
	"events_subject":       "events.subject",
	"events_buffer_size":   "events.buffer_size",
	"events_embedded":      "events.embedded",
	"events_embedded_host": "events.embedded_host",
	"events_embedded_port": "events.embedded_port",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config key.
// Unknown variables map to "" and are skipped.
//
//   - SOURCE_URL -> source.base_url
//   - DEGRADED_POLL_INTERVAL -> merge.degraded_interval
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
