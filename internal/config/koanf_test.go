// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
)

// isolate points CONFIG_PATH at a file that does not exist and runs the test
// from an empty directory so no stray config.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	return dir
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"Source.BaseURL", cfg.Source.BaseURL, "http://127.0.0.1:8000"},
		{"Source.RequestTimeout", cfg.Source.RequestTimeout, 10 * time.Second},
		{"Baseline.Interval", cfg.Baseline.Interval, 5 * time.Second},
		{"Baseline.LatestMinutes", cfg.Baseline.LatestMinutes, 120},
		{"Baseline.TracksMinutes", cfg.Baseline.TracksMinutes, 120},
		{"Baseline.MaxPoints", cfg.Baseline.MaxPoints, 4000},
		{"Live.ReconnectInitial", cfg.Live.ReconnectInitial, time.Second},
		{"Live.ReconnectMax", cfg.Live.ReconnectMax, 32 * time.Second},
		{"Merge.PathCapacity", cfg.Merge.PathCapacity, 4000},
		{"Merge.DegradedInterval", cfg.Merge.DegradedInterval, 1500 * time.Millisecond},
		{"Merge.DegradedMinutes", cfg.Merge.DegradedMinutes, 2},
		{"Replay.DefaultSpeed", cfg.Replay.DefaultSpeed, 4},
		{"Replay.MaxSpeed", cfg.Replay.MaxSpeed, 60},
		{"Replay.DefaultWindow", cfg.Replay.DefaultWindow, 5 * time.Minute},
		{"Replay.MaxPoints", cfg.Replay.MaxPoints, 20000},
		{"Server.Port", cfg.Server.Port, 8090},
		{"Logging.Level", cfg.Logging.Level, "info"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", cfg.Source.BaseURL)
	}
	if cfg.Merge.DegradedInterval != 1500*time.Millisecond {
		t.Errorf("DegradedInterval = %v", cfg.Merge.DegradedInterval)
	}
	if len(cfg.Server.CORSOrigins) != 0 {
		t.Errorf("CORSOrigins = %v, want empty", cfg.Server.CORSOrigins)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "altivion.yaml")
	content := `
source:
  base_url: http://sightings.local:9000
baseline:
  interval: 7s
replay:
  default_speed: 8
server:
  port: 9999
  cors_origins:
    - http://a.example
    - http://b.example
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, yamlPath)
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("DEGRADED_POLL_INTERVAL", "2s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.5")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source.BaseURL != "http://sightings.local:9000" {
		t.Errorf("BaseURL = %q, want file value", cfg.Source.BaseURL)
	}
	if cfg.Baseline.Interval != 7*time.Second {
		t.Errorf("Interval = %v, want 7s", cfg.Baseline.Interval)
	}
	if cfg.Replay.DefaultSpeed != 8 {
		t.Errorf("DefaultSpeed = %d, want 8", cfg.Replay.DefaultSpeed)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Port = %d, want env override 8181", cfg.Server.Port)
	}
	if cfg.Merge.DegradedInterval != 2*time.Second {
		t.Errorf("DegradedInterval = %v, want 2s", cfg.Merge.DegradedInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Breaker.FailureRatio != 0.5 {
		t.Errorf("FailureRatio = %v, want 0.5", cfg.Breaker.FailureRatio)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Replay.MaxSpeed != 60 {
		t.Errorf("MaxSpeed = %d, want default 60", cfg.Replay.MaxSpeed)
	}
}

func TestLoadCORSFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CORS_ORIGINS", "http://a.example, ,http://b.example ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"http://a.example", "http://b.example"}
	if len(cfg.Server.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Server.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Server.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("REPLAY_DEFAULT_SPEED", "90")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for default speed above max speed")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"SOURCE_URL":             "source.base_url",
		"source_ws_url":          "source.ws_url",
		"DEGRADED_POLL_INTERVAL": "merge.degraded_interval",
		"PATH_CAPACITY":          "merge.path_capacity",
		"REPLAY_MAX_SPEED":       "replay.max_speed",
		"HTTP_PORT":              "server.port",
		"LOG_FORMAT":             "logging.format",
		"HOME":                   "",
		"PATH":                   "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestProcessSliceFields(t *testing.T) {
	t.Parallel()

	k := koanf.New(".")
	if err := k.Set("server.cors_origins", "a, b,,c"); err != nil {
		t.Fatal(err)
	}
	if err := processSliceFields(k); err != nil {
		t.Fatalf("processSliceFields: %v", err)
	}
	got := k.Strings("server.cors_origins")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("cors_origins = %v", got)
	}
}
