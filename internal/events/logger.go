// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// Logger adapts zerolog to watermill.LoggerAdapter.
type Logger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = (*Logger)(nil)

// NewLogger wraps logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Error implements watermill.LoggerAdapter.
func (l *Logger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]any(fields)).Msg(msg)
}

// Info implements watermill.LoggerAdapter.
func (l *Logger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info().Fields(map[string]any(fields)).Msg(msg)
}

// Debug implements watermill.LoggerAdapter.
func (l *Logger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]any(fields)).Msg(msg)
}

// Trace implements watermill.LoggerAdapter.
func (l *Logger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]any(fields)).Msg(msg)
}

// With implements watermill.LoggerAdapter.
func (l *Logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &Logger{logger: l.logger.With().Fields(map[string]any(fields)).Logger()}
}
