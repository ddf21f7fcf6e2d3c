// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package events

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/altivion/internal/config"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/merger"
	"github.com/tomtom215/altivion/internal/metrics"
	"github.com/tomtom215/altivion/internal/models"
)

// Exporter publishes merged live sightings. Offer never blocks the merger;
// RunWithContext drains the queue.
type Exporter struct {
	pub     message.Publisher
	subject string
	queue   chan models.Sighting
	log     zerolog.Logger
}

// NewExporter creates an exporter publishing to cfg.Subject through pub.
func NewExporter(pub message.Publisher, cfg config.EventsConfig) *Exporter {
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	return &Exporter{
		pub:     pub,
		subject: cfg.Subject,
		queue:   make(chan models.Sighting, size),
		log:     logging.WithComponent("event-exporter"),
	}
}

// OnMergerChange queues the sighting of a ChangeSighting. Other changes
// are ignored; baseline merges are not re-exported.
func (e *Exporter) OnMergerChange(c merger.Change) {
	if c.Kind != merger.ChangeSighting || c.Sighting == nil {
		return
	}
	e.Offer(*c.Sighting)
}

// Offer queues s and reports whether it was accepted.
func (e *Exporter) Offer(s models.Sighting) bool {
	select {
	case e.queue <- s:
		metrics.EventsQueueDepth.Set(float64(len(e.queue)))
		return true
	default:
		metrics.EventsExported.WithLabelValues("dropped").Inc()
		return false
	}
}

// RunWithContext publishes queued sightings until ctx is canceled.
// Sightings still queued at that point stay queued for the next run.
func (e *Exporter) RunWithContext(ctx context.Context) error {
	e.log.Info().Str("subject", e.subject).Msg("Sighting export started")
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Int("queued", len(e.queue)).Msg("Sighting export stopped")
			return ctx.Err()
		case s := <-e.queue:
			metrics.EventsQueueDepth.Set(float64(len(e.queue)))
			e.publish(&s)
		}
	}
}

func (e *Exporter) publish(s *models.Sighting) {
	msg, err := newSightingMessage(s)
	if err != nil {
		metrics.EventsExported.WithLabelValues("error").Inc()
		e.log.Error().Err(err).Str("entity_id", s.EntityID).Msg("Failed to encode sighting")
		return
	}

	if err := e.pub.Publish(e.subject, msg); err != nil {
		metrics.EventsExported.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			e.log.Debug().Err(err).Str("entity_id", s.EntityID).Msg("Sighting export rejected by circuit breaker")
			return
		}
		e.log.Warn().Err(err).Str("entity_id", s.EntityID).Msg("Failed to publish sighting")
		return
	}
	metrics.EventsExported.WithLabelValues("published").Inc()
}

// newSightingMessage encodes s as a watermill message.
func newSightingMessage(s *models.Sighting) (*message.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("entity_id", s.EntityID)
	msg.Metadata.Set("timestamp", s.Timestamp.UTC().Format(time.RFC3339Nano))
	return msg, nil
}
