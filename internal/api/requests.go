// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies. Every body here is a handful of fields.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// WindowRequest selects a replay window. Either both bounds are given, or
// neither; without bounds the window is the last Minutes minutes, or the
// configured default window when Minutes is zero.
type WindowRequest struct {
	From     *time.Time `json:"from" validate:"required_with=To"`
	To       *time.Time `json:"to" validate:"required_with=From"`
	Minutes  int        `json:"minutes" validate:"omitempty,min=1,max=10080"`
	EntityID string     `json:"entity_id" validate:"omitempty,entityid"`
}

// SpeedRequest sets the playback speed. Values above the configured
// maximum are clamped.
type SpeedRequest struct {
	Speed int `json:"speed" validate:"min=1"`
}

// StepRequest moves the frame index. A missing delta steps forward by one.
type StepRequest struct {
	Delta *int `json:"delta" validate:"omitempty,ne=0"`
}

// ScrubRequest jumps to a frame. The engine clamps indexes outside the
// timeline, so negative values are accepted.
type ScrubRequest struct {
	Index *int `json:"index" validate:"required"`
}

// FilterRequest changes the entity filter. An empty id removes it.
type FilterRequest struct {
	EntityID string `json:"entity_id" validate:"omitempty,entityid"`
}

// decodeJSONBody decodes r's body into dst. An empty body is errEmptyBody;
// unknown fields and trailing data are rejected.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
