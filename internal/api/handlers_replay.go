// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/altivion/internal/feed"
	"github.com/tomtom215/altivion/internal/logging"
	"github.com/tomtom215/altivion/internal/replay"
	"github.com/tomtom215/altivion/internal/validation"
)

// ReplayStatus returns the replay status.
func (h *Handler) ReplayStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.deps.Replay.Status())
}

// ReplayFrames returns the timeline: one timestamp per frame.
func (h *Handler) ReplayFrames(w http.ResponseWriter, r *http.Request) {
	tl := h.deps.Replay.Timeline()
	if tl == nil {
		tl = replay.Timeline{}
	}
	NewResponseWriter(w, r).List(tl, len(tl))
}

// ReplayFrame reconstructs the frame at {index}.
func (h *Handler) ReplayFrame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		rw.BadRequest("frame index must be an integer")
		return
	}

	frame, err := h.deps.Replay.Reconstruct(index)
	if err != nil {
		if errors.Is(err, replay.ErrFrameOutOfRange) {
			rw.NotFound(err.Error())
			return
		}
		rw.InternalError("failed to reconstruct frame")
		return
	}
	rw.Success(frame)
}

// ReplayCurrent reconstructs the frame at the current index.
func (h *Handler) ReplayCurrent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	frame, ok := h.deps.Replay.Current()
	if !ok {
		rw.NotFound("no replay frame loaded")
		return
	}
	rw.Success(frame)
}

// ReplayWindow loads a replay window and answers with the resulting status.
// A load that outlasts the server timeout keeps running; the response is
// then 202 with the loading status.
func (h *Handler) ReplayWindow(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req WindowRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var (
		st  replay.Status
		err error
	)
	if req.From != nil && req.To != nil {
		st, err = h.deps.Replay.SetWindow(ctx, feed.Window{
			From:     req.From.UTC(),
			To:       req.To.UTC(),
			EntityID: req.EntityID,
		})
	} else {
		d := h.cfg.Replay.DefaultWindow
		if req.Minutes > 0 {
			d = time.Duration(req.Minutes) * time.Minute
		}
		st, err = h.deps.Replay.SetRecentWindow(ctx, d, req.EntityID)
	}

	h.respondLoad(rw, r, st, err)
}

// ReplayFilter reloads the current window with another entity filter.
func (h *Handler) ReplayFilter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req FilterRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	st, err := h.deps.Replay.SetFilter(ctx, req.EntityID)
	h.respondLoad(rw, r, st, err)
}

func (h *Handler) respondLoad(rw *ResponseWriter, r *http.Request, st replay.Status, err error) {
	switch {
	case err == nil:
		rw.Success(st)
	case errors.Is(err, replay.ErrInvalidWindow):
		rw.BadRequest(err.Error())
	case errors.Is(err, replay.ErrNoWindow):
		rw.Conflict(err.Error())
	case errors.Is(err, replay.ErrClosed):
		rw.ServiceUnavailable(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		rw.SuccessWithStatus(http.StatusAccepted, st)
	case errors.Is(err, context.Canceled):
		logging.Ctx(r.Context()).Debug().Msg("Client went away during window load")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Window load failed")
		rw.InternalError("window load failed")
	}
}

// requestContext bounds a blocking call by the server timeout.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.cfg.Server.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.cfg.Server.Timeout)
}

// ReplayPlay starts playback.
func (h *Handler) ReplayPlay(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.deps.Replay.Play())
}

// ReplayPause stops playback.
func (h *Handler) ReplayPause(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.deps.Replay.Pause())
}

// ReplayToggle flips between playing and paused.
func (h *Handler) ReplayToggle(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.deps.Replay.Toggle())
}

// ReplaySpeed sets the playback speed.
func (h *Handler) ReplaySpeed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SpeedRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}
	rw.Success(h.deps.Replay.SetSpeed(req.Speed))
}

// ReplayStep moves the frame index by delta, wrapping around the timeline.
func (h *Handler) ReplayStep(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req StepRequest
	if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}

	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}
	rw.Success(h.deps.Replay.Step(delta))
}

// ReplayScrub jumps to a frame index.
func (h *Handler) ReplayScrub(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ScrubRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		rw.BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr)
		return
	}
	rw.Success(h.deps.Replay.Scrub(*req.Index))
}
