// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/altivion/internal/models"
)

// ErrUnexpectedStatus is wrapped by every non-200 response error.
var ErrUnexpectedStatus = errors.New("unexpected status")

// isoMillis is the timestamp format sent in window queries.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 512

// Source is the REST side of the upstream service. HTTPClient and
// CircuitBreakerClient both implement it.
type Source interface {
	Latest(ctx context.Context, minutes int) (*LatestResult, error)
	Tracks(ctx context.Context, minutes, maxPoints int) (*TracksResult, error)
	TracksWindow(ctx context.Context, q WindowQuery) (*TracksResult, error)
}

var _ Source = (*HTTPClient)(nil)

// LatestResult is a decoded /latest response.
type LatestResult struct {
	Sightings []models.Sighting
	// Dropped counts records rejected during decoding.
	Dropped int
}

// TracksResult is a decoded /tracks or /tracks_window response.
type TracksResult struct {
	Tracks  []models.Track
	Dropped int
}

// WindowQuery selects tracks in [From, To), optionally for one entity.
type WindowQuery struct {
	From      time.Time
	To        time.Time
	EntityID  string
	MaxPoints int
}

// HTTPClient calls the upstream REST endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for baseURL (trailing slash ignored).
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Latest fetches the latest sighting per entity within the last minutes.
func (c *HTTPClient) Latest(ctx context.Context, minutes int) (*LatestResult, error) {
	params := url.Values{}
	params.Set("minutes", strconv.Itoa(minutes))

	body, err := c.get(ctx, "/latest", params)
	if err != nil {
		return nil, fmt.Errorf("latest request failed: %w", err)
	}

	sightings, dropped, err := models.DecodeSightings(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode latest: %w", err)
	}
	return &LatestResult{Sightings: sightings, Dropped: dropped}, nil
}

// Tracks fetches per-entity paths within the last minutes, at most
// maxPoints samples per entity.
func (c *HTTPClient) Tracks(ctx context.Context, minutes, maxPoints int) (*TracksResult, error) {
	params := url.Values{}
	params.Set("minutes", strconv.Itoa(minutes))
	params.Set("max_points", strconv.Itoa(maxPoints))

	body, err := c.get(ctx, "/tracks", params)
	if err != nil {
		return nil, fmt.Errorf("tracks request failed: %w", err)
	}

	tracks, dropped, err := models.DecodeTracks(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}
	return &TracksResult{Tracks: tracks, Dropped: dropped}, nil
}

// TracksWindow fetches paths for an explicit window.
func (c *HTTPClient) TracksWindow(ctx context.Context, q WindowQuery) (*TracksResult, error) {
	params := url.Values{}
	params.Set("from", q.From.UTC().Format(isoMillis))
	params.Set("to", q.To.UTC().Format(isoMillis))
	if q.EntityID != "" {
		params.Set("sn", q.EntityID)
	}
	if q.MaxPoints > 0 {
		params.Set("max_points", strconv.Itoa(q.MaxPoints))
	}

	body, err := c.get(ctx, "/tracks_window", params)
	if err != nil {
		return nil, fmt.Errorf("tracks_window request failed: %w", err)
	}

	tracks, dropped, err := models.DecodeTracks(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tracks_window: %w", err)
	}
	return &TracksResult{Tracks: tracks, Dropped: dropped}, nil
}

// get performs a GET and returns the body of a 200 response.
func (c *HTTPClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
