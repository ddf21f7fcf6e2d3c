// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package models

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNotArray is returned when a list endpoint does not answer with a JSON array.
	ErrNotArray = errors.New("payload is not a JSON array")

	// ErrMissingEntityID is returned for records without sn/entity_id.
	ErrMissingEntityID = errors.New("missing entity id")

	// ErrMissingCoordinates is returned for records without numeric, finite lat/lon.
	ErrMissingCoordinates = errors.New("missing or non-finite coordinates")

	// ErrMissingTimestamp is returned when a record has no timestamp and no fallback applies.
	ErrMissingTimestamp = errors.New("missing timestamp")
)

// wireSighting is the upstream record. The source uses the short names; the
// long names are accepted so records can be replayed from our own API.
// Fields stay raw so a badly typed optional cannot reject the record: only
// the entity id and the coordinates decide acceptance.
type wireSighting struct {
	SN                 json.RawMessage `json:"sn"`
	EntityID           json.RawMessage `json:"entity_id"`
	TS                 json.RawMessage `json:"ts"`
	Timestamp          json.RawMessage `json:"timestamp"`
	Lat                json.RawMessage `json:"lat"`
	Latitude           json.RawMessage `json:"latitude"`
	Lon                json.RawMessage `json:"lon"`
	Longitude          json.RawMessage `json:"longitude"`
	HeightM            json.RawMessage `json:"height_m"`
	SpeedHMPS          json.RawMessage `json:"speed_h_mps"`
	HorizontalSpeedMPS json.RawMessage `json:"horizontal_speed_mps"`
	DirectionDeg       json.RawMessage `json:"direction_deg"`
	HeadingDeg         json.RawMessage `json:"heading_deg"`
}

type wirePoint struct {
	TS        *string  `json:"ts"`
	Timestamp *string  `json:"timestamp"`
	Lat       *float64 `json:"lat"`
	Latitude  *float64 `json:"latitude"`
	Lon       *float64 `json:"lon"`
	Longitude *float64 `json:"longitude"`
}

type wireTrack struct {
	SN       string            `json:"sn"`
	EntityID string            `json:"entity_id"`
	Points   []json.RawMessage `json:"points"`
}

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an upstream timestamp. Fractional seconds are optional
// in every layout.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// DecodeSighting decodes one sighting record. When the record carries no
// usable timestamp (absent, null, blank or not a string or number),
// fallback is used; a zero fallback makes that an error. A timestamp string
// that is present but unparsable is always an error. Numeric timestamps are
// Unix seconds, or milliseconds when too large to be seconds. Optional
// fields of the wrong type decode as unknown.
func DecodeSighting(data []byte, fallback time.Time) (Sighting, error) {
	var w wireSighting
	if err := json.Unmarshal(data, &w); err != nil {
		return Sighting{}, fmt.Errorf("decode sighting: %w", err)
	}

	s := Sighting{
		EntityID:           rawString(firstRaw(w.SN, w.EntityID)),
		HeightM:            rawFloat(w.HeightM),
		HorizontalSpeedMPS: rawFloat(firstRaw(w.SpeedHMPS, w.HorizontalSpeedMPS)),
		HeadingDeg:         rawFloat(firstRaw(w.DirectionDeg, w.HeadingDeg)),
	}
	if s.EntityID == "" {
		return Sighting{}, ErrMissingEntityID
	}

	lat, lon := rawFloat(firstRaw(w.Lat, w.Latitude)), rawFloat(firstRaw(w.Lon, w.Longitude))
	if lat == nil || lon == nil {
		return Sighting{}, ErrMissingCoordinates
	}
	s.Latitude, s.Longitude = *lat, *lon

	ts, ok, err := rawTimestamp(firstRaw(w.TS, w.Timestamp))
	switch {
	case err != nil:
		return Sighting{}, err
	case ok:
		s.Timestamp = ts
	case !fallback.IsZero():
		s.Timestamp = fallback.UTC()
	default:
		return Sighting{}, ErrMissingTimestamp
	}

	return s, nil
}

// DecodeSightings decodes an array of sighting records. Records that fail to
// decode are skipped and counted in dropped. Only a payload that is not an
// array is an error.
func DecodeSightings(data []byte) (sightings []Sighting, dropped int, err error) {
	raw, err := splitArray(data)
	if err != nil {
		return nil, 0, err
	}

	sightings = make([]Sighting, 0, len(raw))
	for _, r := range raw {
		s, err := DecodeSighting(r, time.Time{})
		if err != nil {
			dropped++
			continue
		}
		sightings = append(sightings, s)
	}
	return sightings, dropped, nil
}

// DecodeTracks decodes an array of {sn, points:[{ts,lat,lon}]} records.
// Points with an empty or unparsable timestamp or invalid coordinates are
// skipped and counted in dropped, as are tracks without an entity id. The
// surviving points of each track are sorted by timestamp.
func DecodeTracks(data []byte) (tracks []Track, dropped int, err error) {
	raw, err := splitArray(data)
	if err != nil {
		return nil, 0, err
	}

	tracks = make([]Track, 0, len(raw))
	for _, r := range raw {
		var w wireTrack
		if err := json.Unmarshal(r, &w); err != nil {
			dropped++
			continue
		}
		id := firstString(w.SN, w.EntityID)
		if id == "" {
			dropped++
			continue
		}

		track := Track{EntityID: id, Points: make([]TrackPoint, 0, len(w.Points))}
		for _, rp := range w.Points {
			p, err := decodePoint(rp)
			if err != nil {
				dropped++
				continue
			}
			track.Points = append(track.Points, p)
		}
		track.SortPoints()
		tracks = append(tracks, track)
	}
	return tracks, dropped, nil
}

// splitArray returns the elements of a JSON array without decoding them.
// null and every non-array value are rejected.
func splitArray(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArray, err)
	}
	return raw, nil
}

func decodePoint(data []byte) (TrackPoint, error) {
	var w wirePoint
	if err := json.Unmarshal(data, &w); err != nil {
		return TrackPoint{}, fmt.Errorf("decode point: %w", err)
	}
	ts := firstStringPtr(w.TS, w.Timestamp)
	if ts == nil {
		return TrackPoint{}, ErrMissingTimestamp
	}
	t, err := ParseTimestamp(*ts)
	if err != nil {
		return TrackPoint{}, err
	}
	lat, lon := firstFloat(w.Lat, w.Latitude), firstFloat(w.Lon, w.Longitude)
	if lat == nil || lon == nil || !finite(*lat) || !finite(*lon) {
		return TrackPoint{}, ErrMissingCoordinates
	}
	return TrackPoint{Timestamp: t, Latitude: *lat, Longitude: *lon}, nil
}

// firstRaw returns a unless it is absent or null.
func firstRaw(a, b json.RawMessage) json.RawMessage {
	if len(a) != 0 && !isNull(a) {
		return a
	}
	return b
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// rawString returns the trimmed string value, or "" for any other type.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// rawFloat returns a finite number, or nil for null, other types and
// non-finite values.
func rawFloat(raw json.RawMessage) *float64 {
	var f float64
	if len(raw) == 0 || isNull(raw) || json.Unmarshal(raw, &f) != nil || !finite(f) {
		return nil
	}
	return &f
}

// unixMillisThreshold separates Unix seconds from milliseconds; seconds
// reach it only in the year 33658.
const unixMillisThreshold = 1e12

// rawTimestamp decodes a string or numeric timestamp. ok is false when the
// value carries no timestamp at all.
func rawTimestamp(raw json.RawMessage) (ts time.Time, ok bool, err error) {
	if len(raw) == 0 || isNull(raw) {
		return time.Time{}, false, nil
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		if strings.TrimSpace(str) == "" {
			return time.Time{}, false, nil
		}
		parsed, perr := ParseTimestamp(str)
		return parsed, perr == nil, perr
	}
	var n float64
	if json.Unmarshal(raw, &n) == nil && finite(n) && n > 0 {
		if n >= unixMillisThreshold {
			return time.UnixMilli(int64(n)).UTC(), true, nil
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true, nil
	}
	return time.Time{}, false, nil
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstStringPtr(a, b *string) *string {
	if a != nil {
		return a
	}
	return b
}

func firstFloat(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
