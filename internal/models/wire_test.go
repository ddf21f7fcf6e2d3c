// Altivion - Drone Sighting Merge and Replay Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/altivion

package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts.UTC()
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"rfc3339 utc", "2025-06-01T12:00:00Z", "2025-06-01T12:00:00Z", false},
		{"rfc3339 fraction", "2025-06-01T12:00:00.250Z", "2025-06-01T12:00:00.25Z", false},
		{"python isoformat offset", "2025-06-01T14:00:00.123456+02:00", "2025-06-01T12:00:00.123456Z", false},
		{"zone-less iso", "2025-06-01T12:00:00", "2025-06-01T12:00:00Z", false},
		{"zone-less fraction", "2025-06-01T12:00:00.5", "2025-06-01T12:00:00.5Z", false},
		{"space separated", "2025-06-01 12:00:00", "2025-06-01T12:00:00Z", false},
		{"space separated offset", "2025-06-01 12:00:00+00:00", "2025-06-01T12:00:00Z", false},
		{"surrounding space", "  2025-06-01T12:00:00Z ", "2025-06-01T12:00:00Z", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"garbage", "yesterday", "", true},
		{"date only", "2025-06-01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimestamp(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestamp(%q) error: %v", tt.input, err)
			}
			if want := mustTime(t, tt.want); !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestDecodeSighting(t *testing.T) {
	t.Parallel()

	fallback := mustTime(t, "2025-06-01T09:00:00Z")

	t.Run("full record", func(t *testing.T) {
		t.Parallel()
		raw := `{"sn":"D1","ts":"2025-06-01T12:00:00Z","lat":49.7,"lon":-112.8,"height_m":120.5,"speed_h_mps":8,"direction_deg":270}`
		got, err := DecodeSighting([]byte(raw), time.Time{})
		if err != nil {
			t.Fatalf("DecodeSighting: %v", err)
		}
		want := Sighting{
			EntityID:           "D1",
			Timestamp:          mustTime(t, "2025-06-01T12:00:00Z"),
			Latitude:           49.7,
			Longitude:          -112.8,
			HeightM:            Float(120.5),
			HorizontalSpeedMPS: Float(8),
			HeadingDeg:         Float(270),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("sighting mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("long field names", func(t *testing.T) {
		t.Parallel()
		raw := `{"entity_id":"D2","timestamp":"2025-06-01T12:00:00Z","latitude":1,"longitude":2,"horizontal_speed_mps":3,"heading_deg":4}`
		got, err := DecodeSighting([]byte(raw), time.Time{})
		if err != nil {
			t.Fatalf("DecodeSighting: %v", err)
		}
		if got.EntityID != "D2" || got.Latitude != 1 || got.Longitude != 2 {
			t.Errorf("unexpected sighting %+v", got)
		}
		if got.HorizontalSpeedMPS == nil || *got.HorizontalSpeedMPS != 3 {
			t.Errorf("speed = %v, want 3", got.HorizontalSpeedMPS)
		}
		if got.HeadingDeg == nil || *got.HeadingDeg != 4 {
			t.Errorf("heading = %v, want 4", got.HeadingDeg)
		}
	})

	t.Run("optional zero is not unknown", func(t *testing.T) {
		t.Parallel()
		raw := `{"sn":"D1","ts":"2025-06-01T12:00:00Z","lat":0,"lon":0,"height_m":0,"speed_h_mps":null}`
		got, err := DecodeSighting([]byte(raw), time.Time{})
		if err != nil {
			t.Fatalf("DecodeSighting: %v", err)
		}
		if got.HeightM == nil || *got.HeightM != 0 {
			t.Errorf("height = %v, want pointer to 0", got.HeightM)
		}
		if got.HorizontalSpeedMPS != nil {
			t.Errorf("speed = %v, want nil", *got.HorizontalSpeedMPS)
		}
		if got.HeadingDeg != nil {
			t.Errorf("heading = %v, want nil", *got.HeadingDeg)
		}
	})

	t.Run("missing timestamp uses fallback", func(t *testing.T) {
		t.Parallel()
		got, err := DecodeSighting([]byte(`{"sn":"D1","lat":1,"lon":2}`), fallback)
		if err != nil {
			t.Fatalf("DecodeSighting: %v", err)
		}
		if !got.Timestamp.Equal(fallback) {
			t.Errorf("timestamp = %v, want %v", got.Timestamp, fallback)
		}
	})

	t.Run("lenient fields", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			raw  string
			want Sighting
		}{
			{
				name: "blank timestamp uses fallback",
				raw:  `{"sn":"D1","ts":"","lat":49.7,"lon":-112.8}`,
				want: Sighting{EntityID: "D1", Timestamp: fallback, Latitude: 49.7, Longitude: -112.8},
			},
			{
				name: "null timestamp uses fallback",
				raw:  `{"sn":"D1","ts":null,"lat":49.7,"lon":-112.8}`,
				want: Sighting{EntityID: "D1", Timestamp: fallback, Latitude: 49.7, Longitude: -112.8},
			},
			{
				name: "unix seconds",
				raw:  `{"sn":"D1","ts":1717243200,"lat":49.7,"lon":-112.8}`,
				want: Sighting{EntityID: "D1", Timestamp: mustTime(t, "2024-06-01T12:00:00Z"), Latitude: 49.7, Longitude: -112.8},
			},
			{
				name: "unix milliseconds",
				raw:  `{"sn":"D1","ts":1717243200500,"lat":49.7,"lon":-112.8}`,
				want: Sighting{EntityID: "D1", Timestamp: mustTime(t, "2024-06-01T12:00:00.5Z"), Latitude: 49.7, Longitude: -112.8},
			},
			{
				name: "badly typed optionals are unknown",
				raw:  `{"sn":"D1","ts":"2025-06-01T12:00:00Z","lat":49.7,"lon":-112.8,"height_m":"n/a","speed_h_mps":"fast","direction_deg":{"deg":90}}`,
				want: Sighting{EntityID: "D1", Timestamp: mustTime(t, "2025-06-01T12:00:00Z"), Latitude: 49.7, Longitude: -112.8},
			},
			{
				name: "null short name falls back to long name",
				raw:  `{"sn":null,"entity_id":"D2","lat":null,"latitude":1,"lon":2,"speed_h_mps":null,"horizontal_speed_mps":3}`,
				want: Sighting{EntityID: "D2", Timestamp: fallback, Latitude: 1, Longitude: 2, HorizontalSpeedMPS: Float(3)},
			},
		}
		for _, tt := range tests {
			got, err := DecodeSighting([]byte(tt.raw), fallback)
			if err != nil {
				t.Errorf("%s: DecodeSighting: %v", tt.name, err)
				continue
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("%s: sighting mismatch (-want +got):\n%s", tt.name, diff)
			}
		}
	})

	errorCases := []struct {
		name     string
		raw      string
		fallback time.Time
		target   error
	}{
		{"missing id", `{"ts":"2025-06-01T12:00:00Z","lat":1,"lon":2}`, fallback, ErrMissingEntityID},
		{"empty id", `{"sn":"","lat":1,"lon":2}`, fallback, ErrMissingEntityID},
		{"missing lat", `{"sn":"D1","lon":2}`, fallback, ErrMissingCoordinates},
		{"missing lon", `{"sn":"D1","lat":2}`, fallback, ErrMissingCoordinates},
		{"null lat", `{"sn":"D1","lat":null,"lon":2}`, fallback, ErrMissingCoordinates},
		{"missing timestamp without fallback", `{"sn":"D1","lat":1,"lon":2}`, time.Time{}, ErrMissingTimestamp},
		{"empty timestamp without fallback", `{"sn":"D1","ts":"","lat":1,"lon":2}`, time.Time{}, ErrMissingTimestamp},
		{"numeric id", `{"sn":17,"lat":1,"lon":2}`, fallback, ErrMissingEntityID},
		{"infinite-looking lat", `{"sn":"D1","lat":"Infinity","lon":2}`, fallback, ErrMissingCoordinates},
		{"string lat", `{"sn":"D1","lat":"49.7","lon":2}`, fallback, nil},
		{"unparsable timestamp", `{"sn":"D1","ts":"soon","lat":1,"lon":2}`, fallback, nil},
		{"not an object", `[1,2,3]`, fallback, nil},
		{"truncated", `{"sn":"D1",`, fallback, nil},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeSighting([]byte(tt.raw), tt.fallback)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestSightingJSONNullOptionals(t *testing.T) {
	t.Parallel()

	s := Sighting{
		EntityID:  "D1",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Latitude:  1,
		Longitude: 2,
		HeightM:   Float(0),
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"height_m":0`, `"horizontal_speed_mps":null`, `"heading_deg":null`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestDecodeSightings(t *testing.T) {
	t.Parallel()

	payload := `[
		{"sn":"D1","ts":"2025-06-01T12:00:00Z","lat":49.7,"lon":-112.8},
		{"sn":"D2","ts":"2025-06-01T12:00:01Z","lat":"bad","lon":-112.8},
		{"ts":"2025-06-01T12:00:02Z","lat":1,"lon":1},
		{"sn":"D3","lat":1,"lon":1},
		"not a record",
		{"sn":"D4","ts":"2025-06-01T12:00:03","lat":50,"lon":-113},
		{"sn":"D5","ts":"2025-06-01T12:00:04Z","lat":51,"lon":-114,"speed_h_mps":"fast"}
	]`

	got, dropped, err := DecodeSightings([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeSightings: %v", err)
	}
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}
	var ids []string
	for _, s := range got {
		ids = append(ids, s.EntityID)
	}
	if diff := cmp.Diff([]string{"D1", "D4", "D5"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{`{"sn":"D1"}`, `null`, `"x"`, ``} {
		if _, _, err := DecodeSightings([]byte(bad)); !errors.Is(err, ErrNotArray) {
			t.Errorf("DecodeSightings(%q) error = %v, want ErrNotArray", bad, err)
		}
	}
}

func TestDecodeTracks(t *testing.T) {
	t.Parallel()

	payload := `[
		{"sn":"D1","points":[
			{"ts":"2025-06-01T12:00:02Z","lat":3,"lon":3},
			{"ts":"2025-06-01T12:00:00Z","lat":1,"lon":1},
			{"ts":"","lat":9,"lon":9},
			{"ts":"garbage","lat":9,"lon":9},
			{"ts":"2025-06-01T12:00:01","lat":2,"lon":2},
			{"ts":"2025-06-01T12:00:03Z","lat":null,"lon":4}
		]},
		{"points":[{"ts":"2025-06-01T12:00:00Z","lat":1,"lon":1}]},
		{"entity_id":"D2","points":[{"timestamp":"2025-06-01T12:00:01Z","latitude":5,"longitude":6}]},
		{"sn":"D3","points":[]}
	]`

	got, dropped, err := DecodeTracks([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeTracks: %v", err)
	}
	if dropped != 4 {
		t.Errorf("dropped = %d, want 4", dropped)
	}

	t0 := mustTime(t, "2025-06-01T12:00:00Z")
	want := []Track{
		{EntityID: "D1", Points: []TrackPoint{
			{Timestamp: t0, Latitude: 1, Longitude: 1},
			{Timestamp: t0.Add(time.Second), Latitude: 2, Longitude: 2},
			{Timestamp: t0.Add(2 * time.Second), Latitude: 3, Longitude: 3},
		}},
		{EntityID: "D2", Points: []TrackPoint{
			{Timestamp: t0.Add(time.Second), Latitude: 5, Longitude: 6},
		}},
		{EntityID: "D3", Points: []TrackPoint{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tracks mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := DecodeTracks([]byte(`{"detail":"Not Found"}`)); !errors.Is(err, ErrNotArray) {
		t.Errorf("object payload error = %v, want ErrNotArray", err)
	}
}

func TestTrackHelpers(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := Track{EntityID: "D1", Points: []TrackPoint{
		{Timestamp: t0.Add(time.Second), Latitude: 2},
		{Timestamp: t0, Latitude: 1},
		{Timestamp: t0.Add(time.Second), Latitude: 3},
	}}
	tr.SortPoints()

	lats := []float64{tr.Points[0].Latitude, tr.Points[1].Latitude, tr.Points[2].Latitude}
	if diff := cmp.Diff([]float64{1, 2, 3}, lats); diff != "" {
		t.Errorf("stable sort mismatch (-want +got):\n%s", diff)
	}

	last, ok := tr.Last()
	if !ok || last.Latitude != 3 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	if _, ok := (&Track{}).Last(); ok {
		t.Error("Last() on empty track should report false")
	}
}
