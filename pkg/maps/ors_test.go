package maps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-visionguide/pkg/location"
)

func testORS(t *testing.T, handler http.HandlerFunc) *ORS {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	o := NewORS("ors-key")
	o.baseURL = server.URL
	o.http = server.Client()
	return o
}

func TestORSConfigured(t *testing.T) {
	if NewORS("").Configured() {
		t.Error("empty key should report unconfigured")
	}
	if !NewORS("k").Configured() {
		t.Error("non-empty key should report configured")
	}
	var nilORS *ORS
	if nilORS.Configured() {
		t.Error("nil client should report unconfigured")
	}
}

func TestORSDirections(t *testing.T) {
	o := testORS(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "ors-key" {
			t.Errorf("Authorization = %q, want ors-key", got)
		}
		var req struct {
			Coordinates [][]float64 `json:"coordinates"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		// Coordinates are lng,lat pairs: origin then destination.
		if len(req.Coordinates) != 2 || req.Coordinates[0][0] != 103.8 || req.Coordinates[0][1] != 1.3 {
			t.Errorf("unexpected coordinates: %v", req.Coordinates)
		}

		w.Write([]byte(`{
			"features": [{
				"geometry": {"coordinates": [[103.8000, 1.3000], [103.8005, 1.3002], [103.8010, 1.3004]]},
				"properties": {"segments": [{
					"distance": 420.5,
					"duration": 303.1,
					"steps": [
						{"instruction": "Head north"},
						{"instruction": "Turn right onto Victoria Street"}
					]
				}]}
			}]
		}`))
	})

	route, err := o.Directions(context.Background(),
		location.Location{Latitude: 1.3, Longitude: 103.8},
		location.Location{Latitude: 1.3004, Longitude: 103.8010})
	if err != nil {
		t.Fatalf("Directions failed: %v", err)
	}

	if route.DistanceMeters != 420.5 || route.DurationSeconds != 303.1 {
		t.Errorf("unexpected totals: %+v", route)
	}
	if len(route.Steps) != 2 || route.Steps[1] != "Turn right onto Victoria Street" {
		t.Errorf("unexpected steps: %v", route.Steps)
	}
	if len(route.Coordinates) != 3 {
		t.Fatalf("got %d coordinates, want 3", len(route.Coordinates))
	}
	// GeoJSON order is lng,lat; parsed order must be lat,lng.
	second := route.Coordinates[1]
	if second.Latitude != 1.3002 || second.Longitude != 103.8005 {
		t.Errorf("coordinate order wrong: %+v", second)
	}
}

func TestORSDirectionsNoRoute(t *testing.T) {
	o := testORS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": []}`))
	})

	_, err := o.Directions(context.Background(), location.Location{}, location.Location{})
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}
