package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-visionguide/pkg/location"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient("test-key")
	c.baseURL = server.URL
	c.http = server.Client()
	return c
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Turn left", "Turn left"},
		{"bold markup", "Turn <b>left</b> onto <b>Main St</b>", "Turn left onto Main St"},
		{"div with attributes", `Continue<div style="font-size:0.9em">Destination on the right</div>`, "ContinueDestination on the right"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNearbySearchParsesAndRanks(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("rankby"); got != "distance" {
			t.Errorf("rankby = %q, want distance", got)
		}
		if got := r.URL.Query().Get("keyword"); got != "pharmacy" {
			t.Errorf("keyword = %q, want pharmacy", got)
		}
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"name": "Guardian", "vicinity": "1 Raffles Pl", "geometry": {"location": {"lat": 1.3001, "lng": 103.8001}}},
				{"name": "Watsons", "vicinity": "2 Orchard Rd", "geometry": {"location": {"lat": 1.3100, "lng": 103.8100}}}
			]
		}`))
	})

	places, err := c.NearbySearch(context.Background(), location.Location{Latitude: 1.3, Longitude: 103.8}, "pharmacy")
	if err != nil {
		t.Fatalf("NearbySearch failed: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("got %d places, want 2", len(places))
	}
	if places[0].Name != "Guardian" || places[0].Address != "1 Raffles Pl" {
		t.Errorf("unexpected first place: %+v", places[0])
	}
	if !places[0].HasLocation {
		t.Error("first place should carry coordinates")
	}
}

func TestTextSearchNoResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	_, err := c.TextSearch(context.Background(), "unicorn cafe", nil, 5000)
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestDirectionsStripsInstructionMarkup(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mode"); got != "walking" {
			t.Errorf("mode = %q, want walking", got)
		}
		w.Write([]byte(`{
			"status": "OK",
			"routes": [{"legs": [{
				"distance": {"text": "1.2 km"},
				"duration": {"text": "15 mins"},
				"steps": [
					{"html_instructions": "Head <b>north</b> on <b>Main St</b>"},
					{"html_instructions": "Turn <b>right</b>"}
				]
			}]}]
		}`))
	})

	dirs, err := c.Directions(context.Background(), location.Location{Latitude: 1.3, Longitude: 103.8}, "City Library")
	if err != nil {
		t.Fatalf("Directions failed: %v", err)
	}
	if dirs.DistanceText != "1.2 km" || dirs.DurationText != "15 mins" {
		t.Errorf("unexpected totals: %+v", dirs)
	}
	want := []string{"Head north on Main St", "Turn right"}
	if len(dirs.Steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(dirs.Steps), len(want))
	}
	for i := range want {
		if dirs.Steps[i] != want[i] {
			t.Errorf("step %d: got %q, want %q", i, dirs.Steps[i], want[i])
		}
	}
}

func TestGeocodeAndReverse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "100 Victoria St, Singapore",
				"geometry": {"location": {"lat": 1.2966, "lng": 103.8540}}
			}]
		}`))
	})

	loc, err := c.Geocode(context.Background(), "National Library")
	if err != nil {
		t.Fatalf("Geocode failed: %v", err)
	}
	if loc.Latitude != 1.2966 || loc.Longitude != 103.8540 {
		t.Errorf("unexpected coordinates: %+v", loc)
	}

	addr, err := c.ReverseGeocode(context.Background(), loc)
	if err != nil {
		t.Fatalf("ReverseGeocode failed: %v", err)
	}
	if addr != "100 Victoria St, Singapore" {
		t.Errorf("unexpected address: %q", addr)
	}
}
