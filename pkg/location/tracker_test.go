package location

import (
	"errors"
	"math"
	"testing"
)

type fakeSource struct {
	onFix   func(Fix)
	onError func(error)
	starts  int
	stops   int
}

func (s *fakeSource) Start(onFix func(Fix), onError func(error)) error {
	s.onFix = onFix
	s.onError = onError
	s.starts++
	return nil
}

func (s *fakeSource) Stop() error {
	s.stops++
	return nil
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Location
		want      float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         Location{Latitude: 1.3, Longitude: 103.8},
			b:         Location{Latitude: 1.3, Longitude: 103.8},
			want:      0,
			tolerance: 0.001,
		},
		{
			name:      "3.3 meters north",
			a:         Location{Latitude: 1.30000, Longitude: 103.80000},
			b:         Location{Latitude: 1.30003, Longitude: 103.80000},
			want:      3.3,
			tolerance: 0.1,
		},
		{
			name:      "one degree of longitude at equator",
			a:         Location{Latitude: 0, Longitude: 0},
			b:         Location{Latitude: 0, Longitude: 1},
			want:      111195,
			tolerance: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("got %.2f m, want %.2f m (±%.2f)", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestTrackerReplacesLocationPerFix(t *testing.T) {
	source := &fakeSource{}
	tracker := NewTracker(source)

	var updates []Location
	tracker.OnUpdate(func(loc Location) { updates = append(updates, loc) })

	if err := tracker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	source.onFix(Fix{Latitude: 1.30, Longitude: 103.80})
	source.onFix(Fix{Latitude: 1.31, Longitude: 103.81})

	current, ok := tracker.Current()
	if !ok {
		t.Fatal("expected a current location")
	}
	if current.Latitude != 1.31 || current.Longitude != 103.81 {
		t.Errorf("got %+v, want the latest fix", current)
	}
	if len(updates) != 2 {
		t.Errorf("expected 2 updates, got %d", len(updates))
	}
	if !tracker.Active() {
		t.Error("tracker should be active after a fix")
	}
}

func TestTrackerHeadingMerge(t *testing.T) {
	source := &fakeSource{}
	tracker := NewTracker(source)
	if err := tracker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	source.onFix(Fix{Latitude: 1.30, Longitude: 103.80})
	if current, _ := tracker.Current(); current.HasHeading {
		t.Error("heading should be unknown before orientation data")
	}

	tracker.SetHeading(90)
	if current, _ := tracker.Current(); !current.HasHeading || current.Heading != 90 {
		t.Errorf("heading not merged into current location: %+v", current)
	}

	// A later fix without its own heading keeps the merged one.
	source.onFix(Fix{Latitude: 1.31, Longitude: 103.81})
	if current, _ := tracker.Current(); !current.HasHeading || current.Heading != 90 {
		t.Errorf("merged heading lost on new fix: %+v", current)
	}

	// A fix that carries a heading wins over the orientation stream.
	source.onFix(Fix{Latitude: 1.32, Longitude: 103.82, Heading: 45, HasHeading: true})
	if current, _ := tracker.Current(); current.Heading != 45 {
		t.Errorf("fix heading not applied: %+v", current)
	}
}

func TestTrackerPermissionDenied(t *testing.T) {
	source := &fakeSource{}
	tracker := NewTracker(source)
	if err := tracker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	source.onFix(Fix{Latitude: 1.30, Longitude: 103.80})
	source.onError(ErrPermissionDenied)

	if tracker.Active() {
		t.Error("tracker should be inactive after permission denial")
	}
	if !errors.Is(tracker.Err(), ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", tracker.Err())
	}

	// Last-known-good: the stored location survives the error.
	if _, ok := tracker.Current(); !ok {
		t.Error("last known location was dropped on error")
	}
}

func TestTrackerRestartCancelsPreviousSubscription(t *testing.T) {
	source := &fakeSource{}
	tracker := NewTracker(source)

	if err := tracker.Start(); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := tracker.Start(); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	if source.stops != 1 {
		t.Errorf("expected previous subscription stopped once, got %d", source.stops)
	}
	if source.starts != 2 {
		t.Errorf("expected 2 starts, got %d", source.starts)
	}
}

func TestTrackerStopIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	tracker := NewTracker(source)
	if err := tracker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := tracker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := tracker.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if source.stops != 1 {
		t.Errorf("source stopped %d times, want 1", source.stops)
	}
}
