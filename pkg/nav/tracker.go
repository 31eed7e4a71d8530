// Package nav owns the active walking route and its proximity triggers.
package nav

import (
	"sync"

	"github.com/teslashibe/go-visionguide/pkg/location"
)

// Distance thresholds for geofence events, in meters.
const (
	ApproachRadius = 5
	ArrivalRadius  = 15
)

// Provider identifies which routing backend produced the active route.
type Provider int

const (
	// ProviderPrimary is the mapping provider used when the secondary
	// routing service is unconfigured or fails.
	ProviderPrimary Provider = iota
	// ProviderSecondary is the dedicated walking-route service. Only its
	// routes carry coordinate geometry, so only they set proximity triggers.
	ProviderSecondary
)

func (p Provider) String() string {
	if p == ProviderSecondary {
		return "OpenRouteService"
	}
	return "Google Maps (Fallback)"
}

// Step is one instruction of a walking route.
type Step struct {
	Instruction string
	Target      *location.Location
}

// Route is a full directions result. Each successful directions call
// replaces the previous route wholesale.
type Route struct {
	Steps    []Step
	Provider Provider

	// Trigger is the coordinate of the second route point; crossing within
	// ApproachRadius of it fires the approach notice. Nil when the provider
	// supplies no geometry.
	Trigger *location.Location

	// Destination is the geocoded end point, used for arrival detection.
	Destination *location.Location
}

// Status is a read-only snapshot for the status tool.
type Status struct {
	Active          bool
	NextInstruction string
	RemainingSteps  int
	Provider        Provider
}

// Tracker advances the active route from location updates. A trigger
// crossing emits a one-shot approach notice; reaching the destination
// completes the route.
type Tracker struct {
	mu          sync.Mutex
	steps       []Step
	provider    Provider
	trigger     *location.Location
	destination *location.Location
	active      bool

	// OnApproach fires once when the user comes within ApproachRadius of
	// the trigger point.
	OnApproach func()
	// OnArrival fires once when the user comes within ArrivalRadius of the
	// destination; the route is cleared first.
	OnArrival func()
}

// NewTracker returns an empty tracker (NoRoute state).
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetRoute replaces the active route.
func (t *Tracker) SetRoute(r Route) {
	t.mu.Lock()
	t.steps = r.Steps
	t.provider = r.Provider
	t.trigger = r.Trigger
	t.destination = r.Destination
	t.active = len(r.Steps) > 0
	t.mu.Unlock()
}

// Cancel clears the route and reports whether one was active.
func (t *Tracker) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	had := t.active
	t.clearLocked()
	return had
}

// Active reports whether a route is being tracked.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Status returns the current route snapshot. Pure read, no I/O.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		Active:         t.active,
		RemainingSteps: len(t.steps),
		Provider:       t.provider,
	}
	if len(t.steps) > 0 {
		s.NextInstruction = t.steps[0].Instruction
	}
	return s
}

// UpdateLocation feeds a new fix into the geofence checks. The approach
// notice is a notification only: it clears the trigger but leaves the step
// list alone, since every new directions call replaces the list anyway.
func (t *Tracker) UpdateLocation(loc location.Location) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}

	var approached, arrived bool

	if t.trigger != nil && location.Distance(loc, *t.trigger) < ApproachRadius {
		t.trigger = nil
		approached = true
	}
	if t.destination != nil && location.Distance(loc, *t.destination) < ArrivalRadius {
		t.clearLocked()
		arrived = true
	}

	onApproach, onArrival := t.OnApproach, t.OnArrival
	t.mu.Unlock()

	if approached && onApproach != nil {
		onApproach()
	}
	if arrived && onArrival != nil {
		onArrival()
	}
}

// clearLocked resets to NoRoute. Caller holds t.mu.
func (t *Tracker) clearLocked() {
	t.steps = nil
	t.trigger = nil
	t.destination = nil
	t.active = false
}
