package location

import (
	"fmt"
	"sync"
	"time"
)

// DefaultStaleTimeout bounds how long a fix stays "active" without a
// successor.
const DefaultStaleTimeout = 10 * time.Second

// Fix is a single positioning report from a Source.
type Fix struct {
	Latitude   float64
	Longitude  float64
	Heading    float64
	HasHeading bool
}

// Source is a continuous positioning backend.
type Source interface {
	// Start begins delivering fixes. onError receives provider failures
	// such as ErrPermissionDenied; delivery continues unless Stop is called.
	Start(onFix func(Fix), onError func(error)) error
	Stop() error
}

// Tracker turns raw fixes into the normalized location stream the rest of
// the system consumes. Latitude/longitude are replaced wholesale per fix;
// heading is merged from a separate orientation stream when the fix itself
// carries none. Timeouts drop the active flag but never the last known
// location.
type Tracker struct {
	source       Source
	staleTimeout time.Duration

	mu       sync.Mutex
	current  *Location
	active   bool
	lastErr  error
	heading  float64
	oriented bool
	stale    *time.Timer
	running  bool

	onUpdate func(Location)
}

// NewTracker creates a tracker over the given positioning source.
func NewTracker(source Source) *Tracker {
	return &Tracker{source: source, staleTimeout: DefaultStaleTimeout}
}

// OnUpdate sets the callback invoked with every accepted fix.
func (t *Tracker) OnUpdate(fn func(Location)) {
	t.mu.Lock()
	t.onUpdate = fn
	t.mu.Unlock()
}

// Start subscribes to the positioning source. Any previous subscription is
// cancelled first so a session restart never doubles up callbacks.
func (t *Tracker) Start() error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		if err := t.Stop(); err != nil {
			return err
		}
		t.mu.Lock()
	}
	t.running = true
	t.mu.Unlock()

	if err := t.source.Start(t.handleFix, t.handleError); err != nil {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		return fmt.Errorf("location: failed to start source: %w", err)
	}
	return nil
}

// Stop cancels the subscription. The last known location is retained.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.running = false
	t.active = false
	if t.stale != nil {
		t.stale.Stop()
		t.stale = nil
	}
	t.mu.Unlock()

	return t.source.Stop()
}

// Current returns the last known location, if any.
func (t *Tracker) Current() (Location, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Location{}, false
	}
	return *t.current, true
}

// Active reports whether fixes are arriving within the staleness window.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Err returns the most recent provider error, if any.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// SetHeading merges a heading from a separate orientation stream. It
// applies to the current location and to later fixes that carry no heading
// of their own.
func (t *Tracker) SetHeading(degrees float64) {
	t.mu.Lock()
	t.heading = degrees
	t.oriented = true
	if t.current != nil {
		t.current.Heading = degrees
		t.current.HasHeading = true
	}
	t.mu.Unlock()
}

func (t *Tracker) handleFix(fix Fix) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}

	loc := Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
	switch {
	case fix.HasHeading:
		loc.Heading = fix.Heading
		loc.HasHeading = true
	case t.oriented:
		loc.Heading = t.heading
		loc.HasHeading = true
	case t.current != nil && t.current.HasHeading:
		loc.Heading = t.current.Heading
		loc.HasHeading = true
	}

	t.current = &loc
	t.active = true
	t.lastErr = nil
	t.resetStaleLocked()
	fn := t.onUpdate
	t.mu.Unlock()

	if fn != nil {
		fn(loc)
	}
}

func (t *Tracker) handleError(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.active = false
	t.mu.Unlock()
}

// resetStaleLocked rearms the staleness timer. Caller holds t.mu.
func (t *Tracker) resetStaleLocked() {
	if t.stale != nil {
		t.stale.Stop()
	}
	t.stale = time.AfterFunc(t.staleTimeout, func() {
		t.handleError(ErrStale)
	})
}
