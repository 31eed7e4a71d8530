package camera

import (
	"sync"
	"time"

	"github.com/teslashibe/go-visionguide/internal/log"
)

// DefaultSampleInterval is the reference 2 Hz sampling rate.
const DefaultSampleInterval = 500 * time.Millisecond

// Sink receives sampled frames. Delivery failures are logged, not fatal.
type Sink struct {
	Name    string
	Deliver func(jpeg []byte) error
}

// Sampler grabs a frame on a fixed timer and fans it out to every sink
// independently: one sink failing or being disconnected never blocks the
// others.
type Sampler struct {
	interval time.Duration
	frame    func() ([]byte, error)
	sinks    []Sink

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewSampler creates a sampler over a frame source and its consumers.
func NewSampler(interval time.Duration, frame func() ([]byte, error), sinks ...Sink) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{interval: interval, frame: frame, sinks: sinks}
}

// Start begins the sampling loop. No-op when already running.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop halts the loop and waits for the in-flight tick to finish, so no
// frame is delivered after Stop returns. Safe to call repeatedly.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

func (s *Sampler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	jpeg, err := s.frame()
	if err != nil {
		log.Debug("frame grab failed", "error", err)
		return
	}

	for _, sink := range s.sinks {
		if err := sink.Deliver(jpeg); err != nil {
			log.Debug("frame delivery failed", "sink", sink.Name, "error", err)
		}
	}
}
