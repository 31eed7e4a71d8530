package audio

import (
	"fmt"

	"github.com/teslashibe/go-visionguide/internal/log"
)

// Source delivers fixed-size PCM16 frames from an input device.
type Source interface {
	Start(onFrame func(pcm []byte)) error
	Stop() error
}

// Capture forwards microphone frames into the live session while it is
// alive. The frame callback is registered once per session, so liveness is
// checked per frame rather than per start: the session can close
// asynchronously and frames arriving after that are dropped, not errors.
type Capture struct {
	source Source
	isLive func() bool
	send   func(pcm []byte) error
}

// NewCapture wires a microphone source to a session send function.
func NewCapture(source Source, isLive func() bool, send func(pcm []byte) error) *Capture {
	return &Capture{source: source, isLive: isLive, send: send}
}

// Start begins streaming microphone frames.
func (c *Capture) Start() error {
	if err := c.source.Start(c.handleFrame); err != nil {
		return fmt.Errorf("audio: failed to start capture: %w", err)
	}
	return nil
}

// Stop halts the microphone stream.
func (c *Capture) Stop() error {
	return c.source.Stop()
}

func (c *Capture) handleFrame(pcm []byte) {
	if !c.isLive() {
		return
	}
	if err := c.send(pcm); err != nil {
		log.Debug("dropped mic frame", "error", err)
	}
}
