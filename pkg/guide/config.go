// Package guide orchestrates the live navigation session: it owns the
// agent stream, the capture and sampling pipelines, playback, and the
// navigation state machine, and wires the agent's tool calls to the
// mapping providers.
package guide

import (
	"os"
	"time"

	"github.com/teslashibe/go-visionguide/pkg/location"
)

// Default configuration values.
const (
	DefaultHazardURL     = "ws://localhost:8000/ws/vision"
	DefaultCameraID      = 0
	DefaultFrameInterval = 500 * time.Millisecond
	DefaultVoice         = "Puck"
)

// Config holds all configuration for the guide application.
// Flag parsing is done in cmd/guide/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// API keys (typically from environment variables).
	GeminiAPIKey string
	MapsAPIKey   string
	ORSAPIKey    string // optional; enables the secondary routing provider

	// Model and voice for the live session.
	Model string
	Voice string

	// HazardURL is the detection-service WebSocket endpoint.
	HazardURL string

	// GPSDAddr is the gpsd daemon address for positioning.
	GPSDAddr string

	// CameraID selects the local capture device.
	CameraID int

	// FrameInterval is the camera sampling period.
	FrameInterval time.Duration
}

// DefaultConfig returns sensible defaults for guide configuration.
func DefaultConfig() Config {
	return Config{
		Voice:         DefaultVoice,
		HazardURL:     DefaultHazardURL,
		GPSDAddr:      location.DefaultGPSDAddr,
		CameraID:      DefaultCameraID,
		FrameInterval: DefaultFrameInterval,
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	c.MapsAPIKey = os.Getenv("MAPS_API_KEY")
	if c.MapsAPIKey == "" {
		c.MapsAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	c.ORSAPIKey = os.Getenv("ORS_API_KEY")

	if url := os.Getenv("HAZARD_WS_URL"); url != "" {
		c.HazardURL = url
	}
	if addr := os.Getenv("GPSD_ADDR"); addr != "" {
		c.GPSDAddr = addr
	}
	if voice := os.Getenv("GUIDE_VOICE"); voice != "" {
		c.Voice = voice
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return &ConfigError{Field: "GeminiAPIKey", Message: "GEMINI_API_KEY or GOOGLE_API_KEY environment variable is required"}
	}
	if c.MapsAPIKey == "" {
		return &ConfigError{Field: "MapsAPIKey", Message: "MAPS_API_KEY or GOOGLE_API_KEY environment variable is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
