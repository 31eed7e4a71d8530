// VisionGuide - Real-time voice and vision walking-navigation agent.
// Streams mic audio and camera frames to a live multimodal session and
// speaks turn-by-turn directions back.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-visionguide/pkg/guide"
)

func main() {
	// Missing .env is fine; environment variables may be set directly.
	_ = godotenv.Load()

	cfg := parseFlags()

	app, err := guide.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() guide.Config {
	cfg := guide.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	camera := flag.Int("camera", cfg.CameraID, "Camera device index")
	gpsd := flag.String("gpsd", "", "gpsd address (overrides GPSD_ADDR env var)")
	hazardURL := flag.String("hazard-url", "", "Hazard detection WebSocket URL (overrides HAZARD_WS_URL env var)")
	voice := flag.String("voice", "", "Agent voice name (overrides GUIDE_VOICE env var)")
	model := flag.String("model", "", "Live model override")
	interval := flag.Duration("frame-interval", cfg.FrameInterval, "Camera sampling period")
	flag.Parse()

	cfg.LoadEnvConfig()

	cfg.Debug = *debug
	cfg.CameraID = *camera
	if *interval > 0 {
		cfg.FrameInterval = *interval
	} else {
		cfg.FrameInterval = guide.DefaultFrameInterval
	}
	if *gpsd != "" {
		cfg.GPSDAddr = *gpsd
	}
	if *hazardURL != "" {
		cfg.HazardURL = *hazardURL
	}
	if *voice != "" {
		cfg.Voice = *voice
	}
	if *model != "" {
		cfg.Model = *model
	}

	return cfg
}
