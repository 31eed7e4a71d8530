package guide

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-visionguide/internal/log"
	"github.com/teslashibe/go-visionguide/pkg/audio"
	"github.com/teslashibe/go-visionguide/pkg/camera"
	"github.com/teslashibe/go-visionguide/pkg/hazard"
	"github.com/teslashibe/go-visionguide/pkg/live"
	"github.com/teslashibe/go-visionguide/pkg/location"
	"github.com/teslashibe/go-visionguide/pkg/maps"
	"github.com/teslashibe/go-visionguide/pkg/nav"
)

// Status is the session lifecycle state, mutated only by the App.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusActive
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusActive:
		return "ACTIVE"
	case StatusError:
		return "ERROR"
	default:
		return "IDLE"
	}
}

// hazardKeywords flag agent speech that warns about immediate danger; the
// alert cue plays alongside so the warning is never missed.
var hazardKeywords = regexp.MustCompile(`(?i)\b(stop|watch out|careful|hazard|danger|pole|person|stair|curb)\b`)

// App owns the live session and every device and pipeline attached to it.
// All session state is exclusively mutated here; components never reach
// into each other.
type App struct {
	config Config

	// Long-lived components, constructed once.
	maps      mapSearcher
	ors       walkRouter
	nav       *nav.Tracker
	locations *location.Tracker

	// starting guards against two rapid start requests racing past the
	// status check before either updates it.
	starting atomic.Bool

	mu       sync.Mutex
	status   Status
	gen      uint64
	log      *slog.Logger
	devices  *audio.Devices
	grabber  *camera.Grabber
	playback *audio.Queue
	capture  *audio.Capture
	sampler  *camera.Sampler
	live     *live.Client
	hazards  *hazard.Client

	zoomMu sync.Mutex
	zoom   int
}

// New validates the configuration and builds the application.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	a := &App{
		config:    cfg,
		maps:      maps.NewClient(cfg.MapsAPIKey),
		ors:       maps.NewORS(cfg.ORSAPIKey),
		nav:       nav.NewTracker(),
		locations: location.NewTracker(location.NewGPSD(cfg.GPSDAddr)),
		zoom:      initialZoom,
	}

	a.nav.OnApproach = func() { go a.speak("You are approaching your next turn.") }
	a.nav.OnArrival = func() { go a.speak("You have arrived at your destination.") }
	a.locations.OnUpdate(a.handleLocation)

	return a, nil
}

// Status returns the current session state.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Start opens the live session and attaches every pipeline. Starting while
// Initializing or Active is a no-op.
func (a *App) Start(ctx context.Context) error {
	if !a.starting.CompareAndSwap(false, true) {
		return nil
	}
	defer a.starting.Store(false)

	a.mu.Lock()
	if a.status == StatusInitializing || a.status == StatusActive {
		a.mu.Unlock()
		return nil
	}
	a.status = StatusInitializing
	a.log = log.With("session_id", uuid.NewString())
	gen := a.gen
	a.mu.Unlock()

	a.logger().Info("starting session")

	// Positioning failure is non-fatal: the agent is told GPS is unknown.
	if err := a.locations.Start(); err != nil {
		a.logger().Warn("positioning unavailable", "error", err)
	}

	devices, err := audio.OpenDevices()
	if err != nil {
		return a.fail(gen, fmt.Errorf("guide: audio devices unavailable: %w", err))
	}
	if !a.commit(gen, func() {
		a.devices = devices
		a.playback = audio.NewQueue(devices.Speaker, audio.OutputSampleRate)
	}) {
		devices.Close()
		return nil
	}

	grabber, err := camera.OpenGrabber(a.config.CameraID)
	if err != nil {
		return a.fail(gen, fmt.Errorf("guide: camera unavailable: %w", err))
	}
	if !a.commit(gen, func() { a.grabber = grabber }) {
		_ = grabber.Close()
		return nil
	}

	// The hazard channel is best-effort; the session runs without it.
	hazards := hazard.NewClient(a.config.HazardURL)
	hazards.OnResult = a.handleHazardResult
	hazards.OnError = func(err error) { a.logger().Warn("hazard channel failed", "error", err) }
	if err := hazards.Connect(); err != nil {
		a.logger().Warn("hazard channel unavailable", "error", err)
	} else if !a.commit(gen, func() { a.hazards = hazards }) {
		_ = hazards.Close()
		return nil
	}

	client, err := live.NewClient(live.Config{
		APIKey:            a.config.GeminiAPIKey,
		Model:             a.config.Model,
		Voice:             a.config.Voice,
		SystemInstruction: a.buildInstructions(),
		Tools:             toolDeclarations(),
	})
	if err != nil {
		return a.fail(gen, fmt.Errorf("guide: %w", err))
	}
	client.OnAudio(a.handleAgentAudio)
	client.OnText(a.handleAgentText)
	client.OnTranscript(a.handleTranscript)
	client.OnInterrupted(a.handleInterrupted)
	client.OnToolCall(a.handleToolCalls)
	client.OnSetupComplete(func() { a.kickoff(client) })
	client.OnTurnComplete(func() { a.logger().Debug("agent turn complete") })
	client.OnError(func(err error) { a.logger().Warn("live session error", "error", err) })
	client.OnClose(func() { go a.Stop() })

	if err := client.Connect(ctx); err != nil {
		return a.fail(gen, err)
	}
	if !a.commit(gen, func() { a.live = client }) {
		_ = client.Close()
		return nil
	}

	capture := audio.NewCapture(devices.Mic, a.isLive, client.SendAudio)
	if err := capture.Start(); err != nil {
		return a.fail(gen, err)
	}

	sampler := camera.NewSampler(a.config.FrameInterval, grabber.Frame,
		camera.Sink{Name: "agent", Deliver: a.deliverAgentFrame},
		camera.Sink{Name: "detector", Deliver: a.deliverHazardFrame},
	)
	sampler.Start()

	if !a.commit(gen, func() {
		a.capture = capture
		a.sampler = sampler
		a.status = StatusActive
	}) {
		sampler.Stop()
		_ = capture.Stop()
		return nil
	}

	a.logger().Info("session active")
	return nil
}

// commit applies fn under the lock only if no teardown has run since this
// start attempt began. A false return means the session was stopped mid-
// start; the caller releases whatever it just built and abandons the rest.
func (a *App) commit(gen uint64, fn func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return false
	}
	fn()
	return true
}

// kickoff plays the activation cue and prompts the greeting once the agent
// acknowledges the session configuration.
func (a *App) kickoff(client *live.Client) {
	a.mu.Lock()
	playback := a.playback
	a.mu.Unlock()
	if playback != nil {
		playback.Enqueue(audio.ActivationTone(audio.OutputSampleRate))
	}
	_ = client.SendText("[System] Session started. Greet the user briefly and ask where they would like to go.")
	a.logger().Info("agent session ready")
}

// Stop tears the session down. Idempotent and safe from any state. The
// deactivation cue plays before devices close so the user hears that the
// session ended.
func (a *App) Stop() error {
	a.mu.Lock()
	if a.status == StatusIdle {
		a.mu.Unlock()
		return nil
	}
	devices := a.devices
	a.mu.Unlock()

	a.logger().Info("stopping session")
	if devices != nil && devices.Speaker != nil {
		done := make(chan struct{})
		if p, err := devices.Speaker.Play(audio.DeactivationTone(audio.OutputSampleRate), func() { close(done) }); err == nil {
			select {
			case <-done:
			case <-time.After(400 * time.Millisecond):
				p.Stop()
			}
		}
	}
	a.teardown()
	return nil
}

// Run starts a session and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Stop()
}

// fail handles a fatal setup error: release everything, land in Error.
// When a concurrent stop already invalidated this attempt the failure is a
// consequence of the teardown, not a session error, so the state stays Idle.
func (a *App) fail(gen uint64, err error) error {
	a.mu.Lock()
	stale := a.gen != gen
	a.mu.Unlock()

	a.logger().Error("session setup failed", "error", err)
	a.teardown()
	if stale {
		return nil
	}
	a.mu.Lock()
	a.status = StatusError
	a.mu.Unlock()
	return err
}

// teardown releases all per-session resources. Every field is nil-guarded
// so it can run from any state, any number of times. The sampler stops
// synchronously before devices close, so no callback touches a released
// handle. Bumping the generation invalidates any start attempt still in
// flight, so it cannot resurrect the session with released handles.
func (a *App) teardown() {
	a.mu.Lock()
	a.gen++
	sampler := a.sampler
	capture := a.capture
	client := a.live
	hazards := a.hazards
	playback := a.playback
	grabber := a.grabber
	devices := a.devices
	a.sampler, a.capture, a.live, a.hazards = nil, nil, nil, nil
	a.playback, a.grabber, a.devices = nil, nil, nil
	a.status = StatusIdle
	a.mu.Unlock()

	if sampler != nil {
		sampler.Stop()
	}
	if capture != nil {
		_ = capture.Stop()
	}
	if client != nil {
		_ = client.Close()
	}
	if hazards != nil {
		_ = hazards.Close()
	}
	_ = a.locations.Stop()
	if playback != nil {
		playback.Interrupt()
	}
	a.nav.Cancel()
	if grabber != nil {
		_ = grabber.Close()
	}
	if devices != nil {
		devices.Close()
	}
}

// isLive reports whether the session can accept outbound media. Checked
// per frame because the session may close under the capture callbacks.
func (a *App) isLive() bool {
	a.mu.Lock()
	client := a.live
	active := a.status == StatusActive
	a.mu.Unlock()
	return active && client != nil && client.IsConnected()
}

func (a *App) liveClient() *live.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

func (a *App) logger() *slog.Logger {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.log == nil {
		return log.L()
	}
	return a.log
}

// deliverAgentFrame forwards a sampled frame into the live session.
func (a *App) deliverAgentFrame(jpeg []byte) error {
	if !a.isLive() {
		return nil
	}
	client := a.liveClient()
	if client == nil {
		return nil
	}
	return client.SendImage(base64.StdEncoding.EncodeToString(jpeg))
}

// deliverHazardFrame forwards a sampled frame to the detection service.
func (a *App) deliverHazardFrame(jpeg []byte) error {
	a.mu.Lock()
	hazards := a.hazards
	a.mu.Unlock()
	if hazards == nil || !hazards.IsConnected() {
		return nil
	}
	return hazards.SendFrame(base64.StdEncoding.EncodeToString(jpeg))
}

// handleAgentAudio queues synthesized speech on the playback timeline.
func (a *App) handleAgentAudio(pcm []byte) {
	a.mu.Lock()
	playback := a.playback
	a.mu.Unlock()
	if playback != nil {
		playback.Enqueue(pcm)
	}
}

// handleAgentText watches model text for danger warnings and backs them
// with the alert cue.
func (a *App) handleAgentText(text string) {
	a.logger().Debug("agent text", "text", text)
	if hazardKeywords.MatchString(text) {
		a.playAlert()
	}
}

// handleTranscript applies the voice-command shortcuts before anything
// else. Matched utterances are consumed locally.
func (a *App) handleTranscript(text string) {
	switch matchCommand(text) {
	case cmdDisconnect:
		a.logger().Info("disconnect command", "transcript", text)
		go a.Stop()
	case cmdCancelNavigation:
		a.logger().Info("cancel command", "transcript", text)
		a.cancelNavigation()
	default:
		a.logger().Debug("transcript", "text", text)
	}
}

// cancelNavigation clears the route and tells the agent so it acknowledges
// without disconnecting.
func (a *App) cancelNavigation() {
	hadRoute := a.nav.Cancel()
	a.logger().Info("navigation cancelled", "had_route", hadRoute)

	if client := a.liveClient(); client != nil && client.IsConnected() {
		_ = client.SendText("[System Update] Navigation has been cancelled by the user. Ask them where they would like to go next.")
	}
	go a.speak("Navigation cancelled.")
}

// handleInterrupted truncates playback when the user barges in.
func (a *App) handleInterrupted() {
	a.mu.Lock()
	playback := a.playback
	a.mu.Unlock()
	if playback != nil {
		playback.Interrupt()
	}
}

// handleToolCalls answers a batch off the read loop so long provider calls
// never stall inbound audio.
func (a *App) handleToolCalls(calls []live.FunctionCall) {
	go func() {
		responses := a.dispatchToolCalls(context.Background(), calls)
		if len(responses) == 0 {
			return
		}
		if client := a.liveClient(); client != nil {
			if err := client.SendToolResponses(responses); err != nil {
				a.logger().Warn("failed to send tool responses", "error", err)
			}
		}
	}()
}

// handleLocation feeds fixes to the nav tracker and keeps the agent's
// origin current.
func (a *App) handleLocation(loc location.Location) {
	a.nav.UpdateLocation(loc)

	if a.isLive() {
		if client := a.liveClient(); client != nil {
			_ = client.SendText(fmt.Sprintf(
				"[System Update] User current location: %.5f, %.5f. Use this as the origin for any navigation request.",
				loc.Latitude, loc.Longitude))
		}
	}
}

// handleHazardResult reacts to one detection report: at most one alert per
// message, regardless of how many frames produced it.
func (a *App) handleHazardResult(r hazard.Result) {
	if !r.Hazard {
		return
	}
	labels := make([]string, 0, len(r.Detections))
	for _, d := range r.Detections {
		labels = append(labels, d.Label)
	}
	a.logger().Warn("hazard detected", "labels", labels)
	a.playAlert()
}

// playAlert plays the alert cue immediately, over any agent speech.
func (a *App) playAlert() {
	a.mu.Lock()
	devices := a.devices
	a.mu.Unlock()
	if devices != nil && devices.Speaker != nil {
		_, _ = devices.Speaker.Play(audio.AlertTone(audio.OutputSampleRate), nil)
	}
}
