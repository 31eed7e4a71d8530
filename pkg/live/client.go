// Package live implements the bidirectional streaming session to the
// Gemini Live API: realtime audio/video/text out, speech, transcripts, and
// tool calls back in.
package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-visionguide/internal/log"
)

const (
	// Gemini Live API WebSocket endpoint
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// Default model for the live session
	defaultModel = "models/gemini-2.0-flash-exp"

	// Default voice for synthesized speech
	defaultVoice = "Puck"

	handshakeTimeout = 10 * time.Second
	pingInterval     = 15 * time.Second
)

var (
	// ErrMissingAPIKey indicates no API key was configured.
	ErrMissingAPIKey = errors.New("live: missing API key")

	// ErrNotConnected indicates a send on a closed or unopened session.
	ErrNotConnected = errors.New("live: not connected")

	// ErrAlreadyConnected indicates Connect was called twice.
	ErrAlreadyConnected = errors.New("live: already connected")
)

// Tool declares a function the agent may invoke during the session.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// FunctionCall is one entry of an inbound tool-call batch.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// FunctionResponse answers one FunctionCall. Result is serialized under the
// response envelope the agent expects.
type FunctionResponse struct {
	ID     string
	Name   string
	Result any
}

// Config holds the session parameters fixed at connect time.
type Config struct {
	APIKey            string
	Model             string
	Voice             string
	SystemInstruction string
	Tools             []Tool
}

// Client is a Gemini Live session over a single WebSocket.
type Client struct {
	config Config

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	closed    bool
	cancel    context.CancelFunc

	onAudio         func(pcm []byte)
	onText          func(text string)
	onTranscript    func(text string)
	onInterrupted   func()
	onTurnComplete  func()
	onToolCall      func(calls []FunctionCall)
	onSetupComplete func()
	onError         func(err error)
	onClose         func()
}

// NewClient creates a live session client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	return &Client{config: cfg}, nil
}

// OnAudio sets the callback for synthesized speech (raw PCM16 at 24 kHz).
func (c *Client) OnAudio(fn func(pcm []byte)) { c.onAudio = fn }

// OnText sets the callback for text parts of the model turn.
func (c *Client) OnText(fn func(text string)) { c.onText = fn }

// OnTranscript sets the callback for transcribed user speech.
func (c *Client) OnTranscript(fn func(text string)) { c.onTranscript = fn }

// OnInterrupted sets the callback for barge-in signals.
func (c *Client) OnInterrupted(fn func()) { c.onInterrupted = fn }

// OnTurnComplete sets the callback for end-of-turn markers.
func (c *Client) OnTurnComplete(fn func()) { c.onTurnComplete = fn }

// OnToolCall sets the callback for inbound tool-call batches. Batch order
// is preserved from the wire.
func (c *Client) OnToolCall(fn func(calls []FunctionCall)) { c.onToolCall = fn }

// OnSetupComplete sets the callback fired when the session is ready.
func (c *Client) OnSetupComplete(fn func()) { c.onSetupComplete = fn }

// OnError sets the error callback.
func (c *Client) OnError(fn func(err error)) { c.onError = fn }

// OnClose sets the callback fired when the server closes the stream.
func (c *Client) OnClose(fn func()) { c.onClose = fn }

// Connect dials the live endpoint and configures the session.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	url := fmt.Sprintf("%s?key=%s", liveURL, c.config.APIKey)
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(runCtx, url, header)
	if err != nil {
		cancel()
		return fmt.Errorf("live: failed to connect: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.cancel = cancel
	c.connected = true
	c.closed = false
	c.mu.Unlock()

	if err := c.sendSetup(); err != nil {
		_ = c.Close()
		return fmt.Errorf("live: failed to configure session: %w", err)
	}

	go c.readLoop()
	go c.keepalive(runCtx)

	log.Debug("live session connected", "model", c.config.Model)
	return nil
}

// Close tears down the session. Safe to call repeatedly and from any state.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed && c.ws == nil {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	ws := c.ws
	c.ws = nil
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		return ws.Close()
	}
	return nil
}

// IsConnected reports whether the session is open and usable.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// SendAudio streams one microphone frame (raw PCM16 at 16 kHz).
func (c *Client) SendAudio(pcm []byte) error {
	return c.sendMedia(base64.StdEncoding.EncodeToString(pcm), "audio/pcm;rate=16000")
}

// SendImage streams one camera frame as inline JPEG media.
func (c *Client) SendImage(jpegBase64 string) error {
	return c.sendMedia(jpegBase64, "image/jpeg")
}

func (c *Client) sendMedia(data, mimeType string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.sendJSON(map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{"data": data, "mime_type": mimeType},
			},
		},
	})
}

// SendText injects a text message into the realtime stream, used for
// system notices such as location updates and cancellation acknowledgments.
func (c *Client) SendText(text string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return c.sendJSON(map[string]any{
		"realtime_input": map[string]any{"text": text},
	})
}

// SendToolResponses answers a tool-call batch in one correlated message,
// preserving the order of the responses slice.
func (c *Client) SendToolResponses(responses []FunctionResponse) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	entries := make([]map[string]any, 0, len(responses))
	for _, r := range responses {
		entries = append(entries, map[string]any{
			"id":       r.ID,
			"name":     r.Name,
			"response": map[string]any{"result": r.Result},
		})
	}
	return c.sendJSON(map[string]any{
		"tool_response": map[string]any{"function_responses": entries},
	})
}

// sendSetup sends the session configuration: model, voice, system
// instruction, tool declarations, and input transcription.
func (c *Client) sendSetup() error {
	var toolDeclarations []map[string]any
	for _, tool := range c.config.Tools {
		toolDeclarations = append(toolDeclarations, map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  tool.Parameters,
		})
	}

	setup := map[string]any{
		"model": c.config.Model,
		"generation_config": map[string]any{
			"response_modalities": []string{"AUDIO"},
			"speech_config": map[string]any{
				"voice_config": map[string]any{
					"prebuilt_voice_config": map[string]any{
						"voice_name": c.config.Voice,
					},
				},
			},
		},
		"system_instruction": map[string]any{
			"parts": []map[string]any{
				{"text": c.config.SystemInstruction},
			},
		},
		"input_audio_transcription": map[string]any{},
	}
	if len(toolDeclarations) > 0 {
		setup["tools"] = []map[string]any{
			{"function_declarations": toolDeclarations},
		}
	}

	return c.sendJSON(map[string]any{"setup": setup})
}

func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	c.mu.RLock()
	ws := c.ws
	c.mu.RUnlock()
	if ws == nil {
		return ErrNotConnected
	}
	return ws.WriteJSON(v)
}

// keepalive pings the server so idle sessions are not reaped.
func (c *Client) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			ws := c.ws
			c.mu.RUnlock()
			if ws != nil {
				c.wsMu.Lock()
				_ = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				c.wsMu.Unlock()
			}
		}
	}
}
