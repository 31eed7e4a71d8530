// Package hazard streams camera frames to the obstacle-detection service
// and surfaces its detections.
package hazard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-visionguide/internal/log"
)

// ErrNotConnected indicates a send on a closed or unopened channel.
var ErrNotConnected = errors.New("hazard: not connected")

// Detection is one detected object with a pixel-space bounding box.
type Detection struct {
	Box   [4]float64 `json:"box"`
	Label string     `json:"label"`
}

// Result is one asynchronous detection report. Reports are not correlated
// with the frame that produced them.
type Result struct {
	Status     string      `json:"status"`
	Detections []Detection `json:"detections"`
	Hazard     bool        `json:"hazard"`
}

// Client is a persistent WebSocket to the detection service.
// Set callbacks before Connect.
type Client struct {
	url string

	// OnResult is invoked once per inbound detection report.
	OnResult func(Result)
	// OnError is invoked when the stream fails.
	OnError func(error)

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewClient creates a detection channel client for the given ws:// URL.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// Connect dials the detection service and starts the read loop.
func (c *Client) Connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("hazard: failed to connect: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.closed = false
	c.mu.Unlock()

	go c.readLoop(ws)
	return nil
}

// Close shuts the channel down. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// IsConnected reports whether frames can currently be sent.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.closed
}

// SendFrame submits one base64 JPEG frame as the {image} envelope.
func (c *Client) SendFrame(jpegBase64 string) error {
	c.mu.RLock()
	ws := c.ws
	ok := c.connected && !c.closed
	c.mu.RUnlock()
	if !ok || ws == nil {
		return ErrNotConnected
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return ws.WriteJSON(map[string]string{"image": jpegBase64})
}

func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.connected = false
			c.mu.Unlock()
			if !closed && c.OnError != nil {
				c.OnError(fmt.Errorf("hazard: stream failed: %w", err))
			}
			return
		}

		var result Result
		if err := json.Unmarshal(message, &result); err != nil {
			log.Debug("hazard: unparseable report", "error", err)
			continue
		}
		if c.OnResult != nil {
			c.OnResult(result)
		}
	}
}
