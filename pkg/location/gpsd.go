package location

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultGPSDAddr is the standard gpsd listen address.
const DefaultGPSDAddr = "localhost:2947"

// GPSD streams fixes from a gpsd daemon over its TCP JSON protocol.
type GPSD struct {
	addr string

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// NewGPSD creates a gpsd-backed positioning source.
func NewGPSD(addr string) *GPSD {
	if addr == "" {
		addr = DefaultGPSDAddr
	}
	return &GPSD{addr: addr}
}

// tpvReport is the subset of a gpsd TPV message the tracker consumes.
// Mode 2 and above means an actual 2D/3D fix.
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Lat   float64  `json:"lat"`
	Lon   float64  `json:"lon"`
	Track *float64 `json:"track"`
}

// Start connects to gpsd, enables watch mode, and streams TPV fixes.
func (g *GPSD) Start(onFix func(Fix), onError func(error)) error {
	conn, err := net.DialTimeout("tcp", g.addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("location: failed to connect to gpsd at %s: %w", g.addr, err)
	}

	if _, err := fmt.Fprintf(conn, "?WATCH={\"enable\":true,\"json\":true}\r\n"); err != nil {
		conn.Close()
		return fmt.Errorf("location: failed to enable gpsd watch: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.closed = false
	g.mu.Unlock()

	go g.readLoop(conn, onFix, onError)
	return nil
}

// Stop closes the gpsd connection, terminating the read loop.
func (g *GPSD) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.conn != nil {
		err := g.conn.Close()
		g.conn = nil
		return err
	}
	return nil
}

func (g *GPSD) readLoop(conn net.Conn, onFix func(Fix), onError func(error)) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for scanner.Scan() {
		var report tpvReport
		if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
			continue
		}
		if report.Class != "TPV" || report.Mode < 2 {
			continue
		}

		fix := Fix{Latitude: report.Lat, Longitude: report.Lon}
		if report.Track != nil {
			fix.Heading = *report.Track
			fix.HasHeading = true
		}
		onFix(fix)
	}

	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if !closed {
		if err := scanner.Err(); err != nil {
			onError(fmt.Errorf("location: gpsd stream failed: %w", err))
		} else {
			onError(fmt.Errorf("location: gpsd closed the connection"))
		}
	}
}

var _ Source = (*GPSD)(nil)
