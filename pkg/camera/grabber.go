// Package camera acquires local camera frames and samples them at a fixed
// rate for the agent session and the hazard-detection feed.
package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame geometry and compression for sampled frames.
const (
	FrameWidth  = 320
	FrameHeight = 240
	JPEGQuality = 40
)

// ErrNoFrame indicates the device produced no frame for this grab.
var ErrNoFrame = errors.New("camera: no frame available")

// Grabber owns the capture device and produces downscaled JPEG frames.
type Grabber struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	frame  gocv.Mat
	small  gocv.Mat
}

// OpenGrabber opens the local capture device by ID.
func OpenGrabber(deviceID int) (*Grabber, error) {
	device, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("camera: failed to open device %d: %w", deviceID, err)
	}
	return &Grabber{
		device: device,
		frame:  gocv.NewMat(),
		small:  gocv.NewMat(),
	}, nil
}

// Frame grabs one frame, downscales it to FrameWidth×FrameHeight, and
// returns it JPEG-encoded at JPEGQuality.
func (g *Grabber) Frame() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.device == nil {
		return nil, ErrNoFrame
	}
	if ok := g.device.Read(&g.frame); !ok || g.frame.Empty() {
		return nil, ErrNoFrame
	}

	gocv.Resize(g.frame, &g.small, image.Pt(FrameWidth, FrameHeight), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, g.small,
		[]int{gocv.IMWriteJpegQuality, JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("camera: failed to encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())
	return jpeg, nil
}

// Close releases the device and working buffers. Safe to call repeatedly.
func (g *Grabber) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.device == nil {
		return nil
	}
	err := g.device.Close()
	g.device = nil
	g.frame.Close()
	g.small.Close()
	return err
}
