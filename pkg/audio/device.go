package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Devices owns the miniaudio context shared by the microphone and speaker.
// Session restarts reuse the same context; Close releases it.
type Devices struct {
	ctx     *malgo.AllocatedContext
	Mic     *Mic
	Speaker *Speaker
}

// OpenDevices initializes the audio backend and both devices. The mic
// captures 16 kHz mono PCM16, the speaker plays 24 kHz mono PCM16,
// matching the agent wire formats.
func OpenDevices() (*Devices, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("audio: failed to init context: %w", err)
	}

	d := &Devices{ctx: ctx}

	d.Mic, err = newMic(ctx, InputSampleRate)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Speaker, err = newSpeaker(ctx, OutputSampleRate)
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Close stops and releases both devices and the backend context.
func (d *Devices) Close() {
	if d.Mic != nil {
		_ = d.Mic.Stop()
		d.Mic.uninit()
	}
	if d.Speaker != nil {
		d.Speaker.uninit()
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}

// Mic is a malgo capture device implementing Source.
type Mic struct {
	device *malgo.Device

	mu      sync.Mutex
	onFrame func(pcm []byte)
}

func newMic(ctx *malgo.AllocatedContext, sampleRate int) (*Mic, error) {
	m := &Mic{}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	config.PeriodSizeInFrames = 480
	config.Periods = 3

	device, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if n == 0 || len(pInput) < n {
				return
			}
			m.mu.Lock()
			fn := m.onFrame
			m.mu.Unlock()
			if fn != nil {
				fn(pInput[:n])
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: failed to init capture device: %w", err)
	}

	m.device = device
	return m, nil
}

// Start begins delivering microphone frames to onFrame.
func (m *Mic) Start(onFrame func(pcm []byte)) error {
	m.mu.Lock()
	m.onFrame = onFrame
	m.mu.Unlock()

	if m.device.IsStarted() {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("audio: failed to start capture device: %w", err)
	}
	return nil
}

// Stop halts capture. Safe to call when already stopped.
func (m *Mic) Stop() error {
	m.mu.Lock()
	m.onFrame = nil
	m.mu.Unlock()

	if !m.device.IsStarted() {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("audio: failed to stop capture device: %w", err)
	}
	return nil
}

func (m *Mic) uninit() {
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
}

// Speaker is a malgo playback device implementing Player. Buffers handed to
// Play are appended to a FIFO consumed by the device callback; each buffer
// keeps its own segment so it can be stopped (dropped) independently.
type Speaker struct {
	device *malgo.Device

	mu       sync.Mutex
	segments []*segment
}

type segment struct {
	sp        *Speaker
	pcm       []byte
	offset    int
	onDone    func()
	cancelled bool
	finished  bool
}

func newSpeaker(ctx *malgo.AllocatedContext, sampleRate int) (*Speaker, error) {
	s := &Speaker{}

	format := malgo.FormatS16
	channels := 1
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(sampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(sampleRate / 10)
	config.Periods = 4

	device, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, frameCount uint32) {
			s.fill(pOutput, int(frameCount)*bytesPerFrame)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: failed to init playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("audio: failed to start playback device: %w", err)
	}

	s.device = device
	return s, nil
}

// Play queues pcm for immediate output and returns a handle that drops the
// unplayed remainder when stopped.
func (s *Speaker) Play(pcm []byte, onDone func()) (Playback, error) {
	if s.device == nil {
		return nil, fmt.Errorf("audio: playback device not initialized")
	}

	seg := &segment{sp: s, pcm: pcm, onDone: onDone}
	s.mu.Lock()
	s.segments = append(s.segments, seg)
	s.mu.Unlock()
	return seg, nil
}

// fill copies queued audio into the device buffer, completing segments as
// they drain. Runs on the device thread.
func (s *Speaker) fill(out []byte, need int) {
	s.mu.Lock()

	var done []func()
	written := 0
	for written < need && len(s.segments) > 0 {
		seg := s.segments[0]
		n := copy(out[written:need], seg.pcm[seg.offset:])
		seg.offset += n
		written += n
		if seg.offset >= len(seg.pcm) {
			seg.finished = true
			if seg.onDone != nil {
				done = append(done, seg.onDone)
			}
			s.segments = s.segments[1:]
		}
	}
	s.mu.Unlock()

	if len(done) > 0 {
		go func() {
			for _, fn := range done {
				fn()
			}
		}()
	}
}

func (s *Speaker) uninit() {
	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
}

// Stop drops the segment's remaining audio. Safe to call after the segment
// has already finished playing.
func (g *segment) Stop() {
	g.sp.mu.Lock()
	defer g.sp.mu.Unlock()

	if g.finished || g.cancelled {
		return
	}
	g.cancelled = true
	for i, seg := range g.sp.segments {
		if seg == g {
			g.sp.segments = append(g.sp.segments[:i], g.sp.segments[i+1:]...)
			break
		}
	}
}

var _ Source = (*Mic)(nil)
var _ Player = (*Speaker)(nil)
