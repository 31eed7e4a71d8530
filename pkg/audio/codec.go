// Package audio provides the PCM16 wire codec, scheduled speech playback,
// microphone capture, and local device plumbing for the navigation agent.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Sample rates used on the agent wire.
const (
	InputSampleRate  = 16000 // microphone → agent
	OutputSampleRate = 24000 // agent speech → speaker
)

const bytesPerSample = 2

// ErrMalformedAudio indicates a payload that is not valid base64 PCM16.
var ErrMalformedAudio = errors.New("audio: malformed payload")

// MarshalPCM16 converts float samples in [-1,1] to raw little-endian PCM16.
// Out-of-range samples are clamped, never wrapped.
func MarshalPCM16(samples []float64) []byte {
	pcm := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s*0x7fff)))
	}
	return pcm
}

// EncodePCM16 converts float samples to the base64 PCM16 wire format.
func EncodePCM16(samples []float64) string {
	return base64.StdEncoding.EncodeToString(MarshalPCM16(samples))
}

// DecodePCM16 decodes a base64 payload into raw little-endian PCM16 bytes.
// The payload is assumed to be headerless PCM, not a container format, so
// no parsing happens beyond the base64 layer.
func DecodePCM16(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAudio, err)
	}
	return pcm, nil
}

// Duration returns the playback duration of a mono PCM16 buffer.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	frames := len(pcm) / bytesPerSample
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
