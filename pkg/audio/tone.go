package audio

import (
	"math"
	"time"
)

// toneAmplitude keeps system cues quieter than agent speech.
const toneAmplitude = 0.3

// Tone synthesizes a mono PCM16 sine sweep from startHz to endHz with a
// linear fade-out so cues end without a click.
func Tone(startHz, endHz float64, dur time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * dur.Seconds())
	if n <= 0 {
		return nil
	}
	samples := make([]float64, n)
	phase := 0.0
	for i := range samples {
		t := float64(i) / float64(n)
		hz := startHz + (endHz-startHz)*t
		phase += 2 * math.Pi * hz / float64(sampleRate)
		fade := 1 - t
		samples[i] = math.Sin(phase) * toneAmplitude * fade
	}
	return MarshalPCM16(samples)
}

// ActivationTone is the rising chirp played when a session opens.
func ActivationTone(sampleRate int) []byte {
	return Tone(440, 880, 200*time.Millisecond, sampleRate)
}

// DeactivationTone is the falling chirp played when a session closes.
func DeactivationTone(sampleRate int) []byte {
	return Tone(880, 440, 200*time.Millisecond, sampleRate)
}

// AlertTone is the urgent cue played when a hazard is reported.
func AlertTone(sampleRate int) []byte {
	pulse := Tone(880, 880, 120*time.Millisecond, sampleRate)
	gap := make([]byte, Frames(60*time.Millisecond, sampleRate)*bytesPerSample)

	var out []byte
	for i := 0; i < 3; i++ {
		if i > 0 {
			out = append(out, gap...)
		}
		out = append(out, pulse...)
	}
	return out
}

// Frames returns the number of mono PCM16 frames covering dur.
func Frames(dur time.Duration, sampleRate int) int {
	return int(float64(sampleRate) * dur.Seconds())
}
