package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestMarshalPCM16Clamps(t *testing.T) {
	tests := []struct {
		name   string
		sample float64
		want   int16
	}{
		{"zero", 0, 0},
		{"full scale", 1, 32767},
		{"negative full scale", -1, -32767},
		{"clamped high", 1.5, 32767},
		{"clamped low", -2.0, -32767},
		{"half scale", 0.5, 16383},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := MarshalPCM16([]float64{tt.sample})
			if len(pcm) != 2 {
				t.Fatalf("expected 2 bytes, got %d", len(pcm))
			}
			got := int16(binary.LittleEndian.Uint16(pcm))
			if got != tt.want {
				t.Errorf("sample %v: got %d, want %d", tt.sample, got, tt.want)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := []float64{0, 0.25, -0.25, 1, -1}
	encoded := EncodePCM16(samples)

	pcm, err := DecodePCM16(encoded)
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	want := MarshalPCM16(samples)
	if len(pcm) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(pcm), len(want))
	}
	for i := range pcm {
		if pcm[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, pcm[i], want[i])
		}
	}
}

func TestDecodePCM16Malformed(t *testing.T) {
	if _, err := DecodePCM16("not!!valid!!base64"); !errors.Is(err, ErrMalformedAudio) {
		t.Errorf("expected ErrMalformedAudio, got %v", err)
	}
}

func TestDecodePCM16NoContainerParsing(t *testing.T) {
	// Arbitrary bytes must pass through untouched; the codec never inspects
	// payload contents for headers.
	raw := []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01}
	pcm, err := DecodePCM16(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	if string(pcm) != string(raw) {
		t.Errorf("payload modified: got %v, want %v", pcm, raw)
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name       string
		bytes      int
		sampleRate int
		want       time.Duration
	}{
		{"one second at 24k", 48000, 24000, time.Second},
		{"100ms at 16k", 3200, 16000, 100 * time.Millisecond},
		{"empty", 0, 24000, 0},
		{"zero rate", 48000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duration(make([]byte, tt.bytes), tt.sampleRate)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
