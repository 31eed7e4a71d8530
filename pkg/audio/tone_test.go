package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestToneLengthAndAmplitude(t *testing.T) {
	pcm := Tone(440, 880, 200*time.Millisecond, OutputSampleRate)

	wantLen := Frames(200*time.Millisecond, OutputSampleRate) * 2
	if len(pcm) != wantLen {
		t.Errorf("got %d bytes, want %d", len(pcm), wantLen)
	}

	limit := int16(toneAmplitude*0x7fff) + 1
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		if s > limit || s < -limit {
			t.Fatalf("sample %d out of range: %d", i/2, s)
		}
	}
}

func TestToneZeroDuration(t *testing.T) {
	if pcm := Tone(440, 440, 0, OutputSampleRate); pcm != nil {
		t.Errorf("expected nil for zero duration, got %d bytes", len(pcm))
	}
}

func TestSystemCuesNonEmpty(t *testing.T) {
	if len(ActivationTone(OutputSampleRate)) == 0 {
		t.Error("activation tone is empty")
	}
	if len(DeactivationTone(OutputSampleRate)) == 0 {
		t.Error("deactivation tone is empty")
	}
	if len(AlertTone(OutputSampleRate)) == 0 {
		t.Error("alert tone is empty")
	}
}
