package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReInitAdjustsLevel(t *testing.T) {
	ctx := context.Background()

	Init("info")
	if L().Enabled(ctx, slog.LevelDebug) {
		t.Fatal("debug enabled at info level")
	}

	// A later Init (e.g. after flag parsing) must still take effect.
	Init("debug")
	if !L().Enabled(ctx, slog.LevelDebug) {
		t.Error("debug not enabled after re-init")
	}

	Init("info")
}
