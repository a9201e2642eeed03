package main

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
		{"", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tc := range cases {
		logger := newLogger(tc.level)
		if !logger.Enabled(context.Background(), tc.enabled) {
			t.Errorf("level %q: expected %v to be enabled", tc.level, tc.enabled)
		}
		if logger.Enabled(context.Background(), tc.muted) {
			t.Errorf("level %q: expected %v to be muted", tc.level, tc.muted)
		}
	}
}

func TestSlogAdapter_WithReturnsAdapter(t *testing.T) {
	adapter := &slogAdapter{logger: newLogger("info")}

	child := adapter.With("zone", "America/New_York")
	if child == nil {
		t.Fatal("With returned nil")
	}
	if _, ok := child.(*slogAdapter); !ok {
		t.Errorf("With returned %T, want *slogAdapter", child)
	}
}
