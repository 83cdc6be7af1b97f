package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInitToFlushesOnSync(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "warn")
	Info("hidden_event", "k", 1)
	Warn("board_save_failed", "topic", "G")
	Sync()
	Sync()

	out := buf.String()
	require.Contains(t, out, "board_save_failed")
	require.Contains(t, out, "topic=G")
	require.NotContains(t, out, "hidden_event")
}

func TestLogConfigSummary(t *testing.T) {
	var buf bytes.Buffer
	LogConfigSummary(&buf, "board_summary", []string{"topics: 5"})
	require.Contains(t, buf.String(), "== board summary ")
	require.Contains(t, buf.String(), "- topics: 5\n")

	buf.Reset()
	LogConfigSummary(&buf, "empty", nil)
	require.Empty(t, buf.String())
}
