package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		wantSource bool
	}{
		{name: "info has no source", level: slog.LevelInfo, wantSource: false},
		{name: "warn has source", level: slog.LevelWarn, wantSource: true},
		{name: "error has source", level: slog.LevelError, wantSource: true},
		{name: "debug has no source", level: slog.LevelDebug, wantSource: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			l := slog.New(NewConditionalSourceHandler(base, slog.LevelWarn, slog.LevelError))

			l.Log(context.Background(), tt.level, "hub reconnecting")

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestConditionalSourceHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	l := slog.New(NewConditionalSourceHandler(base, slog.LevelError)).
		With("component", "session").
		WithGroup("timer")

	l.Info("scheduled", "delay", "5s")

	out := buf.String()
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "timer.delay=5s")
	assert.NotContains(t, out, "source=")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
