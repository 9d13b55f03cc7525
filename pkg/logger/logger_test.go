package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: FormatJSON, Output: &buf, Service: "internhub-api", Version: "1.2.3"})

	log.Debug("hidden")
	Component(log, "http").Info("started", "port", 8080)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "started", record["msg"])
	assert.Equal(t, "internhub-api", record["service"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, "http", record["component"])
	assert.Equal(t, float64(8080), record["port"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "TEXT", Output: &buf})

	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil)).With("request_id", "r-1")

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=r-1")

	assert.NotNil(t, FromContext(context.Background()))
}
