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
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestInitializeWithWriter(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("info", "json", &buf)
	t.Cleanup(func() { Initialize("info", "text") })

	EnterMethod("ignored.atInfo")
	Info("vehicle created", "vehicleID", int64(3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "vehicle created", line["msg"])
	assert.Equal(t, "rentacar", line["app"])
	assert.Equal(t, float64(3), line["vehicleID"])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("debug", "text", &buf)
	t.Cleanup(func() { Initialize("info", "text") })

	assert.Same(t, Get(), FromContext(context.Background()))

	ctx := WithContext(context.Background(), Get().With("request_id", "abc"))
	InfoContext(ctx, "handled")
	assert.Contains(t, buf.String(), "request_id=abc")
}
