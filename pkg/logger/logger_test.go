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
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNew_JSONWithAttrsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{
		Output: &buf,
		Level:  "warn",
		Format: FormatJSON,
		Attrs:  []slog.Attr{slog.String("service", "impact-hub")},
	})

	log.Info("hidden")
	log.Warn("shown", UserID("u1"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "impact-hub", rec["service"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Format: FormatText}).Info("hello", EventID("evt-1"))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "event_id=evt-1")
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf}).With(RequestID("req-1"))

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("in handler")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}
