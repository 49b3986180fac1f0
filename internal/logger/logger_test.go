package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warning "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestColorTextHandlerColorsByLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)

	log.Warn("queue depth high", "queue", "orders")
	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "\033[33m")
	assert.Contains(t, out, "queue depth high")
	assert.Contains(t, out, "queue=orders")

	buf.Reset()
	require.NoError(t, h.Handle(context.Background(),
		slog.NewRecord(time.Now(), slog.LevelError, "restart failed", 0)))
	assert.Contains(t, buf.String(), "\033[31m")
}
