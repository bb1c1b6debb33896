package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", GetTraceID(ctx))
}

func TestWithTraceIDGeneratesWhenEmpty(t *testing.T) {
	ctx := WithTraceID(context.Background(), "")
	traceID := GetTraceID(ctx)
	assert.NotEmpty(t, traceID)
	assert.Len(t, traceID, 36)
}

func TestGetTraceIDMissing(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestNewTraceIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTraceID()
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestLoggerWithContext(t *testing.T) {
	log := NewNop()

	// Without a trace ID the same logger comes back.
	assert.Same(t, log, log.WithContext(context.Background()))

	ctx := WithTraceID(context.Background(), "trace-xyz")
	assert.NotSame(t, log, log.WithContext(ctx))
}
