package infrastructure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"garbage", "INFO"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in).String(), "level %q", tt.in)
	}
}

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetTraceID(ctx))
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.NotEmpty(t, id)

	// a second call must not replace an existing ID
	ctx2 := EnsureTraceID(ctx)
	assert.Equal(t, id, GetTraceID(ctx2))
}

func TestRecordErrorNilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordError(context.Background(), nil)
	})
}
