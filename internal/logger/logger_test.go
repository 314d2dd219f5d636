package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"DEBUG", "console", false},
		{"warn", "", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			log, err := New(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	log, err := New("warn", "json")
	require.NoError(t, err)
	assert.Nil(t, log.Check(zap.InfoLevel, "hidden"))
	assert.NotNil(t, log.Check(zap.WarnLevel, "shown"))
}

func TestFromContext_AddsTraceIDs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	core, logs := observer.New(zap.InfoLevel)
	FromContext(ctx, zap.New(core)).Info("hello")

	entry := logs.All()[0]
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry.ContextMap()["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry.ContextMap()["span_id"])
}

func TestFromContext_NoSpan(t *testing.T) {
	assert.Nil(t, TraceFields(context.Background()))

	core, logs := observer.New(zap.InfoLevel)
	FromContext(context.Background(), zap.New(core)).Info("hello")
	assert.Empty(t, logs.All()[0].Context)
}
