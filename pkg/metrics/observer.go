package metrics

import (
	"context"
	"time"
)

// Pipeline event names.
const (
	EventCaptureStarted       = "capture_started"
	EventCaptureEnded         = "capture_ended"
	EventCaptureError         = "capture_error"
	EventTranscriptFinal      = "transcript_final"
	EventTranslationCompleted = "translation_completed"
	EventExchangeCommitted    = "exchange_committed"
	EventSpeechStarted        = "speech_started"
	EventModeChanged          = "mode_changed"
)

// Tag keys shared by pipeline events.
const (
	TagSessionID = "session_id"
	TagTraceID   = "trace_id"
	TagComponent = "component"
	TagTarget    = "target"
	TagMode      = "mode"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

type traceKey struct{}

// WithTraceID attaches a trace id so events recorded further down the call
// chain land in the same timeline.
func WithTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace id carried by ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
