package metrics

import (
	"testing"
	"time"
)

func TestAsyncObserverDeliversBeforeClose(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 8)
	for i := 0; i < 5; i++ {
		async.RecordEvent(MetricsEvent{Name: EventTranscriptFinal, Time: time.Now()})
	}
	async.Close()
	if got := mem.Count(EventTranscriptFinal); got != 5 {
		t.Fatalf("expected 5 events, got %d", got)
	}
	async.RecordEvent(MetricsEvent{Name: EventTranscriptFinal})
	if got := len(mem.Events()); got != 5 {
		t.Fatalf("expected no events after close, got %d", got)
	}
	async.Close()
}

func TestAsyncObserverNilSafe(t *testing.T) {
	var a *AsyncObserver
	a.RecordEvent(MetricsEvent{Name: "x"})
	a.Close()
	if a.Stats() != (AsyncStats{}) {
		t.Fatalf("nil observer should report nothing")
	}
}

type blockingObserver struct {
	release chan struct{}
	mem     *MemoryObserver
}

func (b blockingObserver) RecordEvent(ev MetricsEvent) {
	<-b.release
	b.mem.RecordEvent(ev)
}

func TestAsyncObserverDropsWhenFull(t *testing.T) {
	inner := blockingObserver{release: make(chan struct{}), mem: NewMemoryObserver()}
	async := NewAsyncObserver(inner, 1)
	for i := 0; i < 10; i++ {
		async.RecordEvent(MetricsEvent{Name: EventCaptureStarted})
	}
	if async.Stats().Dropped == 0 {
		t.Fatalf("expected drops with a full buffer")
	}
	close(inner.release)
	async.Close()
	stats := async.Stats()
	if stats.Delivered+stats.Dropped != 10 {
		t.Fatalf("every event should be delivered or dropped: %+v", stats)
	}
	if int(stats.Delivered) != inner.mem.Count(EventCaptureStarted) {
		t.Fatalf("delivered count mismatch: %+v vs %d", stats, inner.mem.Count(EventCaptureStarted))
	}
}
