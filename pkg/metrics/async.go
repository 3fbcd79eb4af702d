package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver hands events to inner on its own goroutine so the pipeline
// never waits on disk or log I/O. When the buffer is full the event is
// dropped and counted.
type AsyncObserver struct {
	inner Observer
	ch    chan MetricsEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	delivered atomic.Int64
	dropped   atomic.Int64
}

// AsyncStats counts what happened to recorded events.
type AsyncStats struct {
	Delivered int64
	Dropped   int64
}

func NewAsyncObserver(inner Observer, buffer int) *AsyncObserver {
	if inner == nil {
		inner = NoopObserver{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{inner: inner, ch: make(chan MetricsEvent, buffer), done: make(chan struct{})}
	go func() {
		defer close(a.done)
		for ev := range a.ch {
			a.inner.RecordEvent(ev)
			a.delivered.Add(1)
		}
	}()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil {
		return
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *AsyncObserver) Stats() AsyncStats {
	if a == nil {
		return AsyncStats{}
	}
	return AsyncStats{Delivered: a.delivered.Load(), Dropped: a.dropped.Load()}
}

// Close stops accepting events and returns once the buffer is flushed. It
// is safe to call more than once.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.ch)
	}
	a.mu.Unlock()
	<-a.done
}
