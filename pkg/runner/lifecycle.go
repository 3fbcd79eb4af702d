package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDrainTimeout is returned when in-flight work outlives the drain window.
// History entries still pending at that point may be lost.
var ErrDrainTimeout = errors.New("drain timeout")

// LifecycleRunner owns the serving window of a process: hooks start,
// the caller's context ends or Stop is called, work drains, hooks stop.
type LifecycleRunner struct {
	hooks   Hooks
	drainer Drainer
	timeout time.Duration

	state atomic.Int32

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LifecycleRunner{
		hooks:   hooks,
		drainer: drainer,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Run starts the hooks and blocks until ctx ends or Stop is called. It can
// run once.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateNew), int32(StateStarting)) {
		return fmt.Errorf("runner: cannot run from state %s", r.State())
	}
	PrintBanner()
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	if r.stopped {
		cancel()
	}
	r.mu.Unlock()
	defer cancel()

	if r.hooks.OnStart != nil {
		if err := r.hooks.OnStart(runCtx); err != nil {
			_ = r.shutdown()
			return err
		}
	}
	r.state.Store(int32(StateRunning))
	<-runCtx.Done()
	return r.shutdown()
}

// Stop ends Run and waits for the drain. Stopping a runner that never ran
// only marks it stopped.
func (r *LifecycleRunner) Stop() error {
	if r.state.CompareAndSwap(int32(StateNew), int32(StateStopped)) {
		r.stopOnce.Do(func() { close(r.done) })
		return nil
	}
	r.mu.Lock()
	r.stopped = true
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-r.done
	return r.stopErr
}

func (r *LifecycleRunner) State() State {
	return State(r.state.Load())
}

// Done is closed once the runner has fully stopped.
func (r *LifecycleRunner) Done() <-chan struct{} {
	return r.done
}

func (r *LifecycleRunner) shutdown() error {
	r.stopOnce.Do(func() {
		defer close(r.done)
		r.state.Store(int32(StateDraining))
		r.stopErr = r.drain()
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.state.Store(int32(StateStopped))
	})
	return r.stopErr
}

func (r *LifecycleRunner) drain() error {
	if r.drainer == nil {
		return nil
	}
	result := make(chan error, 1)
	go func() { result <- r.drainer.Drain() }()
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-timer.C:
		return ErrDrainTimeout
	}
}
