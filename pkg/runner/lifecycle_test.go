package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func init() {
	BannerOutput = nil
}

func TestLifecycleRunnerDrainsOnCancel(t *testing.T) {
	drained := make(chan struct{})
	var started, stopped bool
	r := NewLifecycleRunner(DrainFunc(func() error {
		close(drained)
		return nil
	}), Hooks{
		OnStart: func(context.Context) error { started = true; return nil },
		OnStop:  func() { stopped = true },
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for r.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not stop")
	}
	select {
	case <-drained:
	default:
		t.Fatalf("expected drainer to run")
	}
	if !started || !stopped {
		t.Fatalf("expected hooks to run, started=%v stopped=%v", started, stopped)
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}
}

func TestLifecycleRunnerStartFailure(t *testing.T) {
	boom := errors.New("listen failed")
	r := NewLifecycleRunner(nil, Hooks{
		OnStart: func(context.Context) error { return boom },
	}, time.Second)
	if err := r.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected second run to fail")
	}
}

func TestLifecycleRunnerDrainTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	r := NewLifecycleRunner(DrainFunc(func() error {
		<-block
		return nil
	}), Hooks{}, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("expected drain timeout, got %v", err)
	}
}

func TestLifecycleRunnerStopWaitsForDrain(t *testing.T) {
	drained := make(chan struct{})
	r := NewLifecycleRunner(DrainFunc(func() error {
		time.Sleep(20 * time.Millisecond)
		close(drained)
		return nil
	}), Hooks{}, time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(context.Background()) }()
	deadline := time.Now().Add(time.Second)
	for r.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-drained:
	default:
		t.Fatalf("Stop returned before the drain finished")
	}
	select {
	case <-r.Done():
	default:
		t.Fatalf("expected Done closed after Stop")
	}
	if err := <-errCh; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestLifecycleRunnerStopBeforeRun(t *testing.T) {
	r := NewLifecycleRunner(nil, Hooks{}, time.Second)
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected run after stop to fail")
	}
}
