package translation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
	"github.com/harunnryd/voxlate/pkg/resilience"
)

func TestBlankTextSkipsTranslator(t *testing.T) {
	tr := mock.NewTranslator(mock.TranslatorConfig{})
	c := NewClient(Config{Translator: tr})
	for _, in := range []string{"", "   ", "\n\t"} {
		if out := c.Translate(context.Background(), in, "hi"); out != "" {
			t.Fatalf("expected empty output for %q, got %q", in, out)
		}
	}
	if n := len(tr.Requests()); n != 0 {
		t.Fatalf("expected no translator calls, got %d", n)
	}
}

func TestTranslateReturnsProviderOutput(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	tr := mock.NewTranslator(mock.TranslatorConfig{})
	c := NewClient(Config{Translator: tr, Observer: obs})

	ctx := metrics.WithTraceID(context.Background(), "trace-7")
	out, err := c.TranslateDetailed(ctx, "hello", "fr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "fr:hello" {
		t.Fatalf("unexpected output %q", out)
	}
	reqs := tr.Requests()
	if len(reqs) != 1 || reqs[0].Target != "fr" {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	evs := obs.Events()
	if len(evs) != 1 || evs[0].Name != metrics.EventTranslationCompleted {
		t.Fatalf("expected one translation event, got %+v", evs)
	}
	if evs[0].Tags[metrics.TagTarget] != "fr" || evs[0].Tags[metrics.TagTraceID] != "trace-7" || evs[0].Fields["ok"] != true {
		t.Fatalf("unexpected event %+v", evs[0])
	}
}

func TestFailureIsFailOpen(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	c := NewClient(Config{
		Translator: mock.NewTranslator(mock.TranslatorConfig{Fail: true}),
		Observer:   obs,
	})
	if out := c.Translate(context.Background(), "hello", "hi"); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
	_, err := c.TranslateDetailed(context.Background(), "hello", "hi")
	if !errorsx.HasReason(err, errorsx.ReasonTranslateFailed) {
		t.Fatalf("expected translate_failed, got %v", err)
	}
	if errorsx.KindOf(err) != errorsx.KindTranslationFailure {
		t.Fatalf("unexpected kind %q", errorsx.KindOf(err))
	}
	if obs.Events()[0].Fields["ok"] != false {
		t.Fatalf("expected failed event")
	}
}

func TestMissingTranslatorFailsOpen(t *testing.T) {
	c := NewClient(Config{})
	out, err := c.TranslateDetailed(context.Background(), "hello", "hi")
	if out != "" || err == nil {
		t.Fatalf("expected empty output and error, got %q %v", out, err)
	}
}

func TestRateLimitOpensBreaker(t *testing.T) {
	calls := 0
	tr := mock.NewTranslator(mock.TranslatorConfig{
		Fn: func(context.Context, string, string) (string, error) {
			calls++
			return "", resilience.RateLimitError{Provider: "test"}
		},
	})
	c := NewClient(Config{
		Translator: tr,
		Breaker:    resilience.NewCircuitBreaker(2, time.Minute),
	})

	for i := 0; i < 2; i++ {
		_, err := c.TranslateDetailed(context.Background(), "hello", "hi")
		if !errorsx.HasReason(err, errorsx.ReasonTranslateRateLimit) {
			t.Fatalf("call %d: expected rate limit reason, got %v", i, err)
		}
	}
	_, err := c.TranslateDetailed(context.Background(), "hello", "hi")
	if !errorsx.HasReason(err, errorsx.ReasonTranslateRateLimit) {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected breaker to skip third call, got %d calls", calls)
	}
}

func TestContextCancelIsFailOpen(t *testing.T) {
	tr := mock.NewTranslator(mock.TranslatorConfig{
		Fn: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	})
	c := NewClient(Config{Translator: tr})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := c.TranslateDetailed(ctx, "hello", "hi")
	if out != "" || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled fail-open result, got %q %v", out, err)
	}
}
