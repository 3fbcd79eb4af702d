// Package translation wraps a translate.Translator with the fail-open
// behaviour the pipeline relies on: every failure becomes an empty string.
package translation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/redact"
	"github.com/harunnryd/voxlate/pkg/resilience"
)

type Config struct {
	Translator translate.Translator
	Breaker    *resilience.CircuitBreaker
	Observer   metrics.Observer
	Logger     *slog.Logger
}

type Client struct {
	translator translate.Translator
	breaker    *resilience.CircuitBreaker
	observer   metrics.Observer
	log        *slog.Logger
	now        func() time.Time
}

func NewClient(cfg Config) *Client {
	obs := cfg.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &Client{
		translator: cfg.Translator,
		breaker:    cfg.Breaker,
		observer:   obs,
		log:        logging.NewComponentLogger(cfg.Logger, "translation"),
		now:        time.Now,
	}
}

// Translate returns the translation of text into target, or "" when text is
// blank or the backend fails. It makes exactly one attempt.
func (c *Client) Translate(ctx context.Context, text, target string) string {
	out, _ := c.TranslateDetailed(ctx, text, target)
	return out
}

// TranslateDetailed is Translate but also reports why the result is empty.
// The returned error is informational; the string is always usable.
func (c *Client) TranslateDetailed(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if c.translator == nil {
		return "", errorsx.New(errorsx.ReasonTranslateFailed, "translation: no translator configured")
	}
	if !c.breaker.Allow() {
		c.log.Warn("translation_skipped",
			slog.String("target", target),
			slog.String("reason", string(errorsx.ReasonTranslateRateLimit)))
		return "", errorsx.New(errorsx.ReasonTranslateRateLimit, "translation: circuit open")
	}

	start := c.now()
	out, err := c.translator.Translate(ctx, text, target)
	latency := c.now().Sub(start)
	if err != nil {
		c.breaker.OnError(err)
		reason := errorsx.ReasonTranslateFailed
		if resilience.IsRateLimit(err) {
			reason = errorsx.ReasonTranslateRateLimit
		}
		err = errorsx.Wrap(err, reason)
		c.log.Warn("translation_failed",
			slog.String("provider", c.translator.Name()),
			slog.String("target", target),
			slog.String("reason", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
		c.record(ctx, target, latency, false)
		return "", err
	}
	c.breaker.OnSuccess()
	c.log.Debug("translation_completed",
		slog.String("provider", c.translator.Name()),
		slog.String("target", target),
		slog.String("text", redact.Preview(text, 80)),
		slog.String("translated", redact.Preview(out, 80)),
		slog.Duration("latency", latency))
	c.record(ctx, target, latency, true)
	return out, nil
}

func (c *Client) record(ctx context.Context, target string, latency time.Duration, ok bool) {
	tags := map[string]string{
		metrics.TagComponent: "translation",
		metrics.TagTarget:    target,
	}
	if id := metrics.TraceID(ctx); id != "" {
		tags[metrics.TagTraceID] = id
	}
	c.observer.RecordEvent(metrics.MetricsEvent{
		Name:   metrics.EventTranslationCompleted,
		Time:   c.now(),
		Value:  float64(latency.Milliseconds()),
		Tags:   tags,
		Fields: map[string]any{"ok": ok},
	})
}
