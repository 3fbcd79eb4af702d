package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/voxlate/pkg/pipeline"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
	"github.com/harunnryd/voxlate/pkg/translation"
)

func newTestREPL(t *testing.T, sttCfg mock.STTConfig) (*repl, *bytes.Buffer) {
	t.Helper()
	ctrl, err := pipeline.New(context.Background(), pipeline.Config{
		Recognizer: mock.NewRecognizer(sttCfg),
		Translator: translation.NewClient(translation.Config{Translator: mock.NewTranslator(mock.TranslatorConfig{})}),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Close() })
	var buf bytes.Buffer
	return newREPL(ctrl, &buf), &buf
}

func (r *repl) output(buf *bytes.Buffer) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return buf.String()
}

func waitOutput(t *testing.T, r *repl, buf *bytes.Buffer, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(r.output(buf), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q:\n%s", want, r.output(buf))
}

func TestREPLSayAndTarget(t *testing.T) {
	r, buf := newTestREPL(t, mock.STTConfig{})
	ctx := context.Background()

	if err := r.execute(ctx, "say hello"); err != nil {
		t.Fatalf("say: %v", err)
	}
	waitOutput(t, r, buf, "hi: hi:hello")

	if err := r.execute(ctx, "target xx"); err == nil {
		t.Fatalf("expected unknown language error")
	}
	if err := r.execute(ctx, "TARGET fr"); err != nil {
		t.Fatalf("target: %v", err)
	}
	waitOutput(t, r, buf, "target=fr input=en")

	if err := r.execute(ctx, "say"); err == nil {
		t.Fatalf("expected error for empty say")
	}
	if err := r.execute(ctx, "history 1"); err != nil {
		t.Fatalf("history: %v", err)
	}
	waitOutput(t, r, buf, "[hi] hello -> hi:hello")
	if err := r.execute(ctx, "history zero"); err == nil {
		t.Fatalf("expected bad count error")
	}
}

func TestREPLListenOnce(t *testing.T) {
	r, buf := newTestREPL(t, mock.STTConfig{Script: []mock.Result{{Text: "good morning"}}})
	if err := r.execute(context.Background(), "once"); err != nil {
		t.Fatalf("once: %v", err)
	}
	waitOutput(t, r, buf, "heard: good morning")
	waitOutput(t, r, buf, "hi: hi:good morning")
	waitOutput(t, r, buf, "[idle]")
}

func TestREPLUnsupportedCapture(t *testing.T) {
	r, buf := newTestREPL(t, mock.STTConfig{Unsupported: true})
	if err := r.execute(context.Background(), "live"); err == nil {
		t.Fatalf("expected unsupported error")
	}
	waitOutput(t, r, buf, "not available")
}

func TestREPLUnknownAndQuit(t *testing.T) {
	r, _ := newTestREPL(t, mock.STTConfig{})
	ctx := context.Background()
	if err := r.execute(ctx, "dance"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command, got %v", err)
	}
	if err := r.execute(ctx, "   "); err != nil {
		t.Fatalf("blank line: %v", err)
	}
	if err := r.execute(ctx, "quit"); !errors.Is(err, errQuit) {
		t.Fatalf("expected quit, got %v", err)
	}
}

func TestREPLRunStopsAtQuit(t *testing.T) {
	r, buf := newTestREPL(t, mock.STTConfig{})
	done := make(chan error, 1)
	go func() {
		done <- r.run(context.Background(), strings.NewReader("say hi\nstate\nquit\nsay never\n"))
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	out := r.output(buf)
	if !strings.Contains(out, "mode=idle target=hi") || strings.Contains(out, "hi:never") {
		t.Fatalf("unexpected session output:\n%s", out)
	}
}
