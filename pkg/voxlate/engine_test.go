package voxlate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/pipeline"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/harunnryd/voxlate/pkg/store"
)

func init() {
	runner.BannerOutput = nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testProviders struct {
	registry *ProviderRegistry
	rec      *mock.Recognizer
	synth    *mock.Synthesizer
	tr       *mock.Translator
	dir      string
}

func newTestProviders(t *testing.T) *testProviders {
	t.Helper()
	p := &testProviders{
		registry: NewProviderRegistry(),
		rec:      mock.NewRecognizer(mock.STTConfig{Script: []mock.Result{{Text: "hello"}}}),
		synth:    mock.NewSynthesizer(mock.TTSConfig{}),
		tr:       mock.NewTranslator(mock.TranslatorConfig{}),
		dir:      t.TempDir(),
	}
	p.registry.RegisterSTT("mock", func(Config, *slog.Logger) (stt.Recognizer, error) { return p.rec, nil })
	p.registry.RegisterSTT("none", func(Config, *slog.Logger) (stt.Recognizer, error) { return nil, stt.ErrUnsupported })
	p.registry.RegisterTTS("mock", func(Config, *slog.Logger) (tts.Synthesizer, error) { return p.synth, nil })
	p.registry.RegisterTranslate("mock", func(context.Context, Config) (translate.Translator, error) { return p.tr, nil })
	p.registry.RegisterStore("file", func(context.Context, Config) (store.Store, error) { return store.NewFileStore(p.dir) })
	return p
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Vendors.STT.Provider = "mock"
	cfg.Vendors.TTS.Provider = "mock"
	cfg.Vendors.Translate.Provider = "mock"
	cfg.Store.Provider = "file"
	cfg.Observability.ArtifactsDir = t.TempDir()
	return cfg
}

func TestEngineTranslatesAndPersists(t *testing.T) {
	p := newTestProviders(t)
	cfg := testConfig(t)
	e, err := NewEngine(context.Background(), EngineOptions{Config: cfg, Providers: p.registry, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	out, err := e.Controller().Translate(context.Background(), "hello", true)
	if err != nil || out != "hi:hello" {
		t.Fatalf("translate: %q %v", out, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	u, err := p.synth.Next(ctx)
	if err != nil {
		t.Fatalf("expected speech: %v", err)
	}
	if u.Text != "hi:hello" || u.Locale != "hi-IN" {
		t.Fatalf("unexpected utterance %+v", u)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(p.dir, history.DefaultKey+".json"))
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	var saved []history.Exchange
	if err := json.Unmarshal(raw, &saved); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(saved) != 1 || saved[0].TranslatedText != "hi:hello" {
		t.Fatalf("unexpected persisted history %+v", saved)
	}

	entries, err := os.ReadDir(cfg.Observability.ArtifactsDir)
	if err != nil {
		t.Fatalf("read artifacts: %v", err)
	}
	var timeline bool
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".jsonl") {
			timeline = true
		}
	}
	if !timeline {
		t.Fatalf("expected a timeline artifact, got %v", entries)
	}
}

func TestEngineRehydratesHistory(t *testing.T) {
	p := newTestProviders(t)
	cfg := testConfig(t)
	first, err := NewEngine(context.Background(), EngineOptions{Config: cfg, Providers: p.registry, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := first.Controller().Translate(context.Background(), "one", false); err != nil {
		t.Fatalf("translate: %v", err)
	}
	_ = first.Close()

	second, err := NewEngine(context.Background(), EngineOptions{Config: cfg, Providers: p.registry, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("second engine: %v", err)
	}
	defer second.Close()
	hist := second.Controller().History()
	if len(hist) != 1 || hist[0].SourceText != "one" {
		t.Fatalf("expected rehydrated history, got %+v", hist)
	}
}

func TestEngineUnknownProvider(t *testing.T) {
	p := newTestProviders(t)
	cfg := testConfig(t)
	cfg.Vendors.Translate.Provider = "nope"
	_, err := NewEngine(context.Background(), EngineOptions{Config: cfg, Providers: p.registry, Logger: quietLogger()})
	if err == nil || !strings.Contains(err.Error(), "translate provider not registered") {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestEngineUnsupportedCaptureStillTranslates(t *testing.T) {
	p := newTestProviders(t)
	cfg := testConfig(t)
	cfg.Vendors.STT.Provider = "none"
	e, err := NewEngine(context.Background(), EngineOptions{Config: cfg, Providers: p.registry, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Close()
	if err := e.Controller().StartOnce(); !errors.Is(err, stt.ErrUnsupported) {
		t.Fatalf("expected unsupported capture, got %v", err)
	}
	if out, _ := e.Controller().Translate(context.Background(), "typed", false); out != "hi:typed" {
		t.Fatalf("unexpected translation %q", out)
	}
}

func TestEngineRunDrainsOnCancel(t *testing.T) {
	p := newTestProviders(t)
	cfg := testConfig(t)
	started := make(chan struct{})
	stopped := make(chan struct{})
	e, err := NewEngine(context.Background(), EngineOptions{
		Config:    cfg,
		Providers: p.registry,
		Logger:    quietLogger(),
		Hooks: runner.Hooks{
			OnStart: func(context.Context) error { close(started); return nil },
			OnStop:  func() { close(stopped) },
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	<-started
	if err := e.Controller().StartLive(); err != nil {
		t.Fatalf("start live: %v", err)
	}
	if e.Health() != nil {
		t.Fatalf("expected healthy engine")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	<-stopped
	if e.State() != runner.StateStopped || e.Health() == nil {
		t.Fatalf("expected stopped engine")
	}
	if e.Controller().Mode() != pipeline.ModeIdle {
		t.Fatalf("expected idle controller after drain")
	}
	if p.rec.Active() != 0 {
		t.Fatalf("expected capture released")
	}
}
