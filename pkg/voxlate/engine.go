// Package voxlate assembles a translation Controller and its providers from
// a Config.
package voxlate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/configutil"
	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/observers"
	"github.com/harunnryd/voxlate/pkg/pipeline"
	"github.com/harunnryd/voxlate/pkg/redact"
	"github.com/harunnryd/voxlate/pkg/resilience"
	"github.com/harunnryd/voxlate/pkg/runner"
	"github.com/harunnryd/voxlate/pkg/speech"
	"github.com/harunnryd/voxlate/pkg/store"
	"github.com/harunnryd/voxlate/pkg/translation"
)

type Engine struct {
	cfg        Config
	log        *slog.Logger
	providers  *ProviderRegistry
	controller *pipeline.Controller
	renderer   *speech.Renderer
	store      store.Store
	asyncObs   *metrics.AsyncObserver
	timeline   *observers.TimelineObserver
	runner     *runner.LifecycleRunner
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Logger defaults to a process logger built from Config.
	Logger *slog.Logger
	// Hooks run inside the serving window of Run.
	Hooks runner.Hooks
	// DrainTimeout bounds how long Run waits for in-flight translations.
	DrainTimeout time.Duration
}

// NewEngine builds every provider named by the config and starts the
// controller. Provider errors abort construction.
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	redact.SetEnabled(cfg.Privacy.RedactPII)
	base := opts.Logger
	if base == nil {
		base = logging.InitLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	log := logging.NewComponentLogger(base, "engine")

	log.Info("voxlate_init",
		slog.String("environment", cfg.Environment),
		slog.String("stt_provider", cfg.Vendors.STT.Provider),
		slog.String("tts_provider", cfg.Vendors.TTS.Provider),
		slog.String("translate_provider", cfg.Vendors.Translate.Provider),
		slog.String("store_provider", cfg.Store.Provider),
		slog.String("target", cfg.Languages.Target),
	)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	e := &Engine{cfg: cfg, log: log, providers: providers}

	obsList := []metrics.Observer{observers.NewLoggerObserver(base)}
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		retention := observers.Retention{
			Dir:      dir,
			MaxAge:   time.Duration(cfg.Observability.RetentionDays) * 24 * time.Hour,
			MaxFiles: cfg.Observability.MaxFiles,
		}
		removed, err := retention.Purge()
		if err != nil {
			log.Warn("artifact_purge_failed", slog.String("error", err.Error()))
		} else if removed > 0 {
			log.Info("artifacts_purged", slog.Int("removed", removed))
		}
		e.timeline = observers.NewTimelineObserver(dir)
		obsList = append(obsList, e.timeline)
	}
	e.asyncObs = metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)

	st, err := providers.BuildStore(ctx, cfg.Store.Provider, cfg)
	if err != nil {
		e.closeObservers()
		return nil, fmt.Errorf("store: %w", err)
	}
	e.store = st

	translator, err := providers.BuildTranslate(ctx, cfg.Vendors.Translate.Provider, cfg)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("translate: %w", err)
	}
	recognizer, err := providers.BuildSTT(cfg.Vendors.STT.Provider, cfg, base)
	if err != nil {
		if !errors.Is(err, stt.ErrUnsupported) {
			e.release()
			return nil, fmt.Errorf("stt: %w", err)
		}
		log.Warn("capture_unavailable", slog.String("error", err.Error()))
		recognizer = stt.Unsupported{}
	}
	synth, err := providers.BuildTTS(cfg.Vendors.TTS.Provider, cfg, base)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("tts: %w", err)
	}

	client := translation.NewClient(translation.Config{
		Translator: translator,
		Breaker: resilience.NewCircuitBreaker(cfg.Translate.BreakerThreshold,
			configutil.Millis(cfg.Translate.BreakerCooldownMS, 30*time.Second)),
		Observer: e.asyncObs,
		Logger:   base,
	})
	e.renderer = speech.NewRenderer(speech.Config{
		Synthesizer: synth,
		Observer:    e.asyncObs,
		Logger:      base,
	})
	ledger := history.NewLedger(history.Config{
		Store:    st,
		Key:      cfg.History.Key,
		Capacity: cfg.History.Capacity,
		Logger:   base,
	})

	e.controller, err = pipeline.New(ctx, pipeline.Config{
		Recognizer:     recognizer,
		Translator:     client,
		Speaker:        e.renderer,
		Ledger:         ledger,
		TargetLanguage: cfg.Languages.Target,
		InputLanguage:  cfg.Languages.Input,
		Observer:       e.asyncObs,
		Logger:         base,
	})
	if err != nil {
		e.release()
		return nil, err
	}

	hooks := runner.Hooks{
		OnStart: func(ctx context.Context) error {
			if opts.Hooks.OnStart != nil {
				if err := opts.Hooks.OnStart(ctx); err != nil {
					return err
				}
			}
			log.Info("engine_ready",
				slog.String("target", cfg.Languages.Target),
				slog.String("input", cfg.Languages.Input))
			return nil
		},
		OnStop: func() {
			if opts.Hooks.OnStop != nil {
				opts.Hooks.OnStop()
			}
			e.release()
			log.Info("shutdown", slog.Int("goroutines", runtime.NumGoroutine()))
		},
	}
	drainer := runner.DrainFunc(func() error {
		if err := e.controller.Stop(); err != nil && !errors.Is(err, pipeline.ErrClosed) {
			log.Warn("stop_failed", slog.String("error", err.Error()))
		}
		return e.controller.Drain()
	})
	timeout := opts.DrainTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e.runner = runner.NewLifecycleRunner(drainer, hooks, timeout)
	return e, nil
}

// Run blocks until ctx ends or Stop is called, then drains and releases
// every resource.
func (e *Engine) Run(ctx context.Context) error {
	return e.runner.Run(ctx)
}

func (e *Engine) Stop() error {
	return e.runner.Stop()
}

// Close releases the engine without the runner, for one-shot commands.
// Pending translations are recorded and queued speech finishes first.
func (e *Engine) Close() error {
	if e.controller != nil {
		_ = e.controller.Drain()
	}
	if e.renderer != nil {
		e.renderer.Wait()
	}
	e.release()
	return nil
}

func (e *Engine) release() {
	if e.controller != nil {
		_ = e.controller.Close()
	}
	if e.renderer != nil {
		e.renderer.Wait()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("store_close_failed", slog.String("error", err.Error()))
		}
		e.store = nil
	}
	e.closeObservers()
}

func (e *Engine) closeObservers() {
	if e.asyncObs != nil {
		e.asyncObs.Close()
		if stats := e.asyncObs.Stats(); stats.Dropped > 0 {
			e.log.Warn("metrics_dropped",
				slog.Int64("dropped", stats.Dropped),
				slog.Int64("delivered", stats.Delivered))
		}
		e.asyncObs = nil
	}
	if e.timeline != nil {
		_ = e.timeline.Close()
		e.timeline = nil
	}
}

func (e *Engine) Controller() *pipeline.Controller {
	return e.controller
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) ProviderRegistry() *ProviderRegistry {
	return e.providers
}

func (e *Engine) State() runner.State {
	return e.runner.State()
}

// Health reports whether the engine can serve requests.
func (e *Engine) Health() error {
	if e.controller == nil {
		return fmt.Errorf("missing controller")
	}
	if e.runner.State() == runner.StateStopped {
		return fmt.Errorf("engine stopped")
	}
	return nil
}
