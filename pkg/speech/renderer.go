// Package speech renders translated text audibly through a tts.Synthesizer.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/harunnryd/voxlate/pkg/logging"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/redact"
)

type Config struct {
	Synthesizer tts.Synthesizer
	Observer    metrics.Observer
	Logger      *slog.Logger
}

// Renderer plays at most one utterance at a time. A new Speak cancels the
// one in progress.
type Renderer struct {
	synth    tts.Synthesizer
	observer metrics.Observer
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRenderer(cfg Config) *Renderer {
	obs := cfg.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &Renderer{
		synth:    cfg.Synthesizer,
		observer: obs,
		log:      logging.NewComponentLogger(cfg.Logger, "speech"),
	}
}

// Speak starts rendering text in the language of tag and returns at once.
// Blank text is ignored.
func (r *Renderer) Speak(text string, tag languages.Tag) {
	if strings.TrimSpace(text) == "" || r.synth == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()
		r.render(ctx, text, tag)
	}()
}

// Cancel stops the current utterance, if any.
func (r *Renderer) Cancel() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

// Wait blocks until every started utterance returned.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

func (r *Renderer) render(ctx context.Context, text string, tag languages.Tag) {
	voices, err := r.synth.Voices(ctx)
	if err != nil {
		r.log.Debug("voice_list_failed", slog.String("error", err.Error()))
		voices = nil
	}
	voice := SelectVoice(voices, tag.SynthesisLocale)
	u := tts.Utterance{Text: text, Locale: tag.SynthesisLocale, Voice: voice}

	voiceID := ""
	if voice != nil {
		voiceID = voice.ID
	}
	r.observer.RecordEvent(metrics.MetricsEvent{
		Name: metrics.EventSpeechStarted,
		Time: time.Now(),
		Tags: map[string]string{
			metrics.TagComponent: "speech",
			metrics.TagTarget:    tag.Code,
		},
		Fields: map[string]any{"voice": voiceID, "locale": tag.SynthesisLocale},
	})
	r.log.Debug("speech_started",
		slog.String("locale", tag.SynthesisLocale),
		slog.String("voice", voiceID),
		slog.String("text", redact.Preview(text, 60)))

	if err := r.synth.Speak(ctx, u); err != nil {
		if errors.Is(err, context.Canceled) {
			r.log.Debug("speech_cancelled", slog.String("locale", tag.SynthesisLocale))
			return
		}
		err = errorsx.Wrap(err, errorsx.ReasonSynthesisFailed)
		r.log.Warn("speech_failed",
			slog.String("provider", r.synth.Name()),
			slog.String("locale", tag.SynthesisLocale),
			slog.String("reason", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
	}
}

// SelectVoice returns the first voice whose locale shares the primary
// subtag of locale, or nil to use the synthesizer default.
func SelectVoice(voices []tts.Voice, locale string) *tts.Voice {
	for i := range voices {
		if languages.SamePrimary(voices[i].Locale, locale) {
			v := voices[i]
			return &v
		}
	}
	return nil
}
