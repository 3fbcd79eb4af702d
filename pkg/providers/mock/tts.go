package mock

import (
	"context"
	"sync"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/tts"
)

type TTSConfig struct {
	Voices    []tts.Voice
	VoicesErr error
	// Duration is how long each utterance "plays".
	Duration time.Duration
	SpeakErr error
}

// Synthesizer records utterances instead of playing them.
type Synthesizer struct {
	cfg TTSConfig

	mu        sync.Mutex
	spoken    []tts.Utterance
	cancelled int
	notify    chan tts.Utterance
}

func NewSynthesizer(cfg TTSConfig) *Synthesizer {
	return &Synthesizer{cfg: cfg, notify: make(chan tts.Utterance, 64)}
}

func (s *Synthesizer) Name() string { return "mock_tts" }

func (s *Synthesizer) Voices(context.Context) ([]tts.Voice, error) {
	if s.cfg.VoicesErr != nil {
		return nil, s.cfg.VoicesErr
	}
	return append([]tts.Voice(nil), s.cfg.Voices...), nil
}

func (s *Synthesizer) Speak(ctx context.Context, u tts.Utterance) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, u)
	s.mu.Unlock()
	select {
	case s.notify <- u:
	default:
	}
	if s.cfg.SpeakErr != nil {
		return s.cfg.SpeakErr
	}
	if s.cfg.Duration <= 0 {
		return nil
	}
	t := time.NewTimer(s.cfg.Duration)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.cancelled++
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Spoken returns the utterances received so far.
func (s *Synthesizer) Spoken() []tts.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Utterance(nil), s.spoken...)
}

// Cancelled reports how many utterances were interrupted.
func (s *Synthesizer) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Next waits for the next utterance.
func (s *Synthesizer) Next(ctx context.Context) (tts.Utterance, error) {
	select {
	case u := <-s.notify:
		return u, nil
	case <-ctx.Done():
		return tts.Utterance{}, ctx.Err()
	}
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
