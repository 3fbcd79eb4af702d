package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/harunnryd/voxlate/pkg/adapters/translate"
)

// Request is one call seen by the mock translator.
type Request struct {
	Text   string
	Target string
}

type TranslatorConfig struct {
	// Fn computes the answer. Defaults to "<target>:<text>".
	Fn func(ctx context.Context, text, target string) (string, error)
	// Fail makes every call return an error.
	Fail bool
}

type Translator struct {
	cfg TranslatorConfig

	mu       sync.Mutex
	requests []Request
}

func NewTranslator(cfg TranslatorConfig) *Translator {
	return &Translator{cfg: cfg}
}

func (t *Translator) Name() string { return "mock_translate" }

func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	t.mu.Lock()
	t.requests = append(t.requests, Request{Text: text, Target: target})
	t.mu.Unlock()
	if t.cfg.Fail {
		return "", errors.New("mock translate: service unavailable")
	}
	if t.cfg.Fn != nil {
		return t.cfg.Fn(ctx, text, target)
	}
	return target + ":" + text, nil
}

// Requests returns the calls made so far.
func (t *Translator) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

var _ translate.Translator = (*Translator)(nil)
