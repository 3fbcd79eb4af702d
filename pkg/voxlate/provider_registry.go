package voxlate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/store"
)

type STTFactory func(cfg Config, logger *slog.Logger) (stt.Recognizer, error)
type TTSFactory func(cfg Config, logger *slog.Logger) (tts.Synthesizer, error)
type TranslateFactory func(ctx context.Context, cfg Config) (translate.Translator, error)
type StoreFactory func(ctx context.Context, cfg Config) (store.Store, error)

// ProviderRegistry maps provider names from the config to constructors.
// Names are matched case-insensitively.
type ProviderRegistry struct {
	stt       map[string]STTFactory
	tts       map[string]TTSFactory
	translate map[string]TranslateFactory
	store     map[string]StoreFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt:       make(map[string]STTFactory),
		tts:       make(map[string]TTSFactory),
		translate: make(map[string]TranslateFactory),
		store:     make(map[string]StoreFactory),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stt[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterTTS(name string, factory TTSFactory) {
	r.tts[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterTranslate(name string, factory TranslateFactory) {
	r.translate[normalizeName(name)] = factory
}

func (r *ProviderRegistry) RegisterStore(name string, factory StoreFactory) {
	r.store[normalizeName(name)] = factory
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config, logger *slog.Logger) (stt.Recognizer, error) {
	fn := r.stt[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

func (r *ProviderRegistry) BuildTTS(provider string, cfg Config, logger *slog.Logger) (tts.Synthesizer, error) {
	fn := r.tts[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("tts provider not registered: %s", provider)
	}
	return fn(cfg, logger)
}

func (r *ProviderRegistry) BuildTranslate(ctx context.Context, provider string, cfg Config) (translate.Translator, error) {
	fn := r.translate[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("translate provider not registered: %s", provider)
	}
	return fn(ctx, cfg)
}

func (r *ProviderRegistry) BuildStore(ctx context.Context, provider string, cfg Config) (store.Store, error) {
	fn := r.store[normalizeName(provider)]
	if fn == nil {
		return nil, fmt.Errorf("store provider not registered: %s", provider)
	}
	return fn(ctx, cfg)
}

// Names lists the registered providers per kind, sorted.
func (r *ProviderRegistry) Names() map[string][]string {
	return map[string][]string{
		"stt":       sortedKeys(r.stt),
		"tts":       sortedKeys(r.tts),
		"translate": sortedKeys(r.translate),
		"store":     sortedKeys(r.store),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
