package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/voxlate/pkg/adapters/stt"
	"github.com/harunnryd/voxlate/pkg/adapters/translate"
	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/audio"
	"github.com/harunnryd/voxlate/pkg/configutil"
	"github.com/harunnryd/voxlate/pkg/providers/deepgram"
	"github.com/harunnryd/voxlate/pkg/providers/elevenlabs"
	"github.com/harunnryd/voxlate/pkg/providers/gemini"
	"github.com/harunnryd/voxlate/pkg/providers/httptranslate"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
	"github.com/harunnryd/voxlate/pkg/providers/openai"
	"github.com/harunnryd/voxlate/pkg/store"
	"github.com/harunnryd/voxlate/pkg/voxlate"
)

type deepgramSettings struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Language       string `mapstructure:"language"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Encoding       string `mapstructure:"encoding"`
	UtteranceEndMS *int   `mapstructure:"utterance_end_ms"`
	MaxSessionMS   int    `mapstructure:"max_session_ms"`
}

type mockSTTSettings struct {
	Transcripts []string `mapstructure:"transcripts"`
	DelayMS     int      `mapstructure:"delay_ms"`
	Unsupported bool     `mapstructure:"unsupported"`
}

type elevenlabsSettings struct {
	APIKey       string            `mapstructure:"api_key"`
	VoiceID      string            `mapstructure:"voice_id"`
	Voices       map[string]string `mapstructure:"voices"`
	ModelID      string            `mapstructure:"model_id"`
	OutputFormat string            `mapstructure:"output_format"`
	BaseURL      string            `mapstructure:"base_url"`
}

type mockTTSSettings struct {
	DurationMS int `mapstructure:"duration_ms"`
}

type httpTranslateSettings struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	APIKey    string `mapstructure:"api_key"`
}

type chatTranslateSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type mockTranslateSettings struct {
	Fail bool `mapstructure:"fail"`
}

type fileStoreSettings struct {
	Dir string `mapstructure:"dir"`
}

type postgresSettings struct {
	DSN string `mapstructure:"dsn"`
}

func validDeepgramEncoding(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "linear16", "mulaw":
		return true
	default:
		return false
	}
}

func registerProviders(reg *voxlate.ProviderRegistry) {
	reg.RegisterSTT("deepgram", func(cfg voxlate.Config, logger *slog.Logger) (stt.Recognizer, error) {
		var settings deepgramSettings
		if err := configutil.DecodeVendor("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "language", "sample_rate", "encoding", "utterance_end_ms", "max_session_ms"},
		}, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.stt.settings.api_key"); err != nil {
			return nil, err
		}
		if settings.SampleRate == 0 {
			settings.SampleRate = cfg.Audio.SampleRate
		}
		settings.Encoding = configutil.StringValue(settings.Encoding, "linear16")
		if !validDeepgramEncoding(settings.Encoding) {
			return nil, fmt.Errorf("vendors.stt.settings.encoding must be one of [linear16, mulaw], got %s", settings.Encoding)
		}
		utteranceEnd := configutil.Value(settings.UtteranceEndMS, 1000)
		if utteranceEnd < 0 || utteranceEnd > 5000 {
			return nil, fmt.Errorf("vendors.stt.settings.utterance_end_ms must be between 0 and 5000, got %d", utteranceEnd)
		}
		source := audio.NewMicSource(audio.MicConfig{
			FFmpegPath: cfg.Audio.FFmpegPath,
			Format:     cfg.Audio.Format,
			Device:     cfg.Audio.Device,
			SampleRate: settings.SampleRate,
			Command:    cfg.Audio.Command,
		})
		return deepgram.New(deepgram.Config{
			APIKey:         settings.APIKey,
			Model:          settings.Model,
			Language:       settings.Language,
			SampleRate:     settings.SampleRate,
			Encoding:       settings.Encoding,
			UtteranceEndMS: utteranceEnd,
			MaxSession:     configutil.Millis(settings.MaxSessionMS, 0),
		}, source, logger), nil
	})

	reg.RegisterSTT("mock", func(cfg voxlate.Config, _ *slog.Logger) (stt.Recognizer, error) {
		var settings mockSTTSettings
		if err := configutil.DecodeVendor("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
			Optional: []string{"transcripts", "delay_ms", "unsupported"},
		}, &settings); err != nil {
			return nil, err
		}
		script := make([]mock.Result, 0, len(settings.Transcripts))
		for _, text := range settings.Transcripts {
			script = append(script, mock.Result{Text: text, Delay: configutil.Millis(settings.DelayMS, 0)})
		}
		return mock.NewRecognizer(mock.STTConfig{Script: script, Unsupported: settings.Unsupported}), nil
	})

	reg.RegisterSTT("unsupported", func(voxlate.Config, *slog.Logger) (stt.Recognizer, error) {
		return nil, stt.ErrUnsupported
	})

	reg.RegisterTTS("elevenlabs", func(cfg voxlate.Config, logger *slog.Logger) (tts.Synthesizer, error) {
		var settings elevenlabsSettings
		if err := configutil.DecodeVendor("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
			Required: []string{"api_key", "voice_id"},
			Optional: []string{"voices", "model_id", "output_format", "base_url"},
		}, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.tts.settings.api_key"); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.VoiceID, "vendors.tts.settings.voice_id"); err != nil {
			return nil, err
		}
		var player audio.Player = audio.DiscardPlayer{}
		if cfg.Audio.Playback {
			player = audio.NewFFplayPlayer(cfg.Audio.FFplayPath)
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:       settings.APIKey,
			VoiceID:      settings.VoiceID,
			Voices:       settings.Voices,
			ModelID:      settings.ModelID,
			OutputFormat: settings.OutputFormat,
			BaseURL:      settings.BaseURL,
		}, player, logger), nil
	})

	reg.RegisterTTS("mock", func(cfg voxlate.Config, _ *slog.Logger) (tts.Synthesizer, error) {
		var settings mockTTSSettings
		if err := configutil.DecodeVendor("vendors.tts.settings", cfg.Vendors.TTS.Settings, configutil.Schema{
			Optional: []string{"duration_ms"},
		}, &settings); err != nil {
			return nil, err
		}
		return mock.NewSynthesizer(mock.TTSConfig{Duration: configutil.Millis(settings.DurationMS, 0)}), nil
	})

	reg.RegisterTranslate("http", func(_ context.Context, cfg voxlate.Config) (translate.Translator, error) {
		var settings httpTranslateSettings
		if err := configutil.DecodeVendor("vendors.translate.settings", cfg.Vendors.Translate.Settings, configutil.Schema{
			Optional: []string{"base_url", "timeout_ms", "api_key"},
		}, &settings); err != nil {
			return nil, err
		}
		return httptranslate.New(httptranslate.Config{
			BaseURL: settings.BaseURL,
			Timeout: configutil.Millis(settings.TimeoutMS, 0),
			APIKey:  settings.APIKey,
		}), nil
	})

	reg.RegisterTranslate("gemini", func(ctx context.Context, cfg voxlate.Config) (translate.Translator, error) {
		var settings chatTranslateSettings
		if err := configutil.DecodeVendor("vendors.translate.settings", cfg.Vendors.Translate.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "base_url"},
		}, &settings); err != nil {
			return nil, err
		}
		return gemini.New(ctx, gemini.Config{APIKey: settings.APIKey, Model: settings.Model, BaseURL: settings.BaseURL})
	})

	reg.RegisterTranslate("openai", func(_ context.Context, cfg voxlate.Config) (translate.Translator, error) {
		var settings chatTranslateSettings
		if err := configutil.DecodeVendor("vendors.translate.settings", cfg.Vendors.Translate.Settings, configutil.Schema{
			Required: []string{"api_key"},
			Optional: []string{"model", "base_url"},
		}, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.APIKey, "vendors.translate.settings.api_key"); err != nil {
			return nil, err
		}
		tr := openai.NewTranslator(settings.APIKey, settings.Model)
		if settings.BaseURL != "" {
			tr.BaseURL = settings.BaseURL
		}
		return tr, nil
	})

	reg.RegisterTranslate("mock", func(_ context.Context, cfg voxlate.Config) (translate.Translator, error) {
		var settings mockTranslateSettings
		if err := configutil.DecodeVendor("vendors.translate.settings", cfg.Vendors.Translate.Settings, configutil.Schema{
			Optional: []string{"fail"},
		}, &settings); err != nil {
			return nil, err
		}
		return mock.NewTranslator(mock.TranslatorConfig{Fail: settings.Fail}), nil
	})

	reg.RegisterStore("file", func(_ context.Context, cfg voxlate.Config) (store.Store, error) {
		var settings fileStoreSettings
		if err := configutil.DecodeVendor("store.settings", cfg.Store.Settings, configutil.Schema{
			Optional: []string{"dir"},
		}, &settings); err != nil {
			return nil, err
		}
		dir := strings.TrimSpace(settings.Dir)
		if dir == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("store.settings.dir: %w", err)
			}
			dir = filepath.Join(base, "voxlate")
		}
		return store.NewFileStore(dir)
	})

	reg.RegisterStore("memory", func(context.Context, voxlate.Config) (store.Store, error) {
		return store.NewMemoryStore(), nil
	})

	reg.RegisterStore("postgres", func(ctx context.Context, cfg voxlate.Config) (store.Store, error) {
		var settings postgresSettings
		if err := configutil.DecodeVendor("store.settings", cfg.Store.Settings, configutil.Schema{
			Required: []string{"dsn"},
		}, &settings); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(settings.DSN, "store.settings.dsn"); err != nil {
			return nil, err
		}
		return store.OpenPostgres(ctx, settings.DSN)
	})
}

