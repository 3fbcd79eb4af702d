package voxlate

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/harunnryd/voxlate/pkg/history"
	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Languages     LanguageConfig      `mapstructure:"languages"`
	History       HistoryConfig       `mapstructure:"history"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Store         VendorConfig        `mapstructure:"store"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Translate     TranslateConfig     `mapstructure:"translate"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT       VendorConfig `mapstructure:"stt"`
	TTS       VendorConfig `mapstructure:"tts"`
	Translate VendorConfig `mapstructure:"translate"`
}

type LanguageConfig struct {
	Target string `mapstructure:"target"`
	Input  string `mapstructure:"input"`
}

type HistoryConfig struct {
	Capacity int    `mapstructure:"capacity"`
	Key      string `mapstructure:"key"`
}

// AudioConfig selects the local capture and playback processes.
type AudioConfig struct {
	FFmpegPath string `mapstructure:"ffmpeg_path"`
	Format     string `mapstructure:"format"`
	Device     string `mapstructure:"device"`
	SampleRate int    `mapstructure:"sample_rate"`
	Command    string `mapstructure:"command"`
	FFplayPath string `mapstructure:"ffplay_path"`
	Playback   bool   `mapstructure:"playback"`
}

type TranslateConfig struct {
	BreakerThreshold  int `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowAnyOrigin bool     `mapstructure:"allow_any_origin"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string `mapstructure:"artifacts_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
	// MaxFiles keeps only the newest timelines.
	MaxFiles      int    `mapstructure:"max_files"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// LoadConfig reads the yaml file at path on top of the defaults. An empty
// path uses defaults and VOXLATE_* environment overrides only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("voxlate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("languages.target", languages.DefaultTarget)
	v.SetDefault("languages.input", languages.DefaultInput)
	v.SetDefault("history.capacity", 200)
	v.SetDefault("history.key", "vt_history")
	v.SetDefault("vendors.stt.provider", "deepgram")
	v.SetDefault("vendors.tts.provider", "elevenlabs")
	v.SetDefault("vendors.translate.provider", "http")
	v.SetDefault("store.provider", "file")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.playback", true)
	v.SetDefault("translate.breaker_threshold", 3)
	v.SetDefault("translate.breaker_cooldown_ms", 30000)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.allow_any_origin", false)
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.max_files", 0)
	v.SetDefault("privacy.redact_pii", true)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.STT.Provider) == "" {
		return fmt.Errorf("vendors.stt.provider is required")
	}
	if strings.TrimSpace(c.Vendors.TTS.Provider) == "" {
		return fmt.Errorf("vendors.tts.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Translate.Provider) == "" {
		return fmt.Errorf("vendors.translate.provider is required")
	}
	if strings.TrimSpace(c.Store.Provider) == "" {
		return fmt.Errorf("store.provider is required")
	}
	if _, ok := languages.Lookup(c.Languages.Target); !ok {
		return fmt.Errorf("languages.target %q is not supported", c.Languages.Target)
	}
	if _, ok := languages.Lookup(c.Languages.Input); !ok {
		return fmt.Errorf("languages.input %q is not supported", c.Languages.Input)
	}
	if c.History.Capacity <= 0 || c.History.Capacity > history.DefaultCapacity {
		return fmt.Errorf("history.capacity must be between 1 and %d, got %d", history.DefaultCapacity, c.History.Capacity)
	}
	if c.Translate.BreakerThreshold < 0 {
		return fmt.Errorf("translate.breaker_threshold must not be negative")
	}
	return nil
}

// expandEnv substitutes $VAR and ${VAR}, plus ${VAR:-fallback} for unset
// or empty variables.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		key, fallback, hasFallback := strings.Cut(name, ":-")
		if v := os.Getenv(key); v != "" || !hasFallback {
			return v
		}
		return fallback
	})
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.TTS.Settings = expandSettings(cfg.Vendors.TTS.Settings)
	cfg.Vendors.Translate.Settings = expandSettings(cfg.Vendors.Translate.Settings)
	cfg.Store.Settings = expandSettings(cfg.Store.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(expandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	}
}
