package configutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type voiceSettings struct {
	APIKey     string            `mapstructure:"api_key"`
	Model      string            `mapstructure:"model_id"`
	SampleRate int               `mapstructure:"sample_rate"`
	Voices     map[string]string `mapstructure:"voices"`
}

func TestDecodeVendorNormalizesKeys(t *testing.T) {
	var out voiceSettings
	in := map[string]any{
		"API-Key":     "k",
		"modelId":     "eleven_turbo",
		"sample_rate": "16000",
		"voices":      map[string]any{"hi-IN": "v1"},
	}
	schema := Schema{Required: []string{"api_key"}, Optional: []string{"model_id", "sample_rate", "voices"}}
	if err := DecodeVendor("vendors.tts.settings", in, schema, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.APIKey != "k" || out.Model != "eleven_turbo" || out.SampleRate != 16000 {
		t.Fatalf("unexpected decode: %+v", out)
	}
	if out.Voices["hi-IN"] != "v1" {
		t.Fatalf("expected voice map decoded")
	}
}

func TestDecodeVendorReportsPath(t *testing.T) {
	var out voiceSettings
	err := DecodeVendor("vendors.stt.settings", map[string]any{"bogus": 1}, Schema{Required: []string{"api_key"}}, &out)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "vendors.stt.settings: ") || !strings.Contains(msg, "missing: api_key") || !strings.Contains(msg, "unknown: bogus") {
		t.Fatalf("unexpected error %q", msg)
	}
}

func TestValueHelpers(t *testing.T) {
	if StringValue("  ", "en") != "en" || StringValue(" hi ", "en") != "hi" {
		t.Fatalf("StringValue fallback broken")
	}
	if Millis(0, time.Second) != time.Second || Millis(250, time.Second) != 250*time.Millisecond {
		t.Fatalf("Millis conversion broken")
	}
	v := false
	if Value(&v, true) || !Value[bool](nil, true) {
		t.Fatalf("Value should keep an explicit false")
	}
	n := 0
	if Value(&n, 5) != 0 || Value[int](nil, 5) != 5 {
		t.Fatalf("Value should keep an explicit zero")
	}
}

func TestValidateSettingsSuggestsKeys(t *testing.T) {
	schema := Schema{Required: []string{"api_key"}, Optional: []string{"sample_rate", "voice_id"}}
	err := ValidateSettings(map[string]any{"api_key": "  ", "sample_rte": 8000, "colour": "red"}, schema)
	var serr *SettingsError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SettingsError, got %v", err)
	}
	if len(serr.Missing) != 1 || serr.Missing[0] != "api_key" {
		t.Fatalf("blank required key should be missing: %+v", serr)
	}
	if serr.Unknown["sample_rte"] != "sample_rate" || serr.Unknown["colour"] != "" {
		t.Fatalf("unexpected suggestions %+v", serr.Unknown)
	}
	if !strings.Contains(err.Error(), "sample_rte (did you mean sample_rate?)") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if err := ValidateSettings(map[string]any{"anything": 1}, Schema{AllowUnknown: true}); err != nil {
		t.Fatalf("unknown keys should pass when allowed: %v", err)
	}
}

func TestDecodeSettingsCoercesStrings(t *testing.T) {
	var out struct {
		Transcripts []string      `mapstructure:"transcripts"`
		Delay       time.Duration `mapstructure:"delay"`
		Enabled     bool          `mapstructure:"enabled"`
	}
	in := map[string]any{"transcripts": "hello,good morning", "delay": "250ms", "enabled": "true"}
	if err := DecodeSettings(in, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Transcripts) != 2 || out.Transcripts[1] != "good morning" {
		t.Fatalf("unexpected transcripts %q", out.Transcripts)
	}
	if out.Delay != 250*time.Millisecond || !out.Enabled {
		t.Fatalf("unexpected decode %+v", out)
	}
}
