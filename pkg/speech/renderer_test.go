package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/voxlate/pkg/adapters/tts"
	"github.com/harunnryd/voxlate/pkg/languages"
	"github.com/harunnryd/voxlate/pkg/metrics"
	"github.com/harunnryd/voxlate/pkg/providers/mock"
)

func TestSelectVoiceByPrimarySubtag(t *testing.T) {
	voices := []tts.Voice{
		{ID: "en", Locale: "en-GB"},
		{ID: "hi1", Locale: "hi-IN"},
		{ID: "hi2", Locale: "hi"},
	}
	cases := []struct {
		locale string
		want   string
	}{
		{"hi-IN", "hi1"},
		{"en-US", "en"},
		{"fr-FR", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := SelectVoice(voices, tc.locale)
		id := ""
		if got != nil {
			id = got.ID
		}
		if id != tc.want {
			t.Fatalf("SelectVoice(%q) = %q, want %q", tc.locale, id, tc.want)
		}
	}
	if SelectVoice(nil, "hi-IN") != nil {
		t.Fatalf("expected default voice for empty list")
	}
}

func TestSpeakUsesMatchingVoice(t *testing.T) {
	synth := mock.NewSynthesizer(mock.TTSConfig{Voices: []tts.Voice{{ID: "v-hi", Locale: "hi-IN"}}})
	obs := metrics.NewMemoryObserver()
	r := NewRenderer(Config{Synthesizer: synth, Observer: obs})

	hi, _ := languages.Lookup("hi")
	r.Speak("नमस्ते", hi)
	r.Wait()

	spoken := synth.Spoken()
	if len(spoken) != 1 || spoken[0].Voice == nil || spoken[0].Voice.ID != "v-hi" || spoken[0].Locale != "hi-IN" {
		t.Fatalf("unexpected utterances %+v", spoken)
	}
	if obs.Count(metrics.EventSpeechStarted) != 1 {
		t.Fatalf("expected speech_started event")
	}
}

func TestSpeakFallsBackWhenVoicesFail(t *testing.T) {
	synth := mock.NewSynthesizer(mock.TTSConfig{VoicesErr: errors.New("not loaded")})
	r := NewRenderer(Config{Synthesizer: synth})
	r.Speak("bonjour", languages.Resolve("fr"))
	r.Wait()
	spoken := synth.Spoken()
	if len(spoken) != 1 || spoken[0].Voice != nil {
		t.Fatalf("expected default voice, got %+v", spoken)
	}
}

func TestSpeakIgnoresBlank(t *testing.T) {
	synth := mock.NewSynthesizer(mock.TTSConfig{})
	r := NewRenderer(Config{Synthesizer: synth})
	r.Speak("   ", languages.Resolve("hi"))
	r.Wait()
	if len(synth.Spoken()) != 0 {
		t.Fatalf("blank text must not be spoken")
	}
}

func TestSpeakCancelsPrevious(t *testing.T) {
	synth := mock.NewSynthesizer(mock.TTSConfig{Duration: time.Second})
	r := NewRenderer(Config{Synthesizer: synth})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r.Speak("first", languages.Resolve("en"))
	if _, err := synth.Next(ctx); err != nil {
		t.Fatalf("first utterance not started: %v", err)
	}
	r.Speak("second", languages.Resolve("en"))
	if _, err := synth.Next(ctx); err != nil {
		t.Fatalf("second utterance not started: %v", err)
	}
	r.Cancel()
	r.Wait()
	if synth.Cancelled() != 2 {
		t.Fatalf("expected both utterances cancelled, got %d", synth.Cancelled())
	}
}
