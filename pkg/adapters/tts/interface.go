package tts

import (
	"context"
)

// Synthesizer defines the contract for any text-to-speech capability.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Voices lists installed voices. The list may be empty, in particular
	// before the engine finished loading.
	Voices(ctx context.Context) ([]Voice, error)
	// Speak renders the utterance and blocks until playback finished or ctx
	// is cancelled.
	Speak(ctx context.Context, u Utterance) error
}

// Voice is one selectable synthesis voice.
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Locale  string `json:"locale"`
	Default bool   `json:"default,omitempty"`
}

// Utterance is a speak request. A nil Voice selects the engine default.
type Utterance struct {
	Text   string
	Locale string
	Voice  *Voice
}
