package stt

import (
	"context"
	"errors"

	"github.com/harunnryd/voxlate/pkg/frames"
)

// ErrUnsupported is returned by Begin when no recognition capability exists.
var ErrUnsupported = errors.New("speech recognition not supported")

// Recognizer defines the contract for any speech-to-text capability.
type Recognizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Begin starts one capture session. It fails immediately with
	// ErrUnsupported when the capability is unavailable.
	Begin(ctx context.Context, cfg Config) (Session, error)
}

// Session is a single capture. Frames emits exactly one TranscriptFrame or
// ErrorFrame, then one EndedFrame, and is closed afterwards.
type Session interface {
	ID() string
	Frames() <-chan frames.Frame
	// Cancel requests early termination. No TranscriptFrame is delivered
	// after Cancel returns; an EndedFrame still follows.
	Cancel() error
}

// Config contains vendor-agnostic capture configuration.
type Config struct {
	SessionID    string
	TraceID      string
	LanguageHint string
}
