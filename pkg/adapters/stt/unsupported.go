package stt

import "context"

// Unsupported is a Recognizer for hosts without a capture path. Every Begin
// fails with ErrUnsupported.
type Unsupported struct{}

func (Unsupported) Name() string { return "unsupported" }

func (Unsupported) Begin(context.Context, Config) (Session, error) {
	return nil, ErrUnsupported
}
