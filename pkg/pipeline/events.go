package pipeline

import (
	"github.com/harunnryd/voxlate/pkg/errorsx"
	"github.com/harunnryd/voxlate/pkg/history"
)

type UpdateKind string

const (
	UpdateTranscript  UpdateKind = "transcript"
	UpdateTranslation UpdateKind = "translation"
	UpdateExchange    UpdateKind = "exchange"
	UpdateHistory     UpdateKind = "history_cleared"
	UpdateLanguage    UpdateKind = "language"
	UpdateError       UpdateKind = "error"
)

// Update is a change of what the user sees, other than the mode.
type Update struct {
	Kind        UpdateKind        `json:"kind"`
	Transcript  string            `json:"transcript,omitempty"`
	Translation string            `json:"translation,omitempty"`
	Target      string            `json:"target,omitempty"`
	Input       string            `json:"input,omitempty"`
	Exchange    *history.Exchange `json:"exchange,omitempty"`
	Stale       bool              `json:"stale,omitempty"`
	ErrorKind   errorsx.Kind      `json:"error_kind,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Listener observes a Controller. Callbacks run on the controller loop and
// must not call back into the Controller synchronously.
type Listener interface {
	OnStateChange(change StateChange)
	OnUpdate(update Update)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	StateChange func(StateChange)
	Update      func(Update)
}

func (l ListenerFuncs) OnStateChange(change StateChange) {
	if l.StateChange != nil {
		l.StateChange(change)
	}
}

func (l ListenerFuncs) OnUpdate(update Update) {
	if l.Update != nil {
		l.Update(update)
	}
}
