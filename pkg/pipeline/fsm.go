package pipeline

import (
	"time"

	"github.com/harunnryd/voxlate/pkg/errorsx"
)

// StateChange represents a mode transition.
type StateChange struct {
	From      Mode      `json:"from"`
	To        Mode      `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// InvalidTransitionError is returned for an operation the current mode does
// not allow.
type InvalidTransitionError struct {
	From Mode
	To   Mode
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

var validTransitions = map[Mode][]Mode{
	ModeIdle:                {ModeListeningOnce, ModeListeningContinuous},
	ModeListeningOnce:       {ModeIdle, ModeListeningContinuous},
	ModeListeningContinuous: {ModeIdle},
}

// modeMachine holds the current mode. It is only touched from the
// controller loop, so it carries no lock.
type modeMachine struct {
	current Mode
	now     func() time.Time
	onEnter func(StateChange)
}

func newModeMachine(onEnter func(StateChange)) *modeMachine {
	return &modeMachine{current: ModeIdle, now: time.Now, onEnter: onEnter}
}

func (m *modeMachine) Mode() Mode { return m.current }

func (m *modeMachine) transitionValid(from, to Mode) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to mode to. Transitioning to the current mode is
// rejected like any other invalid move.
func (m *modeMachine) Transition(to Mode, reason string) error {
	if !m.transitionValid(m.current, to) {
		return errorsx.Wrap(&InvalidTransitionError{From: m.current, To: to}, errorsx.ReasonInvalidTransition)
	}
	change := StateChange{From: m.current, To: to, Timestamp: m.now(), Reason: reason}
	m.current = to
	if m.onEnter != nil {
		m.onEnter(change)
	}
	return nil
}
