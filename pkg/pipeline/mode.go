package pipeline

import "fmt"

// Mode is the listening state of a Controller.
type Mode int

const (
	ModeIdle Mode = iota
	ModeListeningOnce
	ModeListeningContinuous
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListeningOnce:
		return "listening_once"
	case ModeListeningContinuous:
		return "listening_continuous"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode name in JSON payloads.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a mode name produced by MarshalText.
func (m *Mode) UnmarshalText(b []byte) error {
	for _, candidate := range []Mode{ModeIdle, ModeListeningOnce, ModeListeningContinuous} {
		if candidate.String() == string(b) {
			*m = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", b)
}
