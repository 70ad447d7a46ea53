package lifecycle

import "fmt"

// State is the existence state of a tracked window.
type State uint8

const (
	// StateUnknown is reported for identities the model has never seen.
	StateUnknown State = iota
	// StateRequested: CreateWindow observed, backend has not confirmed yet.
	StateRequested
	// StateLive: the window exists.
	StateLive
	// StateCloseRequested: close was asked for, the window still exists.
	StateCloseRequested
	// StateClosed is terminal.
	StateClosed
)

var stateNames = map[State]string{
	StateUnknown:        "unknown",
	StateRequested:      "requested",
	StateLive:           "live",
	StateCloseRequested: "close-requested",
	StateClosed:         "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Exists reports whether the window is present on screen in this state.
func (s State) Exists() bool {
	return s == StateLive || s == StateCloseRequested
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown window state %q", string(b))
}
