// Package fsm defines the recording lifecycle states and their legal transitions.
package fsm

import (
	"errors"
	"fmt"
)

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
)

const (
	EventStart    Event = "start"
	EventStop     Event = "stop"
	EventFinalize Event = "finalize"
	EventCancel   Event = "cancel"
)

// State-conflict errors. They guard start/stop races and are never retried.
var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrAlreadyStopping  = errors.New("recording already stopping")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Transition returns the state reached by applying event to current.
// On rejection the current state is returned unchanged alongside the error.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventStop, EventCancel:
			return current, ErrNotRecording
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStart:
			return current, ErrAlreadyRecording
		case EventStop, EventCancel:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping:
		switch event {
		case EventStart:
			return current, ErrAlreadyRecording
		case EventStop, EventCancel:
			return current, ErrAlreadyStopping
		case EventFinalize:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// IsConflict reports whether err is one of the state-conflict sentinels.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyRecording) ||
		errors.Is(err, ErrAlreadyStopping) ||
		errors.Is(err, ErrNotRecording)
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
