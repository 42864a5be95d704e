package session

import (
	"sync/atomic"

	"github.com/rbright/voce/internal/fsm"
)

// FlagView is the read-only face of the recording flag handed to status
// observers.
type FlagView interface {
	Recording() bool
	Processing() bool
	State() fsm.State
}

// Flag is the shared recording flag. Only the Controller that owns it
// writes to it.
type Flag struct {
	recording  atomic.Bool
	processing atomic.Bool
}

func (f *Flag) Recording() bool  { return f.recording.Load() }
func (f *Flag) Processing() bool { return f.processing.Load() }

// State folds the flag into the lifecycle vocabulary: a capture being
// transcribed or delivered reports as stopping.
func (f *Flag) State() fsm.State {
	switch {
	case f.Recording():
		return fsm.StateRecording
	case f.Processing():
		return fsm.StateStopping
	default:
		return fsm.StateIdle
	}
}
