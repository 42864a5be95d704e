package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventFinalize)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionCancelFromRecording(t *testing.T) {
	next, err := Transition(StateRecording, EventCancel)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventFinalize)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionConflicts(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
		want  error
	}{
		{name: "start while recording", state: StateRecording, event: EventStart, want: ErrAlreadyRecording},
		{name: "start while stopping", state: StateStopping, event: EventStart, want: ErrAlreadyRecording},
		{name: "stop while idle", state: StateIdle, event: EventStop, want: ErrNotRecording},
		{name: "cancel while idle", state: StateIdle, event: EventCancel, want: ErrNotRecording},
		{name: "stop while stopping", state: StateStopping, event: EventStop, want: ErrAlreadyStopping},
		{name: "cancel while stopping", state: StateStopping, event: EventCancel, want: ErrAlreadyStopping},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.ErrorIs(t, err, tc.want)
			require.True(t, IsConflict(err))
			require.Equal(t, tc.state, next)
		})
	}
}

func TestTransitionInvalidFinalize(t *testing.T) {
	for _, state := range []State{StateIdle, StateRecording} {
		next, err := Transition(state, EventFinalize)
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid transition")
		require.False(t, IsConflict(err))
		require.Equal(t, state, next)
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestIsConflictRejectsOtherErrors(t *testing.T) {
	require.False(t, IsConflict(nil))
	require.False(t, IsConflict(errors.New("boom")))
}
