package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/voce/internal/asr"
	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/fsm"
	"github.com/rbright/voce/internal/ipc"
	"github.com/rbright/voce/internal/output"
	"github.com/rbright/voce/internal/pipeline"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeNotifier) ShowRecording(context.Context)          { f.record("recording") }
func (f *fakeNotifier) ShowTranscribing(context.Context)       { f.record("transcribing") }
func (f *fakeNotifier) ShowNoSpeech(context.Context)           { f.record("no-speech") }
func (f *fakeNotifier) ShowError(_ context.Context, msg string) { f.record("error:" + msg) }
func (f *fakeNotifier) CueStop(context.Context)                { f.record("cue-stop") }
func (f *fakeNotifier) CueComplete(context.Context)            { f.record("cue-complete") }
func (f *fakeNotifier) CueCancel(context.Context)              { f.record("cue-cancel") }
func (f *fakeNotifier) Hide(context.Context)                   { f.record("hide") }

type fakeTranscriber struct {
	startErr    error
	text        string
	stopErr     error
	release     chan struct{}
	cancelCalls atomic.Int32
	stopCalls   atomic.Int32
}

func (f *fakeTranscriber) Start(context.Context) error { return f.startErr }

func (f *fakeTranscriber) StopAndTranscribe(context.Context) (pipeline.StopResult, error) {
	f.stopCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	return pipeline.StopResult{
		Artifact: audio.Artifact{Path: "/tmp/voce_test.wav", Samples: 1600},
		Result:   asr.Result{Provider: "stub", Text: f.text},
	}, f.stopErr
}

func (f *fakeTranscriber) Cancel(context.Context) error {
	f.cancelCalls.Add(1)
	return nil
}

type recordingDeliverer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (d *recordingDeliverer) Deliver(_ context.Context, text string) (output.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	if d.err != nil {
		return output.Outcome{}, d.err
	}
	return output.Outcome{Method: output.MethodClipboard, Tool: "wl-copy", OK: true}, nil
}

func (d *recordingDeliverer) delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.texts...)
}

func TestToggleRunsFullCycle(t *testing.T) {
	tr := &fakeTranscriber{text: "hello world"}
	deliverer := &recordingDeliverer{}
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, tr, deliverer, notifier)

	require.NoError(t, ctrl.Toggle(context.Background()))
	require.True(t, ctrl.Flag().Recording())
	require.Equal(t, fsm.StateRecording, ctrl.Flag().State())

	require.NoError(t, ctrl.Toggle(context.Background()))
	ctrl.Wait()

	require.False(t, ctrl.Flag().Recording())
	require.False(t, ctrl.Flag().Processing())
	require.Equal(t, []string{"hello world"}, deliverer.delivered())
	require.Equal(t, []string{"recording", "cue-stop", "transcribing", "cue-complete", "hide"}, notifier.seen())

	last := ctrl.LastResult()
	require.NoError(t, last.Err)
	require.Equal(t, "hello world", last.Text)
	require.Equal(t, "stub", last.Provider)
	require.True(t, last.Outcome.OK)
	require.False(t, last.FinishedAt.Before(last.StartedAt))
}

func TestToggleWhileProcessingIsRejected(t *testing.T) {
	tr := &fakeTranscriber{text: "slow", release: make(chan struct{})}
	ctrl := NewController(nil, tr, &recordingDeliverer{}, nil)

	require.NoError(t, ctrl.Toggle(context.Background()))
	require.NoError(t, ctrl.Toggle(context.Background()))
	require.True(t, ctrl.Flag().Processing())
	require.Equal(t, fsm.StateStopping, ctrl.Flag().State())

	require.ErrorIs(t, ctrl.Toggle(context.Background()), fsm.ErrAlreadyStopping)
	require.ErrorIs(t, ctrl.Stop(context.Background()), fsm.ErrAlreadyStopping)
	require.ErrorIs(t, ctrl.Cancel(context.Background()), fsm.ErrAlreadyStopping)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.True(t, resp.Processing)
	require.Equal(t, "stopping", resp.State)

	close(tr.release)
	ctrl.Wait()
	require.Equal(t, int32(1), tr.stopCalls.Load())

	require.NoError(t, ctrl.Toggle(context.Background()))
	require.True(t, ctrl.Flag().Recording())
}

func TestStartFailureShowsError(t *testing.T) {
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, &fakeTranscriber{startErr: audio.ErrDeviceUnavailable}, nil, notifier)

	err := ctrl.Toggle(context.Background())
	require.ErrorIs(t, err, audio.ErrDeviceUnavailable)
	require.False(t, ctrl.Flag().Recording())
	require.Equal(t, []string{"error:Recording failed: audio input device unavailable"}, notifier.seen())

	// The busy guard is released after a failed start.
	require.ErrorIs(t, ctrl.Stop(context.Background()), fsm.ErrNotRecording)
}

func TestEmptyResultsShowNoSpeech(t *testing.T) {
	tests := []struct {
		name    string
		tr      *fakeTranscriber
		wantErr error
	}{
		{name: "empty text", tr: &fakeTranscriber{text: ""}, wantErr: ErrNoSpeech},
		{name: "no samples", tr: &fakeTranscriber{stopErr: audio.ErrNoSamplesRecorded}, wantErr: audio.ErrNoSamplesRecorded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deliverer := &recordingDeliverer{}
			notifier := &fakeNotifier{}
			ctrl := NewController(nil, tc.tr, deliverer, notifier)

			require.NoError(t, ctrl.Toggle(context.Background()))
			require.NoError(t, ctrl.Toggle(context.Background()))
			ctrl.Wait()

			last := ctrl.LastResult()
			require.ErrorIs(t, last.Err, tc.wantErr)
			require.True(t, last.NoSpeech())
			require.Empty(t, deliverer.delivered())
			require.Contains(t, notifier.seen(), "no-speech")
			require.NotContains(t, notifier.seen(), "cue-complete")
		})
	}
}

func TestTranscriptionAndDeliveryFailures(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		notifier := &fakeNotifier{}
		ctrl := NewController(nil, &fakeTranscriber{stopErr: errors.New("backend down")}, &recordingDeliverer{}, notifier)
		require.NoError(t, ctrl.Toggle(context.Background()))
		require.NoError(t, ctrl.Stop(context.Background()))
		ctrl.Wait()

		require.ErrorContains(t, ctrl.LastResult().Err, "backend down")
		require.False(t, ctrl.LastResult().NoSpeech())
		require.Contains(t, notifier.seen(), "error:Transcription failed")
	})

	t.Run("delivery", func(t *testing.T) {
		notifier := &fakeNotifier{}
		deliverer := &recordingDeliverer{err: output.ErrNoClipboardTool}
		ctrl := NewController(nil, &fakeTranscriber{text: "hi"}, deliverer, notifier)
		require.NoError(t, ctrl.Toggle(context.Background()))
		require.NoError(t, ctrl.Toggle(context.Background()))
		ctrl.Wait()

		require.ErrorIs(t, ctrl.LastResult().Err, output.ErrNoClipboardTool)
		require.Contains(t, notifier.seen(), "error:Delivery failed")
	})
}

func TestCancelDiscardsRecording(t *testing.T) {
	tr := &fakeTranscriber{text: "never"}
	deliverer := &recordingDeliverer{}
	notifier := &fakeNotifier{}
	ctrl := NewController(nil, tr, deliverer, notifier)

	require.ErrorIs(t, ctrl.Cancel(context.Background()), fsm.ErrNotRecording)
	require.NoError(t, ctrl.Toggle(context.Background()))
	require.NoError(t, ctrl.Cancel(context.Background()))
	ctrl.Wait()

	require.False(t, ctrl.Flag().Recording())
	require.Equal(t, int32(1), tr.cancelCalls.Load())
	require.Zero(t, tr.stopCalls.Load())
	require.Empty(t, deliverer.delivered())
	require.Equal(t, []string{"recording", "cue-cancel", "hide"}, notifier.seen())
}

func TestHandleCommands(t *testing.T) {
	ctrl := NewController(nil, &fakeTranscriber{text: "ok"}, &recordingDeliverer{}, nil)
	ctx := context.Background()

	status := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, "idle", status.State)
	require.False(t, status.Recording)

	stop := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStop})
	require.False(t, stop.OK)
	require.Equal(t, fsm.ErrNotRecording.Error(), stop.Error)

	toggle := ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.True(t, toggle.OK)
	require.True(t, toggle.Recording)
	require.Equal(t, "recording", toggle.Message)

	toggle = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandToggle})
	require.True(t, toggle.OK)
	require.Equal(t, "processing", toggle.Message)
	ctrl.Wait()

	status = ctrl.Handle(ctx, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, "last run: delivered 2 chars via wl-copy", status.Message)

	unknown := ctrl.Handle(ctx, ipc.Request{Command: "rewind"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestSetDelivererAndOnResult(t *testing.T) {
	first := &recordingDeliverer{}
	second := &recordingDeliverer{}
	ctrl := NewController(nil, &fakeTranscriber{text: "swap"}, first, nil)
	results := make(chan Result, 1)
	ctrl.OnResult(func(r Result) { results <- r })

	ctrl.SetDeliverer(second)
	require.NoError(t, ctrl.Toggle(context.Background()))
	require.NoError(t, ctrl.Toggle(context.Background()))
	ctrl.Wait()

	require.Empty(t, first.delivered())
	require.Equal(t, []string{"swap"}, second.delivered())
	require.Equal(t, "swap", (<-results).Text)
}

func TestShutdownCancelsActiveRecording(t *testing.T) {
	tr := &fakeTranscriber{}
	ctrl := NewController(nil, tr, nil, nil)

	require.NoError(t, ctrl.Toggle(context.Background()))
	ctrl.Shutdown(context.Background())
	require.False(t, ctrl.Flag().Recording())
	require.Equal(t, int32(1), tr.cancelCalls.Load())
}

func TestStatusOfSummarizesLastRun(t *testing.T) {
	flag := &Flag{}
	require.Empty(t, StatusOf(flag, Result{}).Message)

	flag.processing.Store(true)
	finished := time.Now()
	status := StatusOf(flag, Result{Err: ErrNoSpeech, FinishedAt: finished})
	require.Equal(t, "stopping", status.State)
	require.True(t, status.Processing)
	require.Equal(t, "last run: no speech detected", status.Message)

	require.Equal(t, "last run failed: backend down", Summary(Result{Err: errors.New("backend down"), FinishedAt: finished}))
}

func TestDeliverFuncDelegates(t *testing.T) {
	var got string
	d := DeliverFunc(func(_ context.Context, text string) (output.Outcome, error) {
		got = text
		return output.Outcome{OK: true}, nil
	})

	outcome, err := d.Deliver(context.Background(), "hello")
	require.NoError(t, err)
	require.True(t, outcome.OK)
	require.Equal(t, "hello", got)
}
