// Package session drives the toggle-triggered capture -> transcribe -> deliver
// cycle and answers control requests from the CLI.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/fsm"
	"github.com/rbright/voce/internal/indicator"
	"github.com/rbright/voce/internal/ipc"
	"github.com/rbright/voce/internal/output"
)

// ErrNoSpeech reports a transcription that produced no text.
var ErrNoSpeech = errors.New("no speech detected")

// Result describes one finished stop -> transcribe -> deliver run.
type Result struct {
	Text       string
	Provider   string
	Artifact   string
	Samples    int
	Latency    time.Duration
	Outcome    output.Outcome
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NoSpeech reports whether the run ended without anything to deliver.
func (r Result) NoSpeech() bool {
	return errors.Is(r.Err, ErrNoSpeech) || errors.Is(r.Err, audio.ErrNoSamplesRecorded)
}

type noopNotifier struct{}

func (noopNotifier) ShowRecording(context.Context)     {}
func (noopNotifier) ShowTranscribing(context.Context)  {}
func (noopNotifier) ShowNoSpeech(context.Context)      {}
func (noopNotifier) ShowError(context.Context, string) {}
func (noopNotifier) CueStop(context.Context)           {}
func (noopNotifier) CueComplete(context.Context)       {}
func (noopNotifier) CueCancel(context.Context)         {}
func (noopNotifier) Hide(context.Context)              {}

// Controller owns the recording flag and serializes lifecycle commands.
// Stopping hands the rest of the cycle to a tracked goroutine; commands that
// arrive while it runs are rejected with fsm.ErrAlreadyStopping.
type Controller struct {
	logger      *slog.Logger
	transcriber Transcriber
	notifier    indicator.Notifier
	flag        *Flag

	// busy is held while a command mutates the flag and for the whole
	// background run after a stop.
	busy sync.Mutex
	runs sync.WaitGroup

	mu        sync.RWMutex
	deliverer Deliverer
	started   time.Time
	last      Result
	onResult  func(Result)
}

// NewController wires a controller. A nil notifier disables indicators.
func NewController(logger *slog.Logger, transcriber Transcriber, deliverer Deliverer, notifier indicator.Notifier) *Controller {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		logger:      logger,
		transcriber: transcriber,
		deliverer:   deliverer,
		notifier:    notifier,
		flag:        &Flag{},
	}
}

// Flag returns the read-only view of the recording flag.
func (c *Controller) Flag() FlagView { return c.flag }

// SetDeliverer swaps the delivery chain used by later runs.
func (c *Controller) SetDeliverer(d Deliverer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliverer = d
}

// OnResult registers a callback invoked after every finished run.
func (c *Controller) OnResult(fn func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResult = fn
}

// LastResult returns the most recent finished run.
func (c *Controller) LastResult() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Wait blocks until any background run has finished.
func (c *Controller) Wait() { c.runs.Wait() }

// Toggle starts recording when idle and stops it otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	if !c.busy.TryLock() {
		return fsm.ErrAlreadyStopping
	}
	if c.flag.Recording() {
		return c.stopLocked(ctx)
	}
	defer c.busy.Unlock()
	return c.startLocked(ctx)
}

// Stop ends an active recording and starts the background run.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.busy.TryLock() {
		return fsm.ErrAlreadyStopping
	}
	if !c.flag.Recording() {
		c.busy.Unlock()
		return fsm.ErrNotRecording
	}
	return c.stopLocked(ctx)
}

// Cancel discards an active recording without transcribing it.
func (c *Controller) Cancel(ctx context.Context) error {
	if !c.busy.TryLock() {
		return fsm.ErrAlreadyStopping
	}
	defer c.busy.Unlock()
	if !c.flag.Recording() {
		return fsm.ErrNotRecording
	}

	err := c.transcriber.Cancel(ctx)
	c.flag.recording.Store(false)
	c.notifier.CueCancel(ctx)
	c.notifier.Hide(ctx)
	if err != nil {
		c.logger.Warn("cancel recording", "error", err.Error())
		return err
	}
	c.logger.Info("recording cancelled")
	return nil
}

// Shutdown cancels an active recording and waits for a background run.
func (c *Controller) Shutdown(ctx context.Context) {
	if c.flag.Recording() {
		if err := c.Cancel(ctx); err != nil && !fsm.IsConflict(err) {
			c.logger.Warn("shutdown cancel failed", "error", err.Error())
		}
	}
	c.Wait()
}

func (c *Controller) startLocked(ctx context.Context) error {
	if err := c.transcriber.Start(ctx); err != nil {
		c.logger.Error("start recording failed", "error", err.Error())
		c.notifier.ShowError(ctx, fmt.Sprintf("Recording failed: %v", err))
		return err
	}

	c.mu.Lock()
	c.started = time.Now()
	c.mu.Unlock()

	c.flag.recording.Store(true)
	c.notifier.ShowRecording(ctx)
	c.logger.Info("recording started")
	return nil
}

// stopLocked is entered holding busy; the background run releases it.
func (c *Controller) stopLocked(ctx context.Context) error {
	c.flag.processing.Store(true)
	c.flag.recording.Store(false)

	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()

	// Transcription outlives the request that triggered it.
	runCtx := context.WithoutCancel(ctx)
	c.runs.Add(1)
	go func() {
		defer c.runs.Done()
		defer c.busy.Unlock()
		defer c.flag.processing.Store(false)

		result := c.process(runCtx)
		result.StartedAt = started
		result.FinishedAt = time.Now()
		c.finish(result)
	}()
	return nil
}

func (c *Controller) process(ctx context.Context) Result {
	c.notifier.CueStop(ctx)
	c.notifier.ShowTranscribing(ctx)

	stopped, err := c.transcriber.StopAndTranscribe(ctx)
	result := Result{
		Text:     stopped.Result.Text,
		Provider: stopped.Result.Provider,
		Artifact: stopped.Artifact.Path,
		Samples:  stopped.Artifact.Samples,
		Latency:  stopped.Result.Latency,
	}
	switch {
	case errors.Is(err, audio.ErrNoSamplesRecorded):
		result.Err = err
		c.notifier.ShowNoSpeech(ctx)
		return result
	case err != nil:
		result.Err = err
		c.notifier.ShowError(ctx, "Transcription failed")
		return result
	case result.Text == "":
		result.Err = ErrNoSpeech
		c.notifier.ShowNoSpeech(ctx)
		return result
	}

	c.mu.RLock()
	deliverer := c.deliverer
	c.mu.RUnlock()
	if deliverer == nil {
		result.Err = errors.New("no delivery chain configured")
		c.notifier.ShowError(ctx, "Delivery failed")
		return result
	}

	outcome, err := deliverer.Deliver(ctx, result.Text)
	result.Outcome = outcome
	if err != nil {
		result.Err = fmt.Errorf("deliver transcript: %w", err)
		c.notifier.ShowError(ctx, "Delivery failed")
		return result
	}

	c.notifier.CueComplete(ctx)
	c.notifier.Hide(ctx)
	return result
}

func (c *Controller) finish(result Result) {
	fields := []any{
		"provider", result.Provider,
		"samples", result.Samples,
		"text_length", len(result.Text),
		"latency_ms", result.Latency.Milliseconds(),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"method", string(result.Outcome.Method),
		"tool", result.Outcome.Tool,
		"pasted", result.Outcome.Pasted,
	}
	switch {
	case result.NoSpeech():
		c.logger.Info("no speech detected", fields...)
	case result.Err != nil:
		c.logger.Error("session failed", append(fields, "error", result.Err.Error())...)
	default:
		c.logger.Info("session complete", fields...)
	}

	c.mu.Lock()
	c.last = result
	onResult := c.onResult
	c.mu.Unlock()
	if onResult != nil {
		onResult(result)
	}
}

// Handle serves control requests.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var (
		err     error
		message string
	)
	switch req.Command {
	case ipc.CommandStatus:
	case ipc.CommandToggle:
		err = c.Toggle(ctx)
		message = "recording"
		if !c.flag.Recording() {
			message = "processing"
		}
	case ipc.CommandStop:
		err = c.Stop(ctx)
		message = "processing"
	case ipc.CommandCancel:
		err = c.Cancel(ctx)
		message = "cancelled"
	default:
		err = fmt.Errorf("unknown command: %s", req.Command)
	}

	resp := c.status()
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.OK = true
	if message != "" {
		resp.Message = message
	}
	return resp
}

func (c *Controller) status() ipc.Response {
	return StatusOf(c.Flag(), c.LastResult())
}

// StatusOf renders the flag and the most recent run as a status response.
// Message summarizes the last run and is empty before the first one.
func StatusOf(view FlagView, last Result) ipc.Response {
	return ipc.Response{
		State:      string(view.State()),
		Recording:  view.Recording(),
		Processing: view.Processing(),
		Message:    Summary(last),
	}
}

// Summary is a one-line description of a finished run.
func Summary(r Result) string {
	switch {
	case r.FinishedAt.IsZero():
		return ""
	case r.NoSpeech():
		return "last run: no speech detected"
	case r.Err != nil:
		return "last run failed: " + r.Err.Error()
	default:
		return fmt.Sprintf("last run: delivered %d chars via %s", len([]rune(r.Text)), r.Outcome.Tool)
	}
}
