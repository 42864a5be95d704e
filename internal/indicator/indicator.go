// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/hypr"
	"github.com/rbright/voce/internal/proc"
)

// Notifier is the session-facing indicator contract.
type Notifier interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowNoSpeech(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Notification colors and hyprctl icon ids.
const (
	colorRecording  = hypr.DefaultColor
	colorProcessing = "rgb(cba6f7)"
	colorNoSpeech   = "rgb(f9e2af)"
	colorError      = "rgb(f38ba8)"

	iconInfo    = 1
	iconWarning = 0
	iconError   = 3

	stickyTimeoutMS = 300000
)

// Desktop shows state through Hyprland or freedesktop notifications and
// plays short cues through pulse.
type Desktop struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages
	runner   proc.Runner
	hypr     *hypr.Client
	play     func(cueKind) error

	mu        sync.Mutex
	desktopID uint32

	soundMu sync.Mutex
	cues    sync.WaitGroup
}

func New(cfg config.IndicatorConfig, runner proc.Runner, logger *slog.Logger) *Desktop {
	if runner == nil {
		runner = proc.Exec{}
	}
	return &Desktop{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFor(os.Getenv("LANG")),
		runner:   runner,
		hypr:     hypr.NewClient(runner),
		play:     playCue,
	}
}

// ShowRecording signals recording start and emits the start cue.
func (d *Desktop) ShowRecording(ctx context.Context) {
	d.cue(cueStart)
	d.show(ctx, iconInfo, stickyTimeoutMS, colorRecording, d.messages.recording)
}

// ShowTranscribing signals the post-capture transcription state.
func (d *Desktop) ShowTranscribing(ctx context.Context) {
	d.show(ctx, iconInfo, stickyTimeoutMS, colorProcessing, d.messages.processing)
}

// ShowNoSpeech reports an empty recording or transcript.
func (d *Desktop) ShowNoSpeech(ctx context.Context) {
	d.show(ctx, iconWarning, d.errorTimeout(), colorNoSpeech, d.messages.noSpeech)
}

// ShowError displays an error-state indicator message.
func (d *Desktop) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = d.messages.errorText
	}
	d.show(ctx, iconError, d.errorTimeout(), colorError, text)
}

func (d *Desktop) CueStop(context.Context)     { d.cue(cueStop) }
func (d *Desktop) CueComplete(context.Context) { d.cue(cueComplete) }
func (d *Desktop) CueCancel(context.Context)   { d.cue(cueCancel) }

// Hide dismisses the active indicator surface.
func (d *Desktop) Hide(ctx context.Context) {
	if !d.cfg.Enable {
		return
	}
	d.run(ctx, d.dismiss)
}

// Wait blocks until queued cues have finished playing.
func (d *Desktop) Wait() { d.cues.Wait() }

func (d *Desktop) errorTimeout() int {
	if d.cfg.ErrorTimeoutMS <= 0 {
		return 1200
	}
	return d.cfg.ErrorTimeoutMS
}

func (d *Desktop) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !d.cfg.Enable {
		return
	}
	d.run(ctx, func(ctx context.Context) error {
		if d.desktopBackend() {
			return d.notifyDesktop(ctx, timeoutMS, text)
		}
		return d.hypr.Notify(ctx, icon, timeoutMS, color, text)
	})
}

func (d *Desktop) dismiss(ctx context.Context) error {
	if !d.desktopBackend() {
		return d.hypr.DismissNotify(ctx)
	}

	d.mu.Lock()
	id := d.desktopID
	d.desktopID = 0
	d.mu.Unlock()
	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, d.runner, id)
}

func (d *Desktop) desktopBackend() bool {
	return strings.EqualFold(strings.TrimSpace(d.cfg.Backend), "desktop")
}

// notifyDesktop replaces the previous notification so state changes update
// one bubble instead of stacking.
func (d *Desktop) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	d.mu.Lock()
	replaceID := d.desktopID
	d.mu.Unlock()

	appName := strings.TrimSpace(d.cfg.DesktopAppName)
	if appName == "" {
		appName = "voce"
	}
	id, err := desktopNotify(ctx, d.runner, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.desktopID = id
	d.mu.Unlock()
	return nil
}

// run executes an indicator operation with a bounded timeout.
func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.log("indicator dispatch failed", err)
	}
}

// cue plays asynchronously; cues are serialized so they never overlap.
func (d *Desktop) cue(kind cueKind) {
	if !d.cfg.SoundEnable {
		return
	}
	d.cues.Add(1)
	go func() {
		defer d.cues.Done()
		d.soundMu.Lock()
		defer d.soundMu.Unlock()
		if err := d.play(kind); err != nil {
			d.log("indicator audio cue failed", err)
		}
	}()
}

func (d *Desktop) log(message string, err error) {
	if d.logger == nil || err == nil {
		return
	}
	d.logger.Debug(message, "error", err.Error())
}
