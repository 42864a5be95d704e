// Package pipeline binds audio capture to the transcription pipeline for one
// recording at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rbright/voce/internal/asr"
	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/fsm"
)

// ErrPipelineUnavailable reports that no transcription provider is wired.
var ErrPipelineUnavailable = errors.New("transcription pipeline unavailable")

// StopResult describes one finished capture and its transcription.
type StopResult struct {
	Artifact audio.Artifact
	Result   asr.Result
	Retained bool
}

// Settings are the config-derived knobs that may change on reload.
type Settings struct {
	ScratchDir  string
	DeleteAudio bool
}

// Transcriber owns one capture -> transcribe cycle. The recorder lives for
// the whole process; the asr pipeline and settings can be swapped between
// cycles.
type Transcriber struct {
	recorder *audio.Recorder
	logger   *slog.Logger
	newName  func() string

	mu       sync.RWMutex
	pipeline *asr.Pipeline
	settings Settings
}

// NewTranscriber constructs a transcriber. pipeline may be nil when no
// provider resolved; StopAndTranscribe then fails with ErrPipelineUnavailable.
func NewTranscriber(recorder *audio.Recorder, pipeline *asr.Pipeline, settings Settings, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		recorder: recorder,
		logger:   logger,
		newName:  artifactName,
		pipeline: pipeline,
		settings: settings,
	}
}

// Reconfigure swaps the pipeline and settings used by later cycles.
func (t *Transcriber) Reconfigure(pipeline *asr.Pipeline, settings Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pipeline = pipeline
	t.settings = settings
}

// SetSettings swaps only the per-cycle settings, keeping the pipeline.
func (t *Transcriber) SetSettings(settings Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = settings
}

// State reports the recorder lifecycle state.
func (t *Transcriber) State() fsm.State { return t.recorder.State() }

// Start begins capture.
func (t *Transcriber) Start(context.Context) error {
	if err := t.recorder.Start(); err != nil {
		return err
	}
	t.log().Info("capture started")
	return nil
}

// Cancel ends capture and drops the samples.
func (t *Transcriber) Cancel(context.Context) error {
	if err := t.recorder.Cancel(); err != nil {
		return err
	}
	t.log().Info("capture cancelled")
	return nil
}

// StopAndTranscribe stops capture, writes the artifact, and runs it through
// the current pipeline. The artifact is removed afterwards when DeleteAudio
// is set, whether or not transcription succeeded.
func (t *Transcriber) StopAndTranscribe(ctx context.Context) (StopResult, error) {
	t.mu.RLock()
	pipeline := t.pipeline
	settings := t.settings
	t.mu.RUnlock()

	path := filepath.Join(scratchDir(settings.ScratchDir), t.newName())
	artifact, err := t.recorder.Stop(path)
	if err != nil {
		return StopResult{}, err
	}
	t.log().Info("capture stopped",
		"samples", artifact.Samples,
		"duration_ms", artifact.Duration.Milliseconds(),
		"dropped_blocks", artifact.Dropped,
	)

	result := StopResult{Artifact: artifact, Retained: !settings.DeleteAudio}
	if settings.DeleteAudio {
		defer t.remove(artifact.Path)
	}

	if pipeline == nil {
		return result, ErrPipelineUnavailable
	}

	transcribed, err := pipeline.Transcribe(ctx, artifact.Path)
	if err != nil {
		return result, err
	}
	result.Result = transcribed
	return result, nil
}

func (t *Transcriber) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.log().Warn("remove audio artifact", "path", path, "error", err.Error())
	}
}

func (t *Transcriber) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

func scratchDir(configured string) string {
	if dir := strings.TrimSpace(configured); dir != "" {
		return dir
	}
	return os.TempDir()
}

func artifactName() string {
	return fmt.Sprintf("voce_%s.wav", uuid.NewString())
}
