package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/voce/internal/fsm"
)

// SampleRate is the fixed capture rate for every recording.
const SampleRate = 16000

var (
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	ErrNoSamplesRecorded = errors.New("no audio samples recorded")
)

// Source opens live input streams. onSamples runs on a driver-owned
// goroutine and must not block.
type Source interface {
	Open(onSamples func([]float32)) (Stream, error)
}

// Stream is a running input stream. Close stops the hardware callback.
type Stream interface {
	Close()
}

// Artifact is the WAV file produced by one completed recording.
type Artifact struct {
	Path     string
	Samples  int
	Duration time.Duration
	Dropped  int64
}

// Recorder is the single recording session of the process. All state and
// buffer access is serialized by mu; the stream callback only ever uses
// TryLock and drops the block when the lock is contended.
type Recorder struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	state   fsm.State
	samples []float32
	stream  Stream
	// generation increments per opened stream so blocks from a torn-down
	// stream can never land in a later session's buffer.
	generation uint64

	dropped atomic.Int64
}

// NewRecorder returns an idle recorder reading from source.
func NewRecorder(source Source, logger *slog.Logger) *Recorder {
	return &Recorder{source: source, logger: logger, state: fsm.StateIdle}
}

// State returns the current lifecycle state.
func (r *Recorder) State() fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens a fresh input stream and begins buffering samples.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fsm.Transition(r.state, fsm.EventStart)
	if err != nil {
		return err
	}

	r.teardownLocked()
	r.samples = nil
	r.dropped.Store(0)
	r.generation++
	gen := r.generation

	stream, err := r.source.Open(func(block []float32) { r.onSamples(gen, block) })
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	r.stream = stream
	r.state = next
	return nil
}

// Stop ends the recording and writes the buffered samples to path as
// 32-bit float mono WAV. The recorder is Idle again when Stop returns,
// whether or not it succeeded.
func (r *Recorder) Stop(path string) (Artifact, error) {
	snapshot, err := r.drain(fsm.EventStop)
	if err != nil {
		return Artifact{}, err
	}
	defer r.finalize()

	dropped := r.dropped.Load()
	if dropped > 0 {
		r.log().Warn("audio blocks dropped under lock contention", "blocks", dropped)
	}
	if len(snapshot) == 0 {
		return Artifact{}, ErrNoSamplesRecorded
	}

	if err := writeFloat32WAV(path, snapshot, SampleRate); err != nil {
		return Artifact{}, fmt.Errorf("write audio artifact: %w", err)
	}

	return Artifact{
		Path:     path,
		Samples:  len(snapshot),
		Duration: samplesDuration(len(snapshot)),
		Dropped:  dropped,
	}, nil
}

// Cancel ends the recording and discards its samples.
func (r *Recorder) Cancel() error {
	if _, err := r.drain(fsm.EventCancel); err != nil {
		return err
	}
	r.finalize()
	return nil
}

// Close discards an active recording and releases its stream. It is safe to
// call in any state and more than once.
func (r *Recorder) Close() {
	err := r.Cancel()
	if err != nil && !fsm.IsConflict(err) {
		r.log().Warn("close recorder", "error", err.Error())
	}
}

// drain moves Recording -> Stopping, tears the stream down outside the lock,
// and takes the buffered samples.
func (r *Recorder) drain(event fsm.Event) ([]float32, error) {
	r.mu.Lock()
	next, err := fsm.Transition(r.state, event)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.state = next
	stream := r.stream
	r.stream = nil
	r.mu.Unlock()

	if stream != nil {
		stream.Close()
	}

	r.mu.Lock()
	snapshot := r.samples
	r.samples = nil
	r.mu.Unlock()
	return snapshot, nil
}

func (r *Recorder) finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = nil
	if next, err := fsm.Transition(r.state, fsm.EventFinalize); err == nil {
		r.state = next
	}
}

func (r *Recorder) teardownLocked() {
	if r.stream == nil {
		return
	}
	r.stream.Close()
	r.stream = nil
}

func (r *Recorder) onSamples(gen uint64, block []float32) {
	if !r.mu.TryLock() {
		r.dropped.Add(1)
		return
	}
	defer r.mu.Unlock()

	if gen != r.generation {
		return
	}
	if r.state != fsm.StateRecording && r.state != fsm.StateStopping {
		return
	}
	r.samples = append(r.samples, block...)
}

func (r *Recorder) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

func samplesDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}
