package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/cli"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/indicator"
	"github.com/rbright/voce/internal/ipc"
	"github.com/rbright/voce/internal/pipeline"
	"github.com/rbright/voce/internal/session"
)

const (
	probeTimeout   = 180 * time.Millisecond
	acquireRetries = 8
)

// Daemon owns the control socket and the recorder until ctx is done.
func (r Runner) Daemon(ctx context.Context, g cli.Globals) error {
	e, err := r.setup(g, "daemon", true)
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.loaded.Config
	logger := e.logger

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, socketPath, probeTimeout, acquireRetries)
	if err != nil {
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	source, err := audio.OpenPulseSource(ctx, cfg.Audio.Input)
	if err != nil {
		return err
	}
	defer source.Close()
	selection := source.Selection()
	if selection.Warning != "" {
		logger.Warn("audio device fallback", "warning", selection.Warning)
		fmt.Fprintf(r.Stderr, "warning: %s\n", selection.Warning)
	}
	logger.Info("audio device selected", "id", selection.Device.ID, "description", selection.Device.Description)

	recorder := audio.NewRecorder(source, logger)
	defer recorder.Close()

	runtimeEnv := pipeline.Env{Logger: logger}
	asrPipeline, err := pipeline.BuildPipeline(ctx, cfg, runtimeEnv)
	if err != nil {
		// Keep serving so a later config reload can supply a provider.
		logger.Error("no transcription provider", "error", err.Error())
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}
	transcriber := pipeline.NewTranscriber(recorder, asrPipeline, pipeline.SettingsFor(cfg), logger)

	notifier := indicator.New(cfg.Indicator, nil, logger)
	defer notifier.Wait()

	controller := session.NewController(logger, transcriber, pipeline.BuildDeliverer(cfg, runtimeEnv), notifier)
	defer controller.Shutdown(context.Background())
	controller.OnResult(func(result session.Result) {
		if result.Err != nil && !result.NoSpeech() {
			fmt.Fprintf(r.Stderr, "voce: %s\n", session.Summary(result))
		}
	})

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchDone := make(chan struct{})
	if cfg.Behavior.WatchConfig && e.loaded.Exists {
		go func() {
			defer close(watchDone)
			reload := reloader(serveCtx, logger, transcriber, controller)
			if err := config.Watch(serveCtx, e.loaded.Path, reload, func(err error) {
				logger.Warn("config reload failed", "error", err.Error())
			}); err != nil {
				logger.Warn("config watch unavailable", "error", err.Error())
			}
		}()
	} else {
		close(watchDone)
	}

	fmt.Fprintf(r.Stdout, "voce daemon listening on %s\n", socketPath)
	logger.Info("daemon ready", "socket", socketPath, "log", e.logPath)

	err = ipc.Serve(serveCtx, listener, controller)
	cancel()
	<-watchDone
	logger.Info("daemon stopping")
	return err
}

// reloader swaps the provider, per-cycle settings, and delivery chain for
// later runs. Settings and delivery always follow the new file; a provider
// that fails to resolve keeps the previous one.
func reloader(ctx context.Context, logger *slog.Logger, transcriber *pipeline.Transcriber, controller *session.Controller) func(config.Loaded) {
	return func(loaded config.Loaded) {
		cfg := loaded.Config
		env := pipeline.Env{Logger: logger}
		for _, w := range loaded.Warnings {
			logger.Warn("config warning", "line", w.Line, "message", w.Message)
		}

		controller.SetDeliverer(pipeline.BuildDeliverer(cfg, env))

		p, err := pipeline.BuildPipeline(ctx, cfg, env)
		if err != nil {
			transcriber.SetSettings(pipeline.SettingsFor(cfg))
			logger.Error("config reload kept previous provider", "path", loaded.Path, "error", err.Error())
			return
		}
		transcriber.Reconfigure(p, pipeline.SettingsFor(cfg))
		logger.Info("config reloaded", "path", loaded.Path, "provider", p.Provider().Name())
	}
}
