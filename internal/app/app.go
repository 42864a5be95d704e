// Package app binds the command tree to config, logging, and the runtime
// components.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/cli"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/doctor"
	"github.com/rbright/voce/internal/ipc"
	"github.com/rbright/voce/internal/logging"
	"github.com/rbright/voce/internal/pipeline"
	"github.com/rbright/voce/internal/version"
)

// Runner implements every command against real process I/O.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Logger overrides the file logger; tests use it to capture output.
	Logger *slog.Logger
	// DoctorOptions overrides the live environment probes of the doctor command.
	DoctorOptions doctor.Options
}

// Execute runs args and returns the process exit code: 0 on success, 1 on
// runtime failure, 2 on usage errors.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	cmd, err := cli.Execute(ctx, r, args, r.Stdout, r.Stderr)
	if err == nil {
		return 0
	}

	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	if !cli.IsUsageError(err) {
		return 1
	}
	if cmd != nil {
		fmt.Fprintf(r.Stderr, "\n%s", cmd.UsageString())
	}
	return 2
}

func (r Runner) Version() string { return version.String() }

// env is the per-command runtime: loaded config plus the logger.
type env struct {
	loaded  config.Loaded
	logger  *slog.Logger
	logPath string
	close   func()
}

// setup loads the dotenv credentials file and config, then opens the log.
// Config warnings always go to the log; loud also prints them.
func (r Runner) setup(g cli.Globals, command string, loud bool) (env, error) {
	configPath, err := config.ResolvePath(g.ConfigPath)
	if err != nil {
		return env{}, err
	}
	envLoaded, err := config.LoadEnvFile(config.EnvPath(configPath))
	if err != nil {
		return env{}, err
	}

	logger := r.Logger
	logPath := ""
	closeLog := func() {}
	if logger == nil {
		rt, err := logging.New(logging.Level(g.Verbose))
		if err != nil {
			return env{}, fmt.Errorf("setup logging: %w", err)
		}
		logger, logPath, closeLog = rt.Logger, rt.Path, func() { _ = rt.Close() }
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		logger.Error("load config failed", "error", err.Error())
		closeLog()
		return env{}, err
	}
	for _, w := range loaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
		if loud {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w)
		}
	}

	logger.Info("command start",
		"command", command,
		"config", loaded.Path,
		"env_file_loaded", envLoaded,
		"log", logPath,
	)
	return env{loaded: loaded, logger: logger, logPath: logPath, close: closeLog}, nil
}

// Forward sends toggle/stop/cancel to the daemon.
func (r Runner) Forward(ctx context.Context, g cli.Globals, command string) error {
	e, err := r.setup(g, command, false)
	if err != nil {
		return err
	}
	defer e.close()

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	resp, err := ipc.Forward(ctx, socketPath, command)
	if errors.Is(err, ipc.ErrNoDaemon) {
		return fmt.Errorf("%w; start it with `voce daemon`", err)
	}
	if err != nil {
		e.logger.Warn("command rejected", "command", command, "error", err.Error())
		return err
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

// Status prints recording or idle. A daemon that is not running is idle.
func (r Runner) Status(ctx context.Context, g cli.Globals) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	}

	resp, err := ipc.Forward(ctx, socketPath, ipc.CommandStatus)
	switch {
	case errors.Is(err, ipc.ErrNoDaemon):
		fmt.Fprintln(r.Stdout, "idle")
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintln(r.Stdout, statusLine(resp))
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return nil
}

func statusLine(resp ipc.Response) string {
	state := "idle"
	if resp.Recording {
		state = "recording"
	}
	if resp.Processing {
		state += " (processing)"
	}
	return state
}

func (r Runner) Devices(ctx context.Context, _ cli.Globals) error {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no audio input sources found")
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return nil
}

func (r Runner) Doctor(ctx context.Context, g cli.Globals) error {
	e, err := r.setup(g, "doctor", true)
	if err != nil {
		return err
	}
	defer e.close()

	report := doctor.Run(ctx, e.loaded, r.DoctorOptions)
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return errors.New("doctor found problems")
	}
	return nil
}

// Transcribe runs the transcription pipeline on an existing file.
func (r Runner) Transcribe(ctx context.Context, g cli.Globals, path string) error {
	e, err := r.setup(g, "transcribe", true)
	if err != nil {
		return err
	}
	defer e.close()

	if info, err := audio.Inspect(path); err == nil && info.ExceedsUploadLimit() {
		fmt.Fprintf(r.Stderr, "warning: %s is %s; hosted transcription rejects files over %s\n",
			path, humanBytes(info.Size), humanBytes(audio.RemoteUploadLimit))
	}

	p, err := pipeline.BuildPipeline(ctx, e.loaded.Config, pipeline.Env{Logger: e.logger})
	if err != nil {
		return err
	}
	result, err := p.Transcribe(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Stdout, result.Text)
	return nil
}

// Inspect prints the WAV header of path.
func (r Runner) Inspect(_ context.Context, _ cli.Globals, path string) error {
	info, err := audio.Inspect(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.Stdout, "path:        %s\n", info.Path)
	fmt.Fprintf(r.Stdout, "size:        %s\n", humanBytes(info.Size))
	fmt.Fprintf(r.Stdout, "format:      %s\n", info.Format)
	fmt.Fprintf(r.Stdout, "sample_rate: %d Hz\n", info.SampleRate)
	fmt.Fprintf(r.Stdout, "channels:    %d\n", info.Channels)
	fmt.Fprintf(r.Stdout, "bit_depth:   %d\n", info.BitDepth)
	fmt.Fprintf(r.Stdout, "duration:    %s\n", info.Duration)
	if info.ExceedsUploadLimit() {
		fmt.Fprintf(r.Stderr, "warning: file exceeds the %s hosted upload limit\n", humanBytes(audio.RemoteUploadLimit))
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %siB", float64(n)/float64(div), strings.Split("K M G T", " ")[exp])
}
