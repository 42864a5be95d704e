// Package cli defines the voce command tree. Command behavior lives behind
// Handlers so the tree can be exercised without a desktop session.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
}

// Handlers implements each command.
type Handlers interface {
	Daemon(ctx context.Context, g Globals) error
	Forward(ctx context.Context, g Globals, command string) error
	Status(ctx context.Context, g Globals) error
	Devices(ctx context.Context, g Globals) error
	Doctor(ctx context.Context, g Globals) error
	Transcribe(ctx context.Context, g Globals, path string) error
	Inspect(ctx context.Context, g Globals, path string) error
	Version() string
}

// runtimeError marks failures returned by a handler, as opposed to
// argument or flag errors raised by cobra itself.
type runtimeError struct{ err error }

func (e runtimeError) Error() string { return e.err.Error() }
func (e runtimeError) Unwrap() error { return e.err }

// IsUsageError reports whether err came from parsing rather than from
// running a command.
func IsUsageError(err error) bool {
	var rt runtimeError
	return err != nil && !errors.As(err, &rt)
}

// Execute runs the command tree on args. The returned command is the one
// cobra resolved, for printing its usage on argument errors.
func Execute(ctx context.Context, h Handlers, args []string, stdout, stderr io.Writer) (*cobra.Command, error) {
	root := NewRootCmd(h)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContextC(ctx)
}

// NewRootCmd builds the voce command tree.
func NewRootCmd(h Handlers) *cobra.Command {
	var g Globals

	root := &cobra.Command{
		Use:           "voce",
		Short:         "Push-to-talk dictation for Linux desktops",
		Long:          "voce records the microphone on toggle, transcribes the take with a hosted or local Whisper backend, and types or pastes the text into the focused window.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.Version = h.Version()
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "config file path (default $XDG_CONFIG_HOME/voce/config.toml)")
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		&cobra.Command{
			Use:   "daemon",
			Short: "Own the control socket and serve toggle requests",
			Args:  cobra.NoArgs,
			RunE:  run(func(cmd *cobra.Command, _ []string) error { return h.Daemon(cmd.Context(), g) }),
		},
		forwardCmd(h, &g, "toggle", "Start recording, or stop and deliver the transcript"),
		forwardCmd(h, &g, "stop", "Stop recording and deliver the transcript"),
		forwardCmd(h, &g, "cancel", "Discard the active recording"),
		&cobra.Command{
			Use:   "status",
			Short: "Print whether the daemon is recording",
			Args:  cobra.NoArgs,
			RunE:  run(func(cmd *cobra.Command, _ []string) error { return h.Status(cmd.Context(), g) }),
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List audio input sources",
			Args:  cobra.NoArgs,
			RunE:  run(func(cmd *cobra.Command, _ []string) error { return h.Devices(cmd.Context(), g) }),
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Check configuration, audio, transcription, and delivery tools",
			Args:  cobra.NoArgs,
			RunE:  run(func(cmd *cobra.Command, _ []string) error { return h.Doctor(cmd.Context(), g) }),
		},
		&cobra.Command{
			Use:   "transcribe <file>",
			Short: "Transcribe an existing WAV file and print the text",
			Args:  cobra.ExactArgs(1),
			RunE:  run(func(cmd *cobra.Command, args []string) error { return h.Transcribe(cmd.Context(), g, args[0]) }),
		},
		&cobra.Command{
			Use:   "inspect <file>",
			Short: "Print WAV header details",
			Args:  cobra.ExactArgs(1),
			RunE:  run(func(cmd *cobra.Command, args []string) error { return h.Inspect(cmd.Context(), g, args[0]) }),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), h.Version())
			},
		},
	)
	return root
}

func forwardCmd(h Handlers, g *Globals, name string, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  run(func(cmd *cobra.Command, _ []string) error { return h.Forward(cmd.Context(), *g, name) }),
	}
}

func run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return runtimeError{err: err}
		}
		return nil
	}
}
