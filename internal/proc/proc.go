// Package proc runs the external executables voce delegates to (whisper CLIs,
// typing tools, clipboard tools) behind a small interface that tests can fake.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Command describes one subprocess invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin io.Reader
	Dir   string
	// DiscardOutput sends stdout and stderr to the null device. Tools that
	// fork a long-lived child (wl-copy, xclip serving the selection) need it:
	// the child inherits captured pipes and Run would wait for it to exit.
	DiscardOutput bool
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds captured output of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout followed by stderr.
func (r Result) Combined() string {
	return string(r.Stdout) + string(r.Stderr)
}

// ExitError reports a spawn failure or non-zero exit with the stderr text
// the tool printed.
type ExitError struct {
	Name     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s failed: %v (%s)", e.Name, e.Err, e.Stderr)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner executes commands and resolves executables.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
	LookPath(name string) (string, error)
}

// Exec is the os/exec backed Runner.
type Exec struct{}

// pipeDrainDelay bounds how long Run keeps reading captured output after the
// direct child has exited.
const pipeDrainDelay = 250 * time.Millisecond

// Run waits for cmd and returns its captured output. A nil Stdin is wired to
// the null device so tools that read stdin never block on the terminal.
// Output still held open by a background descendant is abandoned once
// pipeDrainDelay has passed after the child exits.
func (Exec) Run(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.Name) == "" {
		return Result{}, errors.New("command name is required")
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	if !cmd.DiscardOutput {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}
	c.WaitDelay = pipeDrainDelay

	start := time.Now()
	err := c.Run()
	if errors.Is(err, exec.ErrWaitDelay) {
		// The child exited cleanly; a descendant still holds its pipes.
		err = nil
	}
	result := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if err != nil {
		return result, &ExitError{
			Name:     cmd.Name,
			ExitCode: result.ExitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return result, nil
}

func (Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Has reports whether name resolves through r.
func Has(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}
