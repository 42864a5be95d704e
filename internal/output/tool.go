package output

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/voce/internal/proc"
)

// textArg marks where a tool's argv takes the transcript.
const textArg = "{text}"

// Tool describes one external helper in a cascade: its argv template and
// the conditions under which it is worth trying.
type Tool struct {
	Name string
	Argv []string

	// When gates the tool on the environment (desktop, session type).
	When func(getenv func(string) string) bool
	// Dispatch replaces Argv for tools that need more than one exec.
	Dispatch func(ctx context.Context) error
}

func (t Tool) binary() string {
	if len(t.Argv) > 0 {
		return t.Argv[0]
	}
	return t.Name
}

func (t Tool) args(text string) []string {
	if len(t.Argv) < 2 {
		return nil
	}
	out := make([]string, 0, len(t.Argv)-1)
	for _, arg := range t.Argv[1:] {
		out = append(out, strings.ReplaceAll(arg, textArg, text))
	}
	return out
}

// usable reports whether the tool's environment gate passes and its binary
// is on PATH.
func (t Tool) usable(r proc.Runner, getenv func(string) string) bool {
	if t.When != nil && !t.When(getenv) {
		return false
	}
	return proc.Has(r, t.binary())
}

func (t Tool) run(ctx context.Context, r proc.Runner, text string) error {
	if t.Dispatch != nil {
		return t.Dispatch(ctx)
	}
	_, err := r.Run(ctx, proc.Command{Name: t.binary(), Args: t.args(text)})
	return err
}

// runFirst tries each usable tool in order and returns the name of the
// first one that succeeds.
func runFirst(ctx context.Context, r proc.Runner, getenv func(string) string, tools []Tool, text string) (string, error) {
	var errs []error
	for _, tool := range tools {
		if !tool.usable(r, getenv) {
			continue
		}
		if err := tool.run(ctx, r, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tool.Name, err))
			continue
		}
		return tool.Name, nil
	}
	if len(errs) == 0 {
		return "", errNoUsableTool
	}
	return "", errors.Join(errs...)
}

var errNoUsableTool = errors.New("no usable tool found")
