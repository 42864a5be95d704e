package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/voce/internal/proc"
	"github.com/sethvargo/go-retry"
)

// ErrNoClipboardTool means no clipboard backend is installed or every
// installed backend failed to take the text.
var ErrNoClipboardTool = errors.New("no clipboard tool available")

// Backend is a clipboard helper pair: a writer fed through stdin and a
// reader printing the current selection.
type Backend struct {
	Name  string
	Write []string
	Read  []string
}

// DefaultBackends are tried in order.
var DefaultBackends = []Backend{
	{Name: "wl-copy", Write: []string{"wl-copy"}, Read: []string{"wl-paste", "--no-newline"}},
	{Name: "xclip", Write: []string{"xclip", "-selection", "clipboard"}, Read: []string{"xclip", "-selection", "clipboard", "-out"}},
	{Name: "xsel", Write: []string{"xsel", "--clipboard", "--input"}, Read: []string{"xsel", "--clipboard", "--output"}},
}

// Verify timing for write-then-read-back.
const (
	verifySettle    = 10 * time.Millisecond
	verifyBaseDelay = 50 * time.Millisecond
	verifyMaxDelay  = 200 * time.Millisecond
	verifyBudget    = time.Second
)

// SystemClipboard reads and writes the selection directly. It backs the
// preserve/restore snapshot.
type SystemClipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type atottoClipboard struct{}

func (atottoClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (atottoClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

func verifyBackoff() retry.Backoff {
	b := retry.NewExponential(verifyBaseDelay)
	b = retry.WithCappedDuration(verifyMaxDelay, b)
	return retry.WithMaxDuration(verifyBudget, b)
}

var errClipboardMismatch = errors.New("clipboard contents do not match")

// copyVerified writes text and reads it back until the trimmed contents
// match. Running out of verify budget is logged and treated as success;
// only a write that no backend accepts is an error.
func (d *Deliverer) copyVerified(ctx context.Context, text string) (string, error) {
	var written Backend
	err := retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
		b, err := d.copy(ctx, text)
		if err != nil {
			return err
		}
		written = b

		if err := d.sleep(ctx, verifySettle); err != nil {
			return err
		}
		got, err := d.readClipboard(ctx, b)
		if err == nil && strings.TrimSpace(got) == strings.TrimSpace(text) {
			return nil
		}
		if err == nil {
			err = errClipboardMismatch
		}
		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		return written.Name, nil
	case written.Name == "":
		return "", err
	default:
		d.log().Warn("clipboard verification failed; proceeding anyway", "backend", written.Name, "error", err.Error())
		return written.Name, nil
	}
}

// copy writes text through the first backend that accepts it. Writers may
// leave a child behind to serve the selection, so their output is not
// captured.
func (d *Deliverer) copy(ctx context.Context, text string) (Backend, error) {
	var errs []error
	for _, b := range d.backends {
		if !proc.Has(d.runner, b.Write[0]) {
			continue
		}
		_, err := d.runner.Run(ctx, proc.Command{
			Name:          b.Write[0],
			Args:          b.Write[1:],
			Stdin:         strings.NewReader(text),
			DiscardOutput: true,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			continue
		}
		return b, nil
	}
	if len(errs) == 0 {
		return Backend{}, ErrNoClipboardTool
	}
	return Backend{}, fmt.Errorf("%w: %w", ErrNoClipboardTool, errors.Join(errs...))
}

// readClipboard reads the selection back with the reader paired with b.
func (d *Deliverer) readClipboard(ctx context.Context, b Backend) (string, error) {
	if !proc.Has(d.runner, b.Read[0]) {
		return "", fmt.Errorf("read clipboard: %s not found", b.Read[0])
	}
	res, err := d.runner.Run(ctx, proc.Command{Name: b.Read[0], Args: b.Read[1:]})
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return string(res.Stdout), nil
}

func (d *Deliverer) hasBackend() bool {
	for _, b := range d.backends {
		if proc.Has(d.runner, b.Write[0]) {
			return true
		}
	}
	return false
}
