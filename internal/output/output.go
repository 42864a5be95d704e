// Package output delivers transcripts into the focused application, by
// typing them directly or through the clipboard and a simulated paste.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/voce/internal/hypr"
	"github.com/rbright/voce/internal/proc"
	"github.com/sethvargo/go-retry"
)

// Method is the primary delivery strategy.
type Method string

const (
	MethodYdotool   Method = "ydotool"
	MethodWtype     Method = "wtype"
	MethodClipboard Method = "clipboard"
)

// ParseMethod maps a configured input method. An empty name or "auto" is
// ok with an empty Method.
func ParseMethod(name string) (Method, bool) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "", "auto":
		return "", true
	case MethodYdotool, MethodWtype, MethodClipboard:
		return m, true
	default:
		return "", false
	}
}

// Outcome records how a transcript was delivered.
type Outcome struct {
	Method    Method
	Tool      string
	Pasted    bool
	PasteTool string
	OK        bool
}

// Options configures a Deliverer.
type Options struct {
	InputMethod       string
	AutoPaste         bool
	PreserveClipboard bool

	Runner    proc.Runner
	Getenv    func(string) string
	Clipboard SystemClipboard
	Logger    *slog.Logger
}

// Deliverer is the text delivery chain. The method is fixed at
// construction; build a new Deliverer to pick up configuration changes.
type Deliverer struct {
	method    Method
	autoPaste bool
	preserve  bool

	runner proc.Runner
	getenv func(string) string
	system SystemClipboard
	hypr   *hypr.Client
	logger *slog.Logger

	backends []Backend
	pasters  []Tool
	backoff  func() retry.Backoff
	sleep    func(context.Context, time.Duration) error
}

func New(opts Options) *Deliverer {
	d := &Deliverer{
		autoPaste: opts.AutoPaste,
		preserve:  opts.PreserveClipboard,
		runner:    opts.Runner,
		getenv:    opts.Getenv,
		system:    opts.Clipboard,
		logger:    opts.Logger,
		backends:  DefaultBackends,
		backoff:   verifyBackoff,
		sleep:     sleepContext,
	}
	if d.runner == nil {
		d.runner = proc.Exec{}
	}
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	if d.system == nil {
		d.system = atottoClipboard{}
	}
	d.hypr = hypr.NewClient(d.runner)
	d.pasters = d.pasteCascade()
	d.method = d.selectMethod(opts.InputMethod)
	return d
}

// Method returns the primary delivery method.
func (d *Deliverer) Method() Method { return d.method }

func (d *Deliverer) selectMethod(name string) Method {
	requested, ok := ParseMethod(name)
	if !ok {
		d.log().Warn("unknown input method; auto-detecting", "input_method", name)
	}

	switch requested {
	case MethodClipboard:
		return MethodClipboard
	case MethodYdotool, MethodWtype:
		if proc.Has(d.runner, string(requested)) {
			d.log().Info("input method selected", "method", string(requested), "source", "config")
			return requested
		}
		d.log().Warn("requested input method not found; auto-detecting", "input_method", string(requested))
	}

	method := MethodClipboard
	switch {
	case proc.Has(d.runner, string(MethodYdotool)):
		method = MethodYdotool
	case strings.TrimSpace(d.getenv("WAYLAND_DISPLAY")) != "" && d.hasBackend():
		method = MethodClipboard
	case proc.Has(d.runner, string(MethodWtype)):
		method = MethodWtype
	}
	d.log().Info("input method selected", "method", string(method), "source", "auto")
	return method
}

// Deliver puts text into the focused application. Direct typing that fails
// falls back to the clipboard. A failed paste still counts as delivered
// since the text is left on the clipboard.
func (d *Deliverer) Deliver(ctx context.Context, text string) (Outcome, error) {
	if text == "" {
		return Outcome{}, nil
	}

	if tool, ok := typeTools[d.method]; ok {
		err := tool.run(ctx, d.runner, text)
		if err == nil {
			d.log().Info("transcript typed", "tool", tool.Name, "chars", len(text))
			return Outcome{Method: d.method, Tool: tool.Name, OK: true}, nil
		}
		d.log().Warn("direct typing failed; falling back to clipboard paste", "tool", tool.Name, "error", err.Error())
	}
	return d.clipboardPaste(ctx, text)
}

func (d *Deliverer) clipboardPaste(ctx context.Context, text string) (Outcome, error) {
	var (
		prior     string
		havePrior bool
	)
	if d.preserve {
		if s, err := d.system.ReadAll(); err == nil {
			prior, havePrior = s, true
		} else {
			d.log().Debug("clipboard snapshot failed", "error", err.Error())
		}
	}

	backend, err := d.copyVerified(ctx, text)
	if err != nil {
		return Outcome{Method: MethodClipboard}, fmt.Errorf("copy transcript: %w", err)
	}
	out := Outcome{Method: MethodClipboard, Tool: backend, OK: true}
	if !d.autoPaste {
		d.log().Info("transcript copied", "backend", backend, "chars", len(text))
		return out, nil
	}

	out.PasteTool, out.Pasted = d.paste(ctx)
	d.log().Info("transcript pasted", "backend", backend, "paste_tool", out.PasteTool, "pasted", out.Pasted)
	if out.Pasted && havePrior {
		d.restore(ctx, prior)
	}
	return out, nil
}

// restore puts the pre-delivery clipboard back once the target app has had
// time to read the pasted selection.
func (d *Deliverer) restore(ctx context.Context, prior string) {
	if err := d.sleep(ctx, restoreDelay); err != nil {
		return
	}
	if err := d.system.WriteAll(prior); err != nil {
		d.log().Warn("restore clipboard failed", "error", err.Error())
	}
}

func (d *Deliverer) log() *slog.Logger {
	if d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
