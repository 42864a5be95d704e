// Package doctor runs readiness checks for config, audio, transcription, and
// delivery.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rbright/voce/internal/asr"
	"github.com/rbright/voce/internal/audio"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/output"
	"github.com/rbright/voce/internal/pipeline"
	"github.com/rbright/voce/internal/proc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", status, check.Name, check.Message)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Options replaces the live environment in tests.
type Options struct {
	Runner      proc.Runner
	Getenv      func(string) string
	SelectAudio func(ctx context.Context, input string) (audio.Selection, error)
	HTTPClient  *http.Client
}

func (o Options) withDefaults() Options {
	if o.Runner == nil {
		o.Runner = proc.Exec{}
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.SelectAudio == nil {
		o.SelectAudio = audio.SelectDevice
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 3 * time.Second}
	}
	return o
}

// Run executes every check against loaded.
func Run(ctx context.Context, loaded config.Loaded, opts Options) Report {
	opts = opts.withDefaults()
	cfg := loaded.Config
	env := pipeline.Env{Runner: opts.Runner, Getenv: opts.Getenv}

	checks := []Check{checkConfig(loaded), checkSession(opts.Getenv)}
	checks = append(checks, checkAudio(ctx, cfg, opts))

	provider, check := checkProvider(ctx, cfg, env)
	checks = append(checks, check)
	if remote, ok := provider.(*asr.Remote); ok {
		checks = append(checks, checkEndpoint(ctx, opts.HTTPClient, remote.Endpoint()))
	}

	checks = append(checks, checkDelivery(cfg, env), checkClipboard(opts.Runner))
	if cfg.Indicator.Enable {
		checks = append(checks, checkIndicator(cfg.Indicator, opts.Runner))
	}
	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%s not found; using defaults", loaded.Path)}
	}
	msg := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		msg += fmt.Sprintf(" with %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: msg}
}

func checkSession(getenv func(string) string) Check {
	switch {
	case strings.TrimSpace(getenv("WAYLAND_DISPLAY")) != "":
		return Check{Name: "session", Pass: true, Message: "wayland session " + getenv("WAYLAND_DISPLAY")}
	case strings.TrimSpace(getenv("DISPLAY")) != "":
		return Check{Name: "session", Pass: true, Message: "x11 session " + getenv("DISPLAY")}
	default:
		return Check{Name: "session", Pass: false, Message: "neither WAYLAND_DISPLAY nor DISPLAY is set"}
	}
}

func checkAudio(ctx context.Context, cfg config.Config, opts Options) Check {
	selection, err := opts.SelectAudio(ctx, cfg.Audio.Input)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message += " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkProvider(ctx context.Context, cfg config.Config, env pipeline.Env) (asr.Provider, Check) {
	p, err := pipeline.BuildPipeline(ctx, cfg, env)
	if err != nil {
		return nil, Check{Name: "transcription.provider", Pass: false, Message: err.Error()}
	}
	provider := p.Provider()
	return provider, Check{
		Name:    "transcription.provider",
		Pass:    true,
		Message: fmt.Sprintf("%s (%s output)", provider.Name(), provider.Kind().Dialect()),
	}
}

// checkEndpoint only proves the API host answers; any non-5xx status counts
// since the probe carries no audio or credential.
func checkEndpoint(ctx context.Context, client *http.Client, endpoint string) Check {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Check{Name: "transcription.endpoint", Pass: false, Message: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "transcription.endpoint", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "transcription.endpoint", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, endpoint)}
	}
	return Check{Name: "transcription.endpoint", Pass: true, Message: fmt.Sprintf("reachable (HTTP %d)", resp.StatusCode)}
}

func checkDelivery(cfg config.Config, env pipeline.Env) Check {
	d := pipeline.BuildDeliverer(cfg, env)
	msg := fmt.Sprintf("primary method %s", d.Method())
	if !cfg.Delivery.AutoPaste {
		msg += " (auto paste off)"
	}
	return Check{Name: "delivery.method", Pass: true, Message: msg}
}

func checkClipboard(r proc.Runner) Check {
	for _, b := range output.DefaultBackends {
		if proc.Has(r, b.Write[0]) && proc.Has(r, b.Read[0]) {
			return Check{Name: "delivery.clipboard", Pass: true, Message: "using " + b.Name}
		}
	}
	return Check{Name: "delivery.clipboard", Pass: false, Message: "install wl-clipboard, xclip, or xsel"}
}

func checkIndicator(cfg config.IndicatorConfig, r proc.Runner) Check {
	bin := "hyprctl"
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		bin = "busctl"
	}
	return checkBinary(r, bin, "indicator."+bin)
}

func checkBinary(r proc.Runner, bin string, name string) Check {
	path, err := r.LookPath(bin)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: name, Pass: true, Message: "found at " + path}
}
