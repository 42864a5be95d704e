package asr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/rbright/voce/internal/proc"
)

// Options carries the configuration and environment hooks Select needs.
type Options struct {
	Provider    string
	Model       string
	CommandPath string
	ModelPath   string
	Endpoint    string
	APIKeyEnv   string
	ScratchDir  string

	Getenv     func(string) string
	Runner     proc.Runner
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.Runner == nil {
		o.Runner = proc.Exec{}
	}
	if strings.TrimSpace(o.APIKeyEnv) == "" {
		o.APIKeyEnv = DefaultAPIKeyEnv
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// ParseKind maps a configured provider name to a Kind. ok is false for
// unrecognized names; an empty name is reported as ok with an empty Kind.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return "", true
	case "openai", "api", "remote", "openai-api":
		return KindRemote, true
	case "whisper", "openai-whisper", "whisper-cli-python":
		return KindWhisperCLI, true
	case "whisper-cpp", "whisper.cpp", "whispercpp":
		return KindWhisperCpp, true
	default:
		return "", false
	}
}

// Select builds the configured provider, or auto-detects one in priority
// order: hosted API when its credential is set, then a local binary that
// probes as openai-whisper, then any whisper-like binary as whisper.cpp.
func Select(ctx context.Context, opts Options) (Provider, error) {
	opts = opts.withDefaults()

	kind, ok := ParseKind(opts.Provider)
	if !ok {
		opts.Logger.Warn("unknown transcription provider; auto-detecting", "provider", opts.Provider)
		kind = ""
	}

	var (
		p   Provider
		err error
	)
	switch kind {
	case KindRemote:
		p, err = selectRemote(opts)
	case KindWhisperCLI:
		p, err = selectWhisperCLI(ctx, opts)
	case KindWhisperCpp:
		p, err = selectWhisperCpp(opts)
	default:
		p, err = autoDetect(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("transcription provider selected", "provider", p.Name(), "kind", string(p.Kind()))
	return p, nil
}

func autoDetect(ctx context.Context, opts Options) (Provider, error) {
	if key := strings.TrimSpace(opts.Getenv(opts.APIKeyEnv)); key != "" {
		return newRemote(opts, key), nil
	}

	binary, err := resolveBinary(opts.Runner, opts.CommandPath, anyWhisperNames)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not set and %v", ErrNoProviderAvailable, opts.APIKeyEnv, err)
	}
	if probeKind(ctx, opts.Runner, binary) == KindWhisperCLI {
		return NewWhisperCLI(opts.Runner, binary, opts.Model, opts.ScratchDir), nil
	}
	return NewWhisperCpp(opts.Runner, binary, opts.Model, opts.ModelPath, opts.Logger), nil
}

func selectRemote(opts Options) (Provider, error) {
	key := strings.TrimSpace(opts.Getenv(opts.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrNoProviderAvailable, opts.APIKeyEnv)
	}
	return newRemote(opts, key), nil
}

// selectWhisperCLI honors an explicit request for the openai-whisper CLI even
// when the probe disagrees; the probe result is only logged.
func selectWhisperCLI(ctx context.Context, opts Options) (Provider, error) {
	binary, err := resolveBinary(opts.Runner, opts.CommandPath, whisperCLINames)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProviderAvailable, err)
	}
	if probeKind(ctx, opts.Runner, binary) != KindWhisperCLI {
		opts.Logger.Warn("whisper binary help does not list --output_format/--output_dir", "binary", binary)
	}
	return NewWhisperCLI(opts.Runner, binary, opts.Model, opts.ScratchDir), nil
}

func selectWhisperCpp(opts Options) (Provider, error) {
	binary, err := resolveBinary(opts.Runner, opts.CommandPath, whisperCppNames)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProviderAvailable, err)
	}
	return NewWhisperCpp(opts.Runner, binary, opts.Model, opts.ModelPath, opts.Logger), nil
}

func newRemote(opts Options, key string) *Remote {
	return NewRemote(RemoteConfig{
		Endpoint: opts.Endpoint,
		APIKey:   key,
		Model:    opts.Model,
		Client:   opts.HTTPClient,
	})
}
