package pipeline

import (
	"context"
	"log/slog"

	"github.com/rbright/voce/internal/asr"
	"github.com/rbright/voce/internal/config"
	"github.com/rbright/voce/internal/output"
	"github.com/rbright/voce/internal/proc"
)

// Env carries the process hooks shared by provider and delivery selection.
// Zero values fall back to the real environment.
type Env struct {
	Runner proc.Runner
	Getenv func(string) string
	Logger *slog.Logger
}

// ProviderOptions maps the transcription section onto selector options.
func ProviderOptions(cfg config.Config, env Env) asr.Options {
	t := cfg.Transcription
	return asr.Options{
		Provider:    t.Provider,
		Model:       t.Model,
		CommandPath: t.CommandPath,
		ModelPath:   t.ModelPath,
		Endpoint:    t.APIEndpoint,
		APIKeyEnv:   t.APIKeyEnv,
		ScratchDir:  cfg.Audio.ScratchDir,
		Getenv:      env.Getenv,
		Runner:      env.Runner,
		Logger:      env.Logger,
	}
}

// BuildPipeline resolves the provider for cfg and pairs it with the
// configured language.
func BuildPipeline(ctx context.Context, cfg config.Config, env Env) (*asr.Pipeline, error) {
	provider, err := asr.Select(ctx, ProviderOptions(cfg, env))
	if err != nil {
		return nil, err
	}
	return asr.NewPipeline(provider, cfg.Transcription.Language, env.Logger), nil
}

// BuildDeliverer constructs the delivery chain for cfg.
func BuildDeliverer(cfg config.Config, env Env) *output.Deliverer {
	return output.New(output.Options{
		InputMethod:       cfg.Delivery.InputMethod,
		AutoPaste:         cfg.Delivery.AutoPaste,
		PreserveClipboard: cfg.Delivery.PreserveClipboard,
		Runner:            env.Runner,
		Getenv:            env.Getenv,
		Logger:            env.Logger,
	})
}

// SettingsFor extracts the per-cycle settings from cfg.
func SettingsFor(cfg config.Config) Settings {
	return Settings{
		ScratchDir:  cfg.Audio.ScratchDir,
		DeleteAudio: cfg.Behavior.DeleteAudioFiles,
	}
}
