package asr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/voce/internal/transcript"
)

// Result is one transcription: the backend's raw output and the canonical
// text derived from it.
type Result struct {
	Provider string
	Raw      string
	Text     string
	Latency  time.Duration
}

// Pipeline pairs a provider with the normalizer for its output dialect.
type Pipeline struct {
	provider Provider
	language string
	logger   *slog.Logger
}

func NewPipeline(provider Provider, language string, logger *slog.Logger) *Pipeline {
	return &Pipeline{provider: provider, language: language, logger: logger}
}

func (p *Pipeline) Provider() Provider { return p.provider }

// Transcribe runs the provider on audioPath and normalizes the output. A
// provider that has become unusable since selection (binary removed,
// credential unset) fails with ErrNoProviderAvailable before any work.
func (p *Pipeline) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	if !p.provider.Available(ctx) {
		return Result{}, fmt.Errorf("%w: %s is no longer usable", ErrNoProviderAvailable, p.provider.Name())
	}

	start := time.Now()
	raw, err := p.provider.Transcribe(ctx, audioPath, p.language)
	latency := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe with %s: %w", p.provider.Name(), err)
	}

	dialect := p.provider.Kind().Dialect()
	result := Result{
		Provider: p.provider.Name(),
		Raw:      raw,
		Text:     transcript.Normalize(dialect, raw),
		Latency:  latency,
	}
	if p.logger != nil {
		p.logger.Info("transcription complete",
			"provider", result.Provider,
			"dialect", dialect.String(),
			"latency_ms", latency.Milliseconds(),
			"text_length", len(result.Text),
		)
	}
	return result, nil
}
