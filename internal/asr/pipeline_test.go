package asr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	kind        Kind
	raw         string
	err         error
	unavailable bool

	gotPath     string
	gotLanguage string
}

func (s *stubProvider) Name() string                   { return "stub-" + string(s.kind) }
func (s *stubProvider) Kind() Kind                     { return s.kind }
func (s *stubProvider) Available(context.Context) bool { return !s.unavailable }

func (s *stubProvider) Transcribe(_ context.Context, path string, language string) (string, error) {
	s.gotPath = path
	s.gotLanguage = language
	return s.raw, s.err
}

func TestPipelineNormalizesByDialect(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		raw  string
		want string
	}{
		{name: "whisper cli trims", kind: KindWhisperCLI, raw: "  Hello world  ", want: "Hello world"},
		{name: "remote trims", kind: KindRemote, raw: "\nHello\n", want: "Hello"},
		{name: "whisper.cpp strips ranges", kind: KindWhisperCpp, raw: "[00:00:00.000 --> 00:00:03.280] hello\n[00:00:03.280 --> 00:00:05.000] world", want: "hello world"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{kind: tc.kind, raw: tc.raw}
			result, err := NewPipeline(provider, "en", nil).Transcribe(context.Background(), "/tmp/a.wav")
			require.NoError(t, err)
			require.Equal(t, tc.want, result.Text)
			require.Equal(t, tc.raw, result.Raw)
			require.Equal(t, provider.Name(), result.Provider)
			require.Equal(t, "/tmp/a.wav", provider.gotPath)
			require.Equal(t, "en", provider.gotLanguage)
		})
	}
}

func TestPipelineWrapsProviderError(t *testing.T) {
	provider := &stubProvider{kind: KindRemote, err: errors.New("boom")}
	pipeline := NewPipeline(provider, "en", nil)
	require.Same(t, provider, pipeline.Provider())

	_, err := pipeline.Transcribe(context.Background(), "/tmp/a.wav")
	require.EqualError(t, err, "transcribe with stub-remote: boom")
}

func TestPipelineRejectsUnavailableProvider(t *testing.T) {
	provider := &stubProvider{kind: KindWhisperCpp, raw: "never", unavailable: true}

	_, err := NewPipeline(provider, "en", nil).Transcribe(context.Background(), "/tmp/a.wav")
	require.ErrorIs(t, err, ErrNoProviderAvailable)
	require.Empty(t, provider.gotPath)
}
