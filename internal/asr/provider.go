// Package asr transcribes finished recordings through one of a fixed set of
// speech-recognition backends: the hosted Whisper API, the openai-whisper
// CLI, or a whisper.cpp CLI.
package asr

import (
	"context"
	"errors"

	"github.com/rbright/voce/internal/transcript"
)

// Kind tags the backend variant. The set is closed; Select only ever builds
// one of these.
type Kind string

const (
	KindRemote     Kind = "remote"
	KindWhisperCLI Kind = "whisper"
	KindWhisperCpp Kind = "whisper-cpp"
)

// Dialect reports the output conventions of the backend kind.
func (k Kind) Dialect() transcript.Dialect {
	if k == KindWhisperCpp {
		return transcript.DialectTimestamped
	}
	return transcript.DialectPlain
}

// Default model identifiers per backend.
const (
	DefaultRemoteModel     = "whisper-1"
	DefaultWhisperCLIModel = "base"
	DefaultWhisperCppModel = "base.en"
)

// DefaultEndpoint is the hosted transcription endpoint.
const DefaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// DefaultAPIKeyEnv names the credential environment variable.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

var ErrNoProviderAvailable = errors.New("no transcription provider available")

// Provider transcribes one audio file. language is a hint; empty or "auto"
// lets the backend detect it.
type Provider interface {
	Name() string
	Kind() Kind
	Available(ctx context.Context) bool
	Transcribe(ctx context.Context, audioPath string, language string) (string, error)
}

func autoLanguage(language string) bool {
	return language == "" || language == "auto"
}
