package asr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoteTranscribeSendsMultipartForm(t *testing.T) {
	audio := writeAudioFixture(t, "voce_take.wav", "RIFF-fake-audio")

	type captured struct {
		auth        string
		fileName    string
		fileType    string
		fileBody    string
		model       string
		format      string
		hasLanguage bool
		language    string
	}
	got := make(chan captured, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		body, err := io.ReadAll(file)
		require.NoError(t, err)

		_, hasLanguage := r.MultipartForm.Value["language"]
		got <- captured{
			auth:        r.Header.Get("Authorization"),
			fileName:    header.Filename,
			fileType:    header.Header.Get("Content-Type"),
			fileBody:    string(body),
			model:       r.FormValue("model"),
			format:      r.FormValue("response_format"),
			hasLanguage: hasLanguage,
			language:    r.FormValue("language"),
		}
		_, _ = w.Write([]byte(`{"text":"  Hello from the API  "}`))
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{Endpoint: server.URL, APIKey: "sk-test", Client: server.Client()})

	text, err := remote.Transcribe(context.Background(), audio, "de")
	require.NoError(t, err)
	require.Equal(t, "Hello from the API", text)

	req := <-got
	require.Equal(t, "Bearer sk-test", req.auth)
	require.Equal(t, "voce_take.wav", req.fileName)
	require.Equal(t, "audio/wav", req.fileType)
	require.Equal(t, "RIFF-fake-audio", req.fileBody)
	require.Equal(t, DefaultRemoteModel, req.model)
	require.Equal(t, "json", req.format)
	require.True(t, req.hasLanguage)
	require.Equal(t, "de", req.language)
}

func TestRemoteTranscribeOmitsAutoLanguage(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", "x")

	for _, language := range []string{"", "auto"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, hasLanguage := r.MultipartForm.Value["language"]
			require.False(t, hasLanguage)
			_, _ = w.Write([]byte(`{"text":"ok"}`))
		}))

		remote := NewRemote(RemoteConfig{Endpoint: server.URL, APIKey: "k", Client: server.Client()})
		text, err := remote.Transcribe(context.Background(), audio, language)
		require.NoError(t, err)
		require.Equal(t, "ok", text)
		server.Close()
	}
}

func TestRemoteTranscribeStructuredError(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", "x")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{Endpoint: server.URL, APIKey: "bad", Client: server.Client()})
	_, err := remote.Transcribe(context.Background(), audio, "en")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "invalid_api_key", apiErr.Code)
	require.Equal(t, "API error: Incorrect API key provided (invalid_request_error, invalid_api_key)", err.Error())
}

func TestRemoteTranscribeRawError(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", "x")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{Endpoint: server.URL, APIKey: "k", Client: server.Client()})
	_, err := remote.Transcribe(context.Background(), audio, "en")
	require.EqualError(t, err, "request failed with status 502: upstream unavailable")
}

func TestRemoteTranscribeDecodeFailure(t *testing.T) {
	audio := writeAudioFixture(t, "a.wav", "x")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	remote := NewRemote(RemoteConfig{Endpoint: server.URL, APIKey: "k", Client: server.Client()})
	_, err := remote.Transcribe(context.Background(), audio, "en")
	require.ErrorContains(t, err, "decode transcription response")
}

func TestRemoteTranscribeMissingFile(t *testing.T) {
	remote := NewRemote(RemoteConfig{APIKey: "k"})
	_, err := remote.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "en")
	require.ErrorContains(t, err, "open audio file")
}

func TestRemoteDefaultsAndAvailability(t *testing.T) {
	remote := NewRemote(RemoteConfig{})
	require.Equal(t, DefaultEndpoint, remote.endpoint)
	require.Equal(t, DefaultRemoteModel, remote.Model())
	require.False(t, remote.Available(context.Background()))
	require.True(t, NewRemote(RemoteConfig{APIKey: " k "}).Available(context.Background()))
}

func writeAudioFixture(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
