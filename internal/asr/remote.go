package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

// RemoteConfig configures the hosted Whisper API backend.
type RemoteConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Client   *http.Client
}

// Remote uploads recordings to an OpenAI-compatible transcription endpoint.
type Remote struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewRemote(cfg RemoteConfig) *Remote {
	r := &Remote{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    strings.TrimSpace(cfg.Model),
		client:   cfg.Client,
	}
	if r.endpoint == "" {
		r.endpoint = DefaultEndpoint
	}
	if r.model == "" {
		r.model = DefaultRemoteModel
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	return r
}

func (r *Remote) Name() string { return "openai-api" }

func (r *Remote) Kind() Kind { return KindRemote }

// Available reports whether a credential is configured.
func (r *Remote) Available(context.Context) bool {
	return r.apiKey != ""
}

// Model returns the model identifier sent with each request.
func (r *Remote) Model() string { return r.model }

func (r *Remote) Endpoint() string { return r.endpoint }

// Transcribe posts audioPath as multipart form data and returns the "text"
// field of the JSON response.
func (r *Remote) Transcribe(ctx context.Context, audioPath string, language string) (string, error) {
	body, contentType, err := r.encodeForm(audioPath, language)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transcription request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp.StatusCode, data)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(decoded.Text), nil
}

func (r *Remote) encodeForm(audioPath string, language string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(audioPath)))
	header.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio data: %w", err)
	}

	fields := [][2]string{{"model", r.model}, {"response_format", "json"}}
	if !autoLanguage(language) {
		fields = append(fields, [2]string{"language", language})
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", field[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// APIError is a non-2xx response from the transcription endpoint.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error: %s (%s, %s)", e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: strings.TrimSpace(string(body))}

	var envelope struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return apiErr
	}
	apiErr.Message = envelope.Error.Message
	apiErr.Type = envelope.Error.Type
	if envelope.Error.Code != nil {
		apiErr.Code = fmt.Sprint(envelope.Error.Code)
	}
	return apiErr
}
