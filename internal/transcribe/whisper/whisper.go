// Package whisper implements the Transcriber interface for self-hosted
// Whisper servers.
//
// Two flavors are supported:
//   - "openai": OpenAI-compatible API (whisper.cpp server, faster-whisper)
//   - "asr":    whisper-asr-webservice (POST /asr with query params)
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/transcribe"
)

// Transcriber calls a Whisper-compatible HTTP endpoint.
type Transcriber struct {
	endpoint  string
	flavor    string
	model     string
	vadFilter bool
	client    *http.Client
}

// New creates a new Whisper transcriber from config.
func New(cfg config.STTConfig) *Transcriber {
	flavor := cfg.Type
	if flavor == "" {
		flavor = "openai"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Transcriber{
		endpoint:  cfg.Endpoint,
		flavor:    flavor,
		model:     cfg.Model,
		vadFilter: cfg.VADFilter,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "whisper" }

// Transcribe sends audio to the Whisper endpoint.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts transcribe.Opts) (*transcribe.Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio for transcription")
	}
	if t.flavor == "asr" {
		return t.transcribeASR(ctx, audio, contentType, opts)
	}
	return t.transcribeOpenAI(ctx, audio, contentType, opts)
}

// transcribeASR handles the whisper-asr-webservice format.
// API: POST /asr?task=transcribe&language=en&output=json&vad_filter=true
// Body: multipart/form-data with field "audio_file"
func (t *Transcriber) transcribeASR(ctx context.Context, audio []byte, contentType string, opts transcribe.Opts) (*transcribe.Result, error) {
	body, formType, err := audioForm("audio_file", audio, contentType, nil)
	if err != nil {
		return nil, err
	}

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang := transcribe.PrimaryTag(opts.Language); lang != "" {
		q.Set("language", lang)
	}
	if opts.Prompt != "" {
		q.Set("initial_prompt", opts.Prompt)
	}
	if t.vadFilter {
		q.Set("vad_filter", "true")
	}

	return t.post(ctx, t.endpoint+"?"+q.Encode(), body, formType)
}

// transcribeOpenAI handles OpenAI-compatible Whisper endpoints.
func (t *Transcriber) transcribeOpenAI(ctx context.Context, audio []byte, contentType string, opts transcribe.Opts) (*transcribe.Result, error) {
	fields := map[string]string{"response_format": "verbose_json"}
	if t.model != "" {
		fields["model"] = t.model
	}
	if lang := transcribe.PrimaryTag(opts.Language); lang != "" {
		fields["language"] = lang
	}
	if opts.Prompt != "" {
		fields["prompt"] = opts.Prompt
	}

	body, formType, err := audioForm("file", audio, contentType, fields)
	if err != nil {
		return nil, err
	}
	return t.post(ctx, t.endpoint, body, formType)
}

func (t *Transcriber) post(ctx context.Context, reqURL string, body *bytes.Buffer, formType string) (*transcribe.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", formType)

	slog.Debug("whisper request", "url", reqURL, "flavor", t.flavor)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("whisper transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	// Both flavors return {"text": "...", "language": "..."} for JSON output.
	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding transcription: %w", err)
	}

	lang := transcribe.NormalizeLanguage(result.Language)
	slog.Debug("whisper transcription complete", "text_length", len(result.Text), "language", lang)
	return &transcribe.Result{Text: result.Text, Language: lang}, nil
}

// audioForm builds a multipart body holding the audio file and extra fields.
func audioForm(fileField string, audio []byte, contentType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(fileField, "audio"+transcribe.ExtFromContentType(contentType))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("writing audio: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

// Close is a no-op; requests are stateless.
func (t *Transcriber) Close() error { return nil }
