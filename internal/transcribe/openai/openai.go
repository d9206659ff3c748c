// Package openai implements the Transcriber interface with the OpenAI audio
// transcription API (whisper-1, gpt-4o-transcribe) or any compatible server.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/transcribe"
)

// Transcriber calls the OpenAI transcription endpoint.
type Transcriber struct {
	model  string
	client *goopenai.Client
}

// New creates a new OpenAI transcriber from config.
func New(cfg config.STTConfig) *Transcriber {
	clientConfig := goopenai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Transcriber{
		model:  model,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return "openai" }

// Transcribe uploads the audio and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, contentType string, opts transcribe.Opts) (*transcribe.Result, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio for transcription")
	}

	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: "audio" + transcribe.ExtFromContentType(contentType),
		Reader:   bytes.NewReader(audio),
		Prompt:   opts.Prompt,
		Language: transcribe.PrimaryTag(opts.Language),
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	// OpenAI reports full language names ("english").
	lang := transcribe.NormalizeLanguage(resp.Language)
	slog.Debug("openai transcription complete", "model", t.model, "text_length", len(resp.Text), "language", lang)
	return &transcribe.Result{Text: resp.Text, Language: lang}, nil
}

// Close is a no-op; requests are stateless.
func (t *Transcriber) Close() error { return nil }
