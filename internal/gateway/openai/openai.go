// Package openai implements the Gateway interface for OpenAI-compatible chat
// completion endpoints (OpenAI, vLLM, llama.cpp server, Ollama's /v1 API).
//
// Images are sent as data URLs in a multi-part user message. top_k and
// repeat_penalty have no equivalent in this API and are not sent.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nadzzz/shouldi/internal/config"
	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
)

// Envelope identifies replies produced by this gateway.
const Envelope = "openai"

// Gateway calls an OpenAI-compatible chat completion endpoint.
type Gateway struct {
	model  string
	client *goopenai.Client
}

// New creates a new OpenAI gateway from config.
func New(cfg config.ModelConfig) *Gateway {
	clientConfig := goopenai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAI.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Gateway{
		model:  cfg.Name,
		client: goopenai.NewClientWithConfig(clientConfig),
	}
}

// Name returns the backend identifier.
func (g *Gateway) Name() string { return "openai" }

// Call sends a JSON-mode chat completion and returns the response re-encoded as JSON.
func (g *Gateway) Call(ctx context.Context, prompt message.Prompt, params message.GenerationParams) (*message.ModelReply, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt.System.Content},
			userMessage(prompt.User),
		},
		Temperature: float32(params.Temperature),
		MaxTokens:   params.MaxTokens,
		TopP:        float32(params.TopP),
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, apperrors.Transport("openai chat request", err)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, apperrors.Transport("encoding chat response", err)
	}

	slog.Debug("openai chat complete", "model", g.model, "choices", len(resp.Choices), "duration", time.Since(start))
	return &message.ModelReply{Envelope: Envelope, Body: body}, nil
}

// Close is a no-op for the OpenAI gateway.
func (g *Gateway) Close() error { return nil }

func userMessage(m message.PromptMessage) goopenai.ChatCompletionMessage {
	if len(m.Images) == 0 {
		return goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: m.Content}
	}

	parts := []goopenai.ChatMessagePart{{Type: goopenai.ChatMessagePartTypeText, Text: m.Content}}
	for _, img := range m.Images {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: goopenai.ImageURLDetailAuto,
			},
		})
	}
	return goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, MultiContent: parts}
}

// dataURL wraps base64 image bytes in a data URL with a sniffed MIME type.
func dataURL(b64 string) string {
	mime := "image/jpeg"
	if raw, err := base64.StdEncoding.DecodeString(b64); err == nil {
		if sniffed := http.DetectContentType(raw); len(sniffed) > 6 && sniffed[:6] == "image/" {
			mime = sniffed
		}
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, b64)
}
