// Package ollama implements the Gateway interface against Ollama's native
// chat endpoint (POST /api/chat), which accepts base64 images per message
// and can constrain output to JSON.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/shouldi/internal/config"
	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
)

// Envelope identifies replies produced by this gateway.
const Envelope = "ollama"

// Gateway calls a self-hosted Ollama server.
type Gateway struct {
	host   string
	model  string
	client *http.Client
}

// New creates a new Ollama gateway from config.
func New(cfg config.ModelConfig) *Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Gateway{
		host:   strings.TrimRight(cfg.Host, "/"),
		model:  cfg.Name,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (g *Gateway) Name() string { return "ollama" }

type chatRequest struct {
	Model    string                  `json:"model"`
	Messages []message.PromptMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
	Format   string                  `json:"format"`
	Options  options                 `json:"options"`
}

type options struct {
	Temperature   float64 `json:"temperature"`
	NumPredict    int     `json:"num_predict"`
	TopP          float64 `json:"top_p,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
}

// Call posts the prompt to /api/chat and returns the raw response body.
func (g *Gateway) Call(ctx context.Context, prompt message.Prompt, params message.GenerationParams) (*message.ModelReply, error) {
	reqBody := chatRequest{
		Model:    g.model,
		Messages: prompt.Messages(),
		Stream:   false,
		Format:   "json",
		Options: options{
			Temperature:   params.Temperature,
			NumPredict:    params.MaxTokens,
			TopP:          params.TopP,
			TopK:          params.TopK,
			RepeatPenalty: params.RepeatPenalty,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Transport("marshalling chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/chat", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, apperrors.Transport("creating chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.Transport("ollama chat request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, apperrors.Transport(fmt.Sprintf("ollama chat failed (status %d)", resp.StatusCode), fmt.Errorf("%s", respBody))
	}

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport("reading chat response", err)
	}

	slog.Debug("ollama chat complete", "model", g.model, "bytes", len(respData), "duration", time.Since(start))
	return &message.ModelReply{Envelope: Envelope, Body: respData}, nil
}

// Ping checks that the Ollama server answers on /api/tags.
func (g *Gateway) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating ping request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping: status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op for the Ollama gateway.
func (g *Gateway) Close() error { return nil }
