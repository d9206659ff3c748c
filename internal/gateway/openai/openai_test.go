package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/config"
	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/prompt"
)

const completion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"probability\": 82, \"reason\": \"Positive earnings trend.\"}"}, "finish_reason": "stop"}]
}`

func TestCallSendsJSONModeAndImage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion))
	}))
	defer srv.Close()

	png := []byte("\x89PNG\r\n\x1a\n0000")
	g := New(config.ModelConfig{Name: "gpt-4o", OpenAI: config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}})
	reply, err := g.Call(context.Background(), prompt.Build("Is this ripe?", "", png), message.GenerationParams{Temperature: 0.5, MaxTokens: 128, TopP: 0.9})
	require.NoError(t, err)

	assert.Equal(t, Envelope, reply.Envelope)
	assert.Contains(t, string(reply.Body), `"choices"`)
	assert.Contains(t, string(reply.Body), `\"probability\": 82`)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	imageURL := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(png), imageURL)
}

func TestCallAPIErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g := New(config.ModelConfig{Name: "gpt-4o", OpenAI: config.OpenAIConfig{APIKey: "bad", BaseURL: srv.URL}})
	_, err := g.Call(context.Background(), prompt.Build("q", "", nil), message.GenerationParams{Temperature: 0.5, MaxTokens: 10})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestDataURLFallsBackToJPEG(t *testing.T) {
	assert.True(t, strings.HasPrefix(dataURL("not base64!"), "data:image/jpeg;base64,"))
}
