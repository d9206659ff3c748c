package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/config"
	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/prompt"
)

var params = message.GenerationParams{Temperature: 0.7, MaxTokens: 256, TopP: 0.9, TopK: 50, RepeatPenalty: 1.1}

func TestCallSendsContract(t *testing.T) {
	const reply = `{"model":"llama3.2-vision","message":{"role":"assistant","content":"{\"probability\": 75, \"reason\": \"ok\"}"},"done":true}`

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(reply))
	}))
	defer srv.Close()

	g := New(config.ModelConfig{Host: srv.URL + "/", Name: "llama3.2-vision"})
	out, err := g.Call(context.Background(), prompt.Build("Should I?", "", []byte("img")), params)
	require.NoError(t, err)

	assert.Equal(t, Envelope, out.Envelope)
	assert.JSONEq(t, reply, string(out.Body))

	assert.Equal(t, "llama3.2-vision", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "json", got["format"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, []any{"aW1n"}, user["images"])

	opts := got["options"].(map[string]any)
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, float64(256), opts["num_predict"])
	assert.Equal(t, 0.9, opts["top_p"])
	assert.Equal(t, float64(50), opts["top_k"])
	assert.Equal(t, 1.1, opts["repeat_penalty"])
}

func TestCallNon2xxIsTransportError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(config.ModelConfig{Host: srv.URL, Name: "missing"}).Call(context.Background(), prompt.Build("q", "", nil), params)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, 1, calls)
}

func TestCallTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	g := New(config.ModelConfig{Host: srv.URL, Name: "m", Timeout: 50 * time.Millisecond})
	_, err := g.Call(context.Background(), prompt.Build("q", "", nil), params)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestCallConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(config.ModelConfig{Host: url, Name: "m"}).Call(context.Background(), prompt.Build("q", "", nil), params)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, New(config.ModelConfig{Host: srv.URL}).Ping(context.Background()))
}
