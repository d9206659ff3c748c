package gtts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/tts"
)

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "zh-CN", q.Get("tl"))
		assert.Equal(t, "tw-ob", q.Get("client"))
		assert.Equal(t, slowSpeed, q.Get("ttsspeed"))
		queries = append(queries, q.Get("q"))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-" + q.Get("idx") + ";"))
	}))
	defer srv.Close()

	s := New(config.GTTSConfig{Endpoint: srv.URL})
	text := strings.Repeat("word ", 60)
	res, err := s.Synthesize(context.Background(), text, tts.SynthesizeOpts{
		Language: "zh-CN",
		Voice:    message.VoiceParams{Rate: message.RateSlow},
	})
	require.NoError(t, err)

	assert.Equal(t, tts.ContentTypeMP3, res.ContentType)
	assert.Equal(t, "mp3-0;mp3-1;", string(res.Audio))
	require.Len(t, queries, 2)
	for _, q := range queries {
		assert.LessOrEqual(t, len(q), maxChunkRunes)
	}
}

func TestSynthesizeDefaultsLanguageAndNormalRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		assert.Empty(t, r.URL.Query().Get("ttsspeed"))
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	_, err := New(config.GTTSConfig{Endpoint: srv.URL}).Synthesize(context.Background(), "hello", tts.SynthesizeOpts{})
	require.NoError(t, err)
}

func TestSynthesizeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported language", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(config.GTTSConfig{Endpoint: srv.URL})
	_, err := s.Synthesize(context.Background(), "hello", tts.SynthesizeOpts{Language: "xx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")

	_, err = s.Synthesize(context.Background(), "  ", tts.SynthesizeOpts{})
	assert.Error(t, err)
}

func TestNewAppliesTLD(t *testing.T) {
	s := New(config.GTTSConfig{TLD: "co.uk"})
	assert.Equal(t, "https://translate.google.co.uk/translate_tts", s.endpoint)
}

func TestSplitText(t *testing.T) {
	assert.Nil(t, splitText("   ", 10))
	assert.Equal(t, []string{"one two", "three"}, splitText("one two three", 8))
	assert.Equal(t, []string{"abcde", "fgh x"}, splitText("abcdefgh x", 5))
}
