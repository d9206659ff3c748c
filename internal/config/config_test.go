package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/message"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shouldi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "language: en\n"))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Model.Backend)
	assert.Equal(t, "http://localhost:11434", cfg.Model.Host)
	assert.Equal(t, "llama3.2-vision", cfg.Model.Name)
	assert.Equal(t, 120*time.Second, cfg.Model.Timeout)
	assert.Equal(t, message.GenerationParams{
		Temperature:   0.7,
		MaxTokens:     256,
		TopP:          0.9,
		TopK:          50,
		RepeatPenalty: 1.1,
	}, cfg.Generation)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, 2, cfg.Search.ImageMaxResults)
	assert.Equal(t, "gtts", cfg.TTS.Backend)
	assert.Equal(t, message.RateNormal, cfg.TTS.Voice.Rate)
	assert.Equal(t, message.GenderFemale, cfg.TTS.Voice.Gender)
	assert.False(t, cfg.STT.Enabled)
	assert.Equal(t, "whisper", cfg.STT.Backend)
	assert.Equal(t, "asr", cfg.STT.Type)
	assert.Equal(t, 60*time.Second, cfg.STT.Timeout)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
model:
  name: llava:13b
generation:
  temperature: 0.3
tts:
  backend: piper
  voice:
    rate: slow
  piper:
    voices:
      ko: ko_KR-kss-x_low
`)
	t.Setenv("SHOULDI_MODEL_HOST", "http://gpu-box:11434")
	t.Setenv("MY_KEY", "sk-test")
	t.Setenv("SHOULDI_MODEL_OPENAI_API_KEY", "${MY_KEY}")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llava:13b", cfg.Model.Name)
	assert.Equal(t, "http://gpu-box:11434", cfg.Model.Host)
	assert.Equal(t, "sk-test", cfg.Model.OpenAI.APIKey)
	assert.InDelta(t, 0.3, cfg.Generation.Temperature, 1e-9)
	assert.Equal(t, 256, cfg.Generation.MaxTokens)
	assert.Equal(t, "piper", cfg.TTS.Backend)
	assert.Equal(t, message.RateSlow, cfg.TTS.Voice.Rate)
	assert.Equal(t, "ko_KR-kss-x_low", cfg.TTS.Piper.Voices["ko"])
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "temperature", body: "generation:\n  temperature: 9\n"},
		{name: "top_p", body: "generation:\n  top_p: 1.5\n"},
		{name: "max_tokens", body: "generation:\n  max_tokens: 0\n"},
		{name: "model backend", body: "model:\n  backend: bard\n"},
		{name: "tts backend", body: "tts:\n  backend: sapi\n"},
		{name: "voice rate", body: "tts:\n  voice:\n    rate: warp\n"},
		{name: "voice gender", body: "tts:\n  voice:\n    gender: robot\n"},
		{name: "stt backend", body: "stt:\n  enabled: true\n  backend: vosk\n"},
		{name: "stt type", body: "stt:\n  enabled: true\n  type: grpc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("SHOULDI_TEST_SECRET", "s3cret")
	assert.Equal(t, "s3cret", resolveEnvRef("${SHOULDI_TEST_SECRET}"))
	assert.Equal(t, "literal", resolveEnvRef("literal"))
	assert.Equal(t, "", resolveEnvRef("${SHOULDI_TEST_UNSET}"))
}
