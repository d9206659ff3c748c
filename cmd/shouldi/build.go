package main

import (
	"fmt"
	"log/slog"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/gateway"
	"github.com/nadzzz/shouldi/internal/gateway/ollama"
	"github.com/nadzzz/shouldi/internal/gateway/openai"
	"github.com/nadzzz/shouldi/internal/pipeline"
	"github.com/nadzzz/shouldi/internal/search"
	"github.com/nadzzz/shouldi/internal/search/duckduckgo"
	"github.com/nadzzz/shouldi/internal/transcribe"
	openaistt "github.com/nadzzz/shouldi/internal/transcribe/openai"
	"github.com/nadzzz/shouldi/internal/transcribe/whisper"
	"github.com/nadzzz/shouldi/internal/tts"
	"github.com/nadzzz/shouldi/internal/tts/edge"
	"github.com/nadzzz/shouldi/internal/tts/gtts"
	"github.com/nadzzz/shouldi/internal/tts/piper"
)

// components holds everything built from config that needs closing.
type components struct {
	analyzer    *pipeline.Analyzer
	gateway     gateway.Gateway
	synthesizer tts.Synthesizer
	transcriber transcribe.Transcriber
}

func (c *components) Close() {
	if err := c.gateway.Close(); err != nil {
		slog.Error("gateway close error", "error", err)
	}
	if c.synthesizer != nil {
		if err := c.synthesizer.Close(); err != nil {
			slog.Error("synthesizer close error", "error", err)
		}
	}
	if c.transcriber != nil {
		if err := c.transcriber.Close(); err != nil {
			slog.Error("transcriber close error", "error", err)
		}
	}
}

func build(cfg *config.Config) (*components, error) {
	gw, err := newGateway(cfg.Model)
	if err != nil {
		return nil, err
	}
	synth, err := newSynthesizer(cfg.TTS)
	if err != nil {
		return nil, err
	}

	stt, err := newTranscriber(cfg.STT)
	if err != nil {
		return nil, err
	}

	var augmenter *search.Augmenter
	if cfg.Search.Enabled {
		augmenter = search.NewAugmenter(duckduckgo.New(cfg.Search))
		slog.Info("search augmentation enabled", "backend", cfg.Search.Backend, "max_results", cfg.Search.MaxResults)
	}

	var opts []pipeline.Option
	if stt != nil {
		opts = append(opts, pipeline.WithTranscriber(stt))
	}

	return &components{
		analyzer:    pipeline.New(gw, augmenter, synth, pipeline.SettingsFrom(cfg), opts...),
		gateway:     gw,
		synthesizer: synth,
		transcriber: stt,
	}, nil
}

func newGateway(cfg config.ModelConfig) (gateway.Gateway, error) {
	switch cfg.Backend {
	case "ollama":
		slog.Info("using ollama gateway", "host", cfg.Host, "model", cfg.Name)
		return ollama.New(cfg), nil
	case "openai":
		slog.Info("using openai gateway", "base_url", cfg.OpenAI.BaseURL, "model", cfg.Name)
		return openai.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

// newSynthesizer returns nil when speech is disabled.
func newSynthesizer(cfg config.TTSConfig) (tts.Synthesizer, error) {
	if !cfg.Enabled {
		slog.Info("speech synthesis disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case "gtts":
		slog.Info("using gtts synthesizer", "tld", cfg.GTTS.TLD)
		return gtts.New(cfg.GTTS), nil
	case "edge":
		slog.Info("using edge synthesizer")
		return edge.New(cfg.Edge), nil
	case "piper":
		slog.Info("using piper synthesizer", "endpoint", cfg.Piper.Endpoint, "language_endpoints", len(cfg.Piper.Endpoints))
		return piper.New(cfg.Piper), nil
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

// newTranscriber returns nil when voice input is disabled.
func newTranscriber(cfg config.STTConfig) (transcribe.Transcriber, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "whisper":
		slog.Info("using whisper transcriber", "endpoint", cfg.Endpoint, "type", cfg.Type)
		return whisper.New(cfg), nil
	case "openai":
		slog.Info("using openai transcriber", "base_url", cfg.OpenAI.BaseURL, "model", cfg.Model)
		return openaistt.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown stt backend %q", cfg.Backend)
	}
}
