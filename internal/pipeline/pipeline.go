// Package pipeline implements the analysis engine.
//
// The analyzer receives requests from the presentation shells and runs them
// strictly in sequence: transcription (voice questions only) → search
// augmentation → prompt → model gateway → validation → speech. Every request gets exactly one result back; fatal
// failures become the sentinel result and never surface as Go errors.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/shouldi/internal/config"
	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/gateway"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/prompt"
	"github.com/nadzzz/shouldi/internal/search"
	"github.com/nadzzz/shouldi/internal/transcribe"
	"github.com/nadzzz/shouldi/internal/tts"
	"github.com/nadzzz/shouldi/internal/validate"
)

// Settings is the process-wide configuration read by every request. It is
// never modified by the pipeline; per-request fields override its non-zero values.
type Settings struct {
	Language   string
	Generation message.GenerationParams
	Voice      message.VoiceParams

	// SearchResults is the result budget for text questions.
	SearchResults int

	// ImageSearchResults is the result budget for image requests that carry a question.
	ImageSearchResults int
}

// SettingsFrom extracts pipeline settings from the loaded configuration.
func SettingsFrom(cfg *config.Config) Settings {
	s := Settings{
		Language:   cfg.Language,
		Generation: cfg.Generation,
		Voice:      cfg.TTS.Voice,
	}
	if cfg.Search.Enabled {
		s.SearchResults = cfg.Search.MaxResults
		s.ImageSearchResults = cfg.Search.ImageMaxResults
	}
	return s
}

// Analyzer is the central pipeline engine.
type Analyzer struct {
	gateway     gateway.Gateway
	augmenter   *search.Augmenter      // nil if search is disabled
	transcriber transcribe.Transcriber // nil if voice input is disabled
	validator   *validate.Validator
	settings    Settings
}

// Option configures optional Analyzer stages.
type Option func(*Analyzer)

// WithTranscriber enables voice questions.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(a *Analyzer) { a.transcriber = t }
}

// New creates an Analyzer. augmenter and synthesizer may be nil to disable
// search augmentation and speech respectively.
func New(gw gateway.Gateway, augmenter *search.Augmenter, synthesizer tts.Synthesizer, settings Settings, opts ...Option) *Analyzer {
	if settings.Language == "" {
		settings.Language = "en"
	}
	a := &Analyzer{
		gateway:   gw,
		augmenter: augmenter,
		validator: validate.New(synthesizer),
		settings:  settings,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Settings returns the analyzer's defaults.
func (a *Analyzer) Settings() Settings {
	return a.settings
}

// AnalyzeText answers a text question.
func (a *Analyzer) AnalyzeText(ctx context.Context, question, language string) message.Result {
	return a.Analyze(ctx, &message.Request{Question: question, Language: language})
}

// AnalyzeVoice answers a spoken question, optionally about an image.
func (a *Analyzer) AnalyzeVoice(ctx context.Context, audio []byte, contentType string, image []byte, language string) message.Result {
	return a.Analyze(ctx, &message.Request{Audio: audio, AudioFormat: contentType, Image: image, Language: language})
}

// AnalyzeImage answers a question about an image. question may be empty.
func (a *Analyzer) AnalyzeImage(ctx context.Context, image []byte, question, language string) message.Result {
	return a.Analyze(ctx, &message.Request{Question: question, Image: image, Language: language})
}

// searchBudget returns how many search results to request for question.
// Image requests without a question skip search.
func (a *Analyzer) searchBudget(question string, req *message.Request) int {
	if a.augmenter == nil || req.SkipSearch || strings.TrimSpace(question) == "" {
		return 0
	}
	if req.HasImage() {
		return a.settings.ImageSearchResults
	}
	return a.settings.SearchResults
}

// transcribe turns the request's recording into text. Without an explicit
// request language the backend detects it.
func (a *Analyzer) transcribe(ctx context.Context, req *message.Request) (*transcribe.Result, error) {
	if a.transcriber == nil {
		return nil, apperrors.Transcription("voice input is not enabled", nil)
	}
	res, err := a.transcriber.Transcribe(ctx, req.Audio, req.AudioFormat, transcribe.Opts{Language: req.Language})
	if err != nil {
		return nil, apperrors.Transcription(a.transcriber.Name(), err)
	}
	return res, nil
}

// Analyze processes a single request through the full pipeline.
// This method is passed as the transport.Handler to each transport.
func (a *Analyzer) Analyze(ctx context.Context, req *message.Request) message.Result {
	start := time.Now()

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := slog.With("request_id", id)

	var transcript string
	finish := func(res message.Result) message.Result {
		res.RequestID = id
		res.Transcript = transcript
		logger.Info("analysis complete",
			"duration", time.Since(start),
			"ok", res.OK(),
			"failure", res.Failure,
			"audio_bytes", len(res.Audio),
			"warnings", len(res.Warnings),
		)
		return res
	}

	if err := req.Validate(); err != nil {
		logger.Warn("rejecting request", "error", err)
		return finish(message.Failed(apperrors.KindInvalidRequest, nil))
	}

	generation := a.settings.Generation.Merge(req.Generation)
	if err := generation.Validate(); err != nil {
		logger.Warn("rejecting request", "error", apperrors.Invalid("generation override", err))
		return finish(message.Failed(apperrors.KindInvalidRequest, nil))
	}
	voice := a.settings.Voice.Merge(req.Voice)
	if err := voice.Validate(); err != nil {
		logger.Warn("rejecting request", "error", apperrors.Invalid("voice override", err))
		return finish(message.Failed(apperrors.KindInvalidRequest, nil))
	}

	language := req.Language
	if language == "" {
		language = a.settings.Language
	}

	// Step 0: Transcribe a spoken question.
	question := req.Question
	if !req.HasQuestion() && req.HasAudio() {
		res, err := a.transcribe(ctx, req)
		if err != nil {
			logger.Error("transcription failed", "error", err)
			return finish(message.Failed(apperrors.KindTranscription, nil))
		}
		transcript = strings.TrimSpace(res.Text)
		if transcript == "" && !req.HasImage() {
			logger.Error("transcription failed", "error", apperrors.Transcription("empty transcript", nil))
			return finish(message.Failed(apperrors.KindTranscription, nil))
		}
		question = transcript
		if req.Language == "" && res.Language != "" {
			language = res.Language
		}
		logger.Info("voice question transcribed", "text_length", len(transcript), "language", res.Language)
	}

	logger.Info("analysis started", "has_image", req.HasImage(), "has_audio", req.HasAudio(), "language", language)

	// Step 1: Search augmentation (best-effort).
	var (
		warnings      []string
		searchContext string
	)
	if budget := a.searchBudget(question, req); budget > 0 {
		text, err := a.augmenter.Context(ctx, question, budget)
		if err != nil {
			logger.Warn("search augmentation degraded", "error", err)
			warnings = append(warnings, err.Error())
		}
		searchContext = text
		logger.Debug("search complete", "context_length", len(searchContext))
	}

	// Step 2: Build the prompt.
	p := prompt.Build(question, searchContext, req.Image)

	// Step 3: Call the model once.
	reply, err := a.gateway.Call(ctx, p, generation)
	if err != nil {
		kind := apperrors.KindOf(err)
		if kind == "" {
			kind = apperrors.KindTransport
		}
		logger.Error("model call failed", "backend", a.gateway.Name(), "error", err)
		return finish(message.Failed(kind, warnings))
	}
	logger.Debug("model reply received", "envelope", reply.Envelope, "bytes", len(reply.Body))

	// Step 4: Validate and speak.
	res := a.validator.Validate(ctx, reply, tts.SynthesizeOpts{Language: language, Voice: voice})
	if res.Failure != "" {
		logger.Error("model reply rejected", "failure", res.Failure)
	}
	for _, w := range res.Warnings {
		logger.Warn("speech synthesis degraded", "error", w)
	}
	res.Warnings = append(warnings, res.Warnings...)

	return finish(res)
}
