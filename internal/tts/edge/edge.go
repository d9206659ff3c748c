// Package edge implements the TTS Synthesizer using Microsoft Edge's online
// neural voices.
//
// Voice selection follows the request language and gender. Rate, pitch and
// volume are sent as SSML prosody; emotion and quality are ignored.
package edge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/tts"
)

// defaultVoices maps "<lang>" and "<lang>-<gender>" keys to Edge voice names.
var defaultVoices = map[string]string{
	"en":        "en-US-AriaNeural",
	"en-female": "en-US-AriaNeural",
	"en-male":   "en-US-GuyNeural",
	"ko":        "ko-KR-SunHiNeural",
	"ko-female": "ko-KR-SunHiNeural",
	"ko-male":   "ko-KR-InJoonNeural",
	"zh":        "zh-CN-XiaoxiaoNeural",
	"zh-female": "zh-CN-XiaoxiaoNeural",
	"zh-male":   "zh-CN-YunyangNeural",
	"ja":        "ja-JP-NanamiNeural",
	"ja-female": "ja-JP-NanamiNeural",
	"ja-male":   "ja-JP-KeitaNeural",
	"fr":        "fr-FR-DeniseNeural",
	"fr-male":   "fr-FR-HenriNeural",
	"de":        "de-DE-KatjaNeural",
	"de-male":   "de-DE-ConradNeural",
	"es":        "es-ES-ElviraNeural",
	"es-male":   "es-ES-AlvaroNeural",
}

// receiveTimeout is the edge-tts websocket receive timeout in seconds.
const receiveTimeout = 20

// prosody is the SSML voice and prosody settings for one request.
type prosody struct {
	Voice  string
	Rate   string // e.g. "-25%"
	Pitch  string // e.g. "+5Hz"
	Volume string // e.g. "+10%"
}

// Synthesizer implements tts.Synthesizer with edge-tts.
type Synthesizer struct {
	voices map[string]string
	stream func(text string, p prosody) ([]byte, error)
}

// New creates a new Edge synthesizer from config.
func New(cfg config.EdgeConfig) *Synthesizer {
	voices := make(map[string]string, len(defaultVoices)+len(cfg.Voices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range cfg.Voices {
		voices[k] = v
	}
	return &Synthesizer{voices: voices, stream: stream}
}

func stream(text string, p prosody) ([]byte, error) {
	c, err := edge_tts.NewCommunicate(text,
		edge_tts.SetVoice(p.Voice),
		edge_tts.SetRate(p.Rate),
		edge_tts.SetPitch(p.Pitch),
		edge_tts.SetVolume(p.Volume),
		edge_tts.SetReceiveTimeout(receiveTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating edge communicator: %w", err)
	}
	return c.Stream()
}

// rateFor maps a speaking rate to an SSML relative rate.
func rateFor(r message.Rate) string {
	switch r {
	case message.RateSlow:
		return "-25%"
	case message.RateFast:
		return "+25%"
	default:
		return "+0%"
	}
}

func prosodyFor(voice string, v message.VoiceParams) prosody {
	return prosody{
		Voice:  voice,
		Rate:   rateFor(v.Rate),
		Pitch:  fmt.Sprintf("%+dHz", v.Pitch),
		Volume: fmt.Sprintf("%+d%%", v.Volume),
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "edge" }

// Synthesize renders text with the voice selected for the request language.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := tts.VoiceFor(s.voices, opts.Language, opts.Voice.Gender)
	if voice == "" {
		return nil, fmt.Errorf("no edge voice for language %q", opts.Language)
	}
	p := prosodyFor(voice, opts.Voice)
	if opts.Voice.Emotion != "" || opts.Voice.Quality != 0 {
		slog.Debug("edge ignores emotion and quality", "voice", opts.Voice)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stream has no context; abandon it when ctx ends.
	type outcome struct {
		audio []byte
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		audio, err := s.stream(text, p)
		done <- outcome{audio, err}
	}()

	var audio []byte
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("edge synthesis: %w", out.err)
		}
		audio = out.audio
	}

	slog.Debug("edge synthesize", "voice", voice, "rate", p.Rate, "pitch", p.Pitch, "volume", p.Volume, "language", opts.Language, "bytes", len(audio))
	return &tts.SynthesizeResult{
		Audio:       audio,
		ContentType: tts.ContentTypeMP3,
		SampleRate:  24000,
		Channels:    1,
	}, nil
}

// Close is a no-op; a connection is opened per request.
func (s *Synthesizer) Close() error { return nil }
