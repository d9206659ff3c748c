// Package tts defines the interface for text-to-speech synthesis.
//
// shouldi speaks the model's reason back to the user in the request's
// language. Synthesis is best-effort: callers use Speak, which turns every
// backend failure into a non-fatal synthesis error so the textual result is
// never lost.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
)

// MIME types produced by the backends.
const (
	ContentTypeMP3 = "audio/mpeg"
	ContentTypeWAV = "audio/wav"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the locale tag (e.g. "en", "zh-CN") used to select the voice.
	Language string

	// Voice carries rate, gender, pitch and the other knobs. Backends ignore
	// what they cannot honor.
	Voice message.VoiceParams
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier.
	Name() string

	// Synthesize generates one complete audio clip from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the complete clip in the container named by ContentType.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/mpeg", "audio/wav").
	ContentType string

	// SampleRate is the audio sample rate in Hz when known (e.g., 22050).
	SampleRate int

	// Channels is the number of audio channels when known (typically 1).
	Channels int
}

// Speak synthesizes text and returns the clip with its format and duration.
// Every failure, including a nil synthesizer or blank text, is returned as a
// KindSynthesis error.
func Speak(ctx context.Context, s Synthesizer, text string, opts SynthesizeOpts) (*message.Audio, error) {
	if s == nil {
		return nil, apperrors.New(apperrors.KindSynthesis, "no synthesizer configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.New(apperrors.KindSynthesis, "empty text", nil)
	}

	start := time.Now()
	res, err := s.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, apperrors.New(apperrors.KindSynthesis, s.Name()+" synthesis failed", err)
	}
	if res == nil || len(res.Audio) == 0 {
		return nil, apperrors.New(apperrors.KindSynthesis, s.Name()+" returned no audio", nil)
	}

	seconds, err := AudioDuration(res)
	if err != nil {
		slog.Debug("audio duration unavailable", "backend", s.Name(), "error", err)
	}

	slog.Debug("synthesis complete",
		"backend", s.Name(),
		"language", opts.Language,
		"bytes", len(res.Audio),
		"content_type", res.ContentType,
		"duration", time.Since(start),
	)
	return &message.Audio{Data: res.Audio, Format: res.ContentType, Seconds: seconds}, nil
}

// AudioDuration returns the playback length of res in seconds.
func AudioDuration(res *SynthesizeResult) (float64, error) {
	switch res.ContentType {
	case ContentTypeMP3:
		d, err := mp3.NewDecoder(bytes.NewReader(res.Audio))
		if err != nil {
			return 0, fmt.Errorf("decoding mp3: %w", err)
		}
		if d.SampleRate() <= 0 || d.Length() <= 0 {
			return 0, fmt.Errorf("mp3 length unknown")
		}
		// go-mp3 always decodes to 16-bit stereo.
		return float64(d.Length()) / float64(4*d.SampleRate()), nil

	case ContentTypeWAV:
		const headerLen = 44
		if res.SampleRate <= 0 || res.Channels <= 0 || len(res.Audio) < headerLen {
			return 0, fmt.Errorf("wav format unknown")
		}
		return float64(len(res.Audio)-headerLen) / float64(2*res.SampleRate*res.Channels), nil

	default:
		return 0, fmt.Errorf("unsupported content type %q", res.ContentType)
	}
}

// PrimaryTag returns the lower-cased primary subtag of a locale ("zh-CN" -> "zh").
func PrimaryTag(language string) string {
	language = strings.TrimSpace(language)
	if i := strings.IndexAny(language, "-_"); i >= 0 {
		language = language[:i]
	}
	return strings.ToLower(language)
}

// VoiceFor picks a voice name from table. It tries "<tag>-<gender>",
// "<primary>-<gender>", "<tag>", "<primary>" and finally the English entries.
func VoiceFor(table map[string]string, language string, gender message.Gender) string {
	tag := strings.ToLower(strings.TrimSpace(language))
	primary := PrimaryTag(language)

	var keys []string
	for _, lang := range []string{tag, primary, "en"} {
		if lang == "" {
			continue
		}
		if gender != "" {
			keys = append(keys, lang+"-"+string(gender))
		}
		keys = append(keys, lang)
	}
	for _, k := range keys {
		if v, ok := table[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
