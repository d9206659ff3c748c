// Package transcribe defines the interface for turning a spoken question
// into text.
//
// shouldi ships with two backends: a Whisper-compatible HTTP server
// (whisper.cpp, faster-whisper, whisper-asr-webservice) and the OpenAI
// audio transcription API.
package transcribe

import (
	"context"
	"strings"
)

// Opts controls transcription behavior.
type Opts struct {
	// Language is the locale tag (e.g. "en", "ko") that guides recognition.
	// Only the primary subtag is sent to the backend.
	Language string

	// Prompt provides context to improve recognition of domain-specific terms.
	Prompt string
}

// Result is the output of a transcription.
type Result struct {
	Text     string
	Language string // ISO-639-1 code when the backend reports one
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	// Name returns the backend identifier (e.g. "whisper", "openai").
	Name() string

	// Transcribe converts audio of the given MIME type to text.
	Transcribe(ctx context.Context, audio []byte, contentType string, opts Opts) (*Result, error)

	// Close releases any resources held by the transcriber.
	Close() error
}

// ExtFromContentType returns the file extension backends use to sniff the
// audio container.
func ExtFromContentType(ct string) string {
	switch {
	case strings.Contains(ct, "wav"):
		return ".wav"
	case strings.Contains(ct, "ogg"):
		return ".ogg"
	case strings.Contains(ct, "mp3"), strings.Contains(ct, "mpeg"):
		return ".mp3"
	case strings.Contains(ct, "flac"):
		return ".flac"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "m4a"), strings.Contains(ct, "mp4"):
		return ".m4a"
	default:
		return ".wav"
	}
}

// knownLanguages maps the full names some backends report to ISO-639-1 codes.
var knownLanguages = map[string]string{
	"english":    "en",
	"french":     "fr",
	"spanish":    "es",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"hindi":      "hi",
	"turkish":    "tr",
}

// NormalizeLanguage converts a full language name ("english") to its
// ISO-639-1 code. Codes pass through lowercased.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := knownLanguages[lang]; ok {
		return code
	}
	return lang
}

// PrimaryTag returns the primary subtag of a locale tag ("zh-CN" -> "zh").
func PrimaryTag(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
