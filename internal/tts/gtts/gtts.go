// Package gtts implements the TTS Synthesizer using the Google Translate
// speech endpoint, the same service the gTTS tool talks to.
//
// The endpoint accepts at most ~200 characters per call, so longer text is
// split on word boundaries and the returned MP3 segments are concatenated.
// Only rate=slow is honored; the accent comes from the configured TLD.
package gtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/tts"
)

const (
	defaultEndpoint = "https://translate.google.com/translate_tts"
	maxChunkRunes   = 200
	slowSpeed       = "0.24"
)

// Synthesizer implements tts.Synthesizer against translate_tts.
type Synthesizer struct {
	endpoint string
	client   *http.Client
}

// New creates a new gTTS synthesizer from config.
func New(cfg config.GTTSConfig) *Synthesizer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if cfg.TLD != "" && cfg.TLD != "com" {
		endpoint = strings.Replace(endpoint, "translate.google.com", "translate.google."+cfg.TLD, 1)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Synthesizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gtts" }

// Synthesize fetches MP3 audio for text, one request per chunk.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	chunks := splitText(text, maxChunkRunes)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	if opts.Voice.Gender != "" || opts.Voice.Pitch != 0 || opts.Voice.Volume != 0 {
		slog.Debug("gtts ignores gender, pitch and volume", "voice", opts.Voice)
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		data, err := s.fetch(ctx, chunk, lang, opts.Voice.Rate, i, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}

	slog.Debug("gtts synthesize", "language", lang, "chunks", len(chunks), "bytes", audio.Len())
	return &tts.SynthesizeResult{
		Audio:       audio.Bytes(),
		ContentType: tts.ContentTypeMP3,
		SampleRate:  24000,
		Channels:    1,
	}, nil
}

func (s *Synthesizer) fetch(ctx context.Context, text, lang string, rate message.Rate, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", text)
	q.Set("total", fmt.Sprint(total))
	q.Set("idx", fmt.Sprint(idx))
	q.Set("textlen", fmt.Sprint(utf8.RuneCountInString(text)))
	if rate == message.RateSlow {
		q.Set("ttsspeed", slowSpeed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating gtts request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; shouldi)")
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gtts failed (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gtts response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("gtts returned no audio for language %q", lang)
	}
	return data, nil
}

// Close is a no-op for gTTS.
func (s *Synthesizer) Close() error { return nil }

// splitText breaks text into chunks of at most limit runes, preferring
// whitespace boundaries. Words longer than limit are split hard.
func splitText(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > limit {
			flush()
			r := []rune(word)
			chunks = append(chunks, string(r[:limit]))
			word = string(r[limit:])
		}
		wl := utf8.RuneCountInString(word)
		if n > 0 && n+1+wl > limit {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wl
	}
	flush()
	return chunks
}
