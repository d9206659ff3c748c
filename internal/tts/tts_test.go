package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
)

type fakeSynth struct {
	res   *SynthesizeResult
	err   error
	calls int
	text  string
	opts  SynthesizeOpts
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(_ context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error) {
	f.calls++
	f.text = text
	f.opts = opts
	return f.res, f.err
}

func (f *fakeSynth) Close() error { return nil }

func TestSpeakReturnsAudio(t *testing.T) {
	wav := make([]byte, 44+22050*2)
	s := &fakeSynth{res: &SynthesizeResult{Audio: wav, ContentType: ContentTypeWAV, SampleRate: 22050, Channels: 1}}

	opts := SynthesizeOpts{Language: "en", Voice: message.VoiceParams{Rate: message.RateSlow}}
	audio, err := Speak(context.Background(), s, "Go for it.", opts)
	require.NoError(t, err)

	assert.Equal(t, wav, audio.Data)
	assert.Equal(t, ContentTypeWAV, audio.Format)
	assert.InDelta(t, 1.0, audio.Seconds, 1e-9)
	assert.Equal(t, "Go for it.", s.text)
	assert.Equal(t, opts, s.opts)
}

func TestSpeakFailuresAreSynthesisKind(t *testing.T) {
	tests := []struct {
		name  string
		synth Synthesizer
		text  string
	}{
		{name: "nil synthesizer", synth: nil, text: "hi"},
		{name: "blank text", synth: &fakeSynth{}, text: "   "},
		{name: "backend error", synth: &fakeSynth{err: errors.New("boom")}, text: "hi"},
		{name: "empty audio", synth: &fakeSynth{res: &SynthesizeResult{ContentType: ContentTypeMP3}}, text: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio, err := Speak(context.Background(), tt.synth, tt.text, SynthesizeOpts{})
			assert.Nil(t, audio)
			assert.Equal(t, apperrors.KindSynthesis, apperrors.KindOf(err))
		})
	}
}

func TestSpeakSkipsBackendForBlankText(t *testing.T) {
	s := &fakeSynth{}
	_, _ = Speak(context.Background(), s, "", SynthesizeOpts{})
	assert.Zero(t, s.calls)
}

func TestAudioDurationUnknownFormats(t *testing.T) {
	_, err := AudioDuration(&SynthesizeResult{Audio: []byte("x"), ContentType: "audio/ogg"})
	assert.Error(t, err)

	_, err = AudioDuration(&SynthesizeResult{Audio: make([]byte, 100), ContentType: ContentTypeWAV})
	assert.Error(t, err)

	_, err = AudioDuration(&SynthesizeResult{Audio: []byte("not an mp3"), ContentType: ContentTypeMP3})
	assert.Error(t, err)
}

func TestPrimaryTag(t *testing.T) {
	assert.Equal(t, "zh", PrimaryTag("zh-CN"))
	assert.Equal(t, "pt", PrimaryTag("pt_BR"))
	assert.Equal(t, "en", PrimaryTag(" EN "))
	assert.Equal(t, "", PrimaryTag(""))
}

func TestVoiceFor(t *testing.T) {
	table := map[string]string{
		"en":         "en-female-default",
		"en-male":    "en-male",
		"zh":         "zh-any",
		"zh-cn-male": "zh-cn-male",
	}

	assert.Equal(t, "zh-cn-male", VoiceFor(table, "zh-CN", message.GenderMale))
	assert.Equal(t, "zh-any", VoiceFor(table, "zh-TW", message.GenderMale))
	assert.Equal(t, "en-male", VoiceFor(table, "en-GB", message.GenderMale))
	assert.Equal(t, "en-female-default", VoiceFor(table, "en", message.GenderFemale))
	assert.Equal(t, "en-male", VoiceFor(table, "xx", message.GenderMale))
	assert.Equal(t, "", VoiceFor(map[string]string{}, "en", ""))
}
