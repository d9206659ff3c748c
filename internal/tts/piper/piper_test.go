package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/tts"
)

// fakeWyoming accepts one connection, records the synthesize event and
// replies with the given events.
func fakeWyoming(t *testing.T, reply func(conn net.Conn)) (string, <-chan wyomingEvent) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan wyomingEvent, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		evt, _, err := readEvent(conn)
		if err != nil {
			return
		}
		got <- *evt
		reply(conn)
	}()
	return ln.Addr().String(), got
}

func TestSynthesizeWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	addr, got := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "audio-start", Data: map[string]any{"rate": 16000, "width": 2, "channels": 1}}, nil)
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm[:4])
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, pcm[4:])
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{Endpoint: "tcp://" + addr})
	res, err := s.Synthesize(context.Background(), "Go for it.", tts.SynthesizeOpts{
		Language: "en-US",
		Voice:    message.VoiceParams{Gender: message.GenderMale},
	})
	require.NoError(t, err)

	evt := <-got
	assert.Equal(t, "synthesize", evt.Type)
	assert.Equal(t, "Go for it.", evt.Data["text"])
	assert.Equal(t, map[string]any{"name": "en_US-ryan-medium"}, evt.Data["voice"])

	assert.Equal(t, tts.ContentTypeWAV, res.ContentType)
	assert.Equal(t, 16000, res.SampleRate)
	assert.Equal(t, 1, res.Channels)
	require.Len(t, res.Audio, 44+len(pcm))
	assert.Equal(t, "RIFF", string(res.Audio[:4]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	assert.True(t, bytes.Equal(pcm, res.Audio[44:]))
}

func TestSynthesizeServerError(t *testing.T) {
	addr, _ := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	_, err := New(config.PiperConfig{Endpoint: addr}).Synthesize(context.Background(), "hi", tts.SynthesizeOpts{Language: "en"})
	assert.ErrorContains(t, err, "voice not found")
}

func TestSynthesizePerLanguageEndpoint(t *testing.T) {
	addr, got := fakeWyoming(t, func(conn net.Conn) {
		_ = writeEvent(conn, wyomingEvent{Type: "audio-chunk"}, []byte{0, 0})
		_ = writeEvent(conn, wyomingEvent{Type: "audio-stop"}, nil)
	})

	s := New(config.PiperConfig{
		Endpoint:  "127.0.0.1:1",
		Endpoints: map[string]string{"ko": addr},
		Voices:    map[string]string{"ko": "ko_KR-custom"},
	})
	_, err := s.Synthesize(context.Background(), "안녕", tts.SynthesizeOpts{Language: "ko-KR"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ko_KR-custom"}, (<-got).Data["voice"])
}

func TestSynthesizeNoEndpoint(t *testing.T) {
	_, err := New(config.PiperConfig{}).Synthesize(context.Background(), "hi", tts.SynthesizeOpts{Language: "en"})
	assert.ErrorContains(t, err, "no piper endpoint")
}

func TestEventRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, wyomingEvent{Type: "audio-chunk", Data: map[string]any{"rate": 22050.0}}, []byte("pcm")))

	evt, payload, err := readEvent(&buf)
	require.NoError(t, err)
	assert.Equal(t, "audio-chunk", evt.Type)
	assert.Equal(t, 22050.0, evt.Data["rate"])
	assert.Equal(t, []byte("pcm"), payload)
}
