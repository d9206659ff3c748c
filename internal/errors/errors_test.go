package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFatal(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindInvalidRequest, true},
		{KindTranscription, true},
		{KindTransport, true},
		{KindMalformedEnvelope, true},
		{KindMalformedContent, true},
		{KindOutOfRangeProbability, true},
		{KindSynthesis, false},
		{KindEmptySearchResult, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Fatal())
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("calling model: %w", Transport("chat request", cause))

	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, Is(err, KindTransport))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Kind(""), KindOf(cause))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "malformed_content: not json", MalformedContent("not json", nil).Error())
	assert.Contains(t, OutOfRange(101).Error(), "101")
	assert.Equal(t, "transcription_failure: empty transcript", Transcription("empty transcript", nil).Error())
	assert.Equal(t, KindInvalidRequest, Invalid("bad", nil).Kind)
}

func TestUserMessageNeverEmpty(t *testing.T) {
	for _, k := range []Kind{KindInvalidRequest, KindTranscription, KindTransport, KindMalformedEnvelope, KindMalformedContent, KindOutOfRangeProbability, Kind("other")} {
		assert.NotEmpty(t, UserMessage(k), k)
	}
}
