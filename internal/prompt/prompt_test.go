package prompt

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/shouldi/internal/message"
)

func TestBuildTextWithContext(t *testing.T) {
	p := Build("Should I buy this stock?", "Earnings up 20%.\n\nAnalysts bullish.", nil)

	assert.Equal(t, message.RoleSystem, p.System.Role)
	assert.Equal(t, SystemInstruction, p.System.Content)
	assert.Equal(t, message.RoleUser, p.User.Role)
	assert.Equal(t, "Should I buy this stock?\n\nRelevant information:\nEarnings up 20%.\n\nAnalysts bullish.", p.User.Content)
	assert.Nil(t, p.User.Images)
}

func TestBuildOmitsEmptyContext(t *testing.T) {
	p := Build("Should I go running?", "  ", nil)
	assert.Equal(t, "Should I go running?", p.User.Content)
	assert.NotContains(t, p.User.Content, contextLabel)
}

func TestBuildImageOnly(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0}
	p := Build("", "", img)

	assert.Equal(t, DefaultImageInstruction, p.User.Content)
	require.Len(t, p.User.Images, 1)
	decoded, err := base64.StdEncoding.DecodeString(p.User.Images[0])
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
	assert.NotContains(t, p.User.Content, p.User.Images[0])
}

func TestBuildImageWithQuestion(t *testing.T) {
	p := Build("Is this mushroom edible?", "Chanterelles are edible.", []byte("img"))
	assert.True(t, strings.HasPrefix(p.User.Content, "Is this mushroom edible?"))
	assert.Len(t, p.User.Images, 1)
}

func TestSystemInstructionNamesKeys(t *testing.T) {
	assert.Contains(t, SystemInstruction, `"probability"`)
	assert.Contains(t, SystemInstruction, `"reason"`)
	assert.Contains(t, SystemInstruction, "0-100")
}
