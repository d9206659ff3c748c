// Package validate turns a raw model reply into an analysis result.
//
// Validation runs in a fixed order: locate the generated content inside the
// reply envelope, parse it as a flat JSON object, read probability and
// reason, range-check probability, then speak the reason. The first four
// steps are fatal and collapse into the sentinel result; speech is
// best-effort and only ever drops the audio.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
	"github.com/nadzzz/shouldi/internal/message"
	"github.com/nadzzz/shouldi/internal/tts"
)

// Envelope names understood by the validator.
const (
	EnvelopeOllama = "ollama"
	EnvelopeOpenAI = "openai"
)

// Verdict is the parsed and range-checked model output, before speech.
type Verdict struct {
	Probability *int
	Reason      string
}

// Validator validates model replies and speaks the reason.
type Validator struct {
	synth tts.Synthesizer
}

// New creates a validator. A nil synthesizer disables speech without
// producing warnings.
func New(synth tts.Synthesizer) *Validator {
	return &Validator{synth: synth}
}

// Validate always returns a result. Fatal failures yield the sentinel
// result for their kind; a speech failure yields a full result without
// audio and a warning.
func (v *Validator) Validate(ctx context.Context, reply *message.ModelReply, speech tts.SynthesizeOpts) message.Result {
	verdict, err := Parse(reply)
	if err != nil {
		return message.Failed(apperrors.KindOf(err), nil)
	}

	var (
		audio    *message.Audio
		warnings []string
	)
	if v.synth != nil && strings.TrimSpace(verdict.Reason) != "" {
		audio, err = tts.Speak(ctx, v.synth, verdict.Reason, speech)
		if err != nil {
			audio = nil
			warnings = append(warnings, err.Error())
		}
	}

	return message.NewResult(verdict.Probability, verdict.Reason, audio, warnings)
}

// Parse runs the fatal validation steps. Every returned error is an
// *errors.Error of kind MalformedEnvelope, MalformedContent or
// OutOfRangeProbability.
func Parse(reply *message.ModelReply) (*Verdict, error) {
	content, err := extractContent(reply)
	if err != nil {
		return nil, err
	}
	return parseContent(content)
}

type ollamaEnvelope struct {
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

type openAIEnvelope struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extractContent locates the generated text inside the reply envelope.
func extractContent(reply *message.ModelReply) (string, error) {
	if reply == nil || len(reply.Body) == 0 {
		return "", apperrors.MalformedEnvelope("empty model reply", nil)
	}

	switch reply.Envelope {
	case EnvelopeOllama, "":
		var env ollamaEnvelope
		if err := json.Unmarshal(reply.Body, &env); err != nil {
			return "", apperrors.MalformedEnvelope("decoding ollama reply", err)
		}
		if env.Message == nil || env.Message.Content == nil {
			msg := "ollama reply has no message.content"
			if env.Error != "" {
				msg += ": " + env.Error
			}
			return "", apperrors.MalformedEnvelope(msg, nil)
		}
		return *env.Message.Content, nil

	case EnvelopeOpenAI:
		var env openAIEnvelope
		if err := json.Unmarshal(reply.Body, &env); err != nil {
			return "", apperrors.MalformedEnvelope("decoding openai reply", err)
		}
		if len(env.Choices) == 0 || env.Choices[0].Message.Content == nil {
			return "", apperrors.MalformedEnvelope("openai reply has no choices[0].message.content", nil)
		}
		return *env.Choices[0].Message.Content, nil

	default:
		return "", apperrors.MalformedEnvelope("unknown reply envelope "+reply.Envelope, nil)
	}
}

// outerFenceRe matches content wrapped in a single markdown code fence,
// e.g. "```json\n{...}\n```". Backticks inside the payload are kept.
var outerFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\n?(.*?)\n?```$")

// stripFences removes an outer markdown code fence some models wrap JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := outerFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// parseContent parses the generated text as {"probability": n, "reason": s}.
// Either field may be missing or null.
func parseContent(content string) (*Verdict, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(content)), &fields); err != nil {
		return nil, apperrors.MalformedContent("content is not a JSON object", err)
	}
	if fields == nil {
		return nil, apperrors.MalformedContent("content is null", nil)
	}

	out := &Verdict{}

	if raw, ok := fields["probability"]; ok && !isNull(raw) {
		p, err := parseNumber(raw)
		if err != nil {
			return nil, apperrors.MalformedContent("probability is not a number", err)
		}
		if math.IsInf(p, 0) || p < 0 || p > 100 {
			return nil, apperrors.OutOfRange(p)
		}
		rounded := int(math.Round(p))
		out.Probability = &rounded
	}

	if raw, ok := fields["reason"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.Reason); err != nil {
			return nil, apperrors.MalformedContent("reason is not a string", err)
		}
	}

	return out, nil
}

// parseNumber decodes a JSON number. A number too large for float64 is
// returned as ±Inf rather than an error.
func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		return 0, fmt.Errorf("got string %s", raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	p, err := strconv.ParseFloat(n.String(), 64)
	if err != nil && !(errors.Is(err, strconv.ErrRange) && math.IsInf(p, 0)) {
		return 0, err
	}
	return p, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
